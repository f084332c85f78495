package validation

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckFileExists verifies that a path exists and refers to a regular file.
func CheckFileExists(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file", path)
	}

	return nil
}

// CheckFileReadable verifies that a file exists and can be opened for reading.
func CheckFileReadable(path string) error {
	if err := CheckFileExists(path); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	return f.Close()
}

// CheckDirWritable verifies that a directory exists (creating it if needed)
// and that files can be created inside it. The probe file is removed before
// returning.
func CheckDirWritable(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory cannot be empty")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	f.Close()
	return os.Remove(probe)
}
