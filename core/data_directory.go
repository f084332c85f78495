package core

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the application name used in data directory paths.
const AppName = "jandocs"

// GetDataDirectory returns the platform-specific data directory path for the application.
// This is a pure function based on runtime.GOOS and environment variables.
//
// Paths by platform:
//   - Windows: %APPDATA%/jandocs (e.g., C:\Users\<user>\AppData\Roaming\jandocs)
//   - Linux/macOS: ~/.jandocs (e.g., /home/<user>/.jandocs)
//
// Does NOT create the directory - callers should use EnsureDataDirectory for that.
func GetDataDirectory() string {
	switch runtime.GOOS {
	case "windows":
		// Use APPDATA on Windows
		appData := os.Getenv("APPDATA")
		if appData == "" {
			// Fallback to user home if APPDATA not set
			home, err := os.UserHomeDir()
			if err != nil {
				return AppName
			}
			return filepath.Join(home, "AppData", "Roaming", AppName)
		}
		return filepath.Join(appData, AppName)
	default:
		// Linux, macOS, and other Unix-like systems
		home, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory if home cannot be determined
			return ".jandocs"
		}
		return filepath.Join(home, ".jandocs")
	}
}

// GetDataFilePath returns the full path for a file within the data directory.
// Example: GetDataFilePath("vectors.db") -> "/home/user/.jandocs/vectors.db"
func GetDataFilePath(filename string) string {
	return filepath.Join(GetDataDirectory(), filename)
}

// EnsureDataDirectory creates the data directory if it doesn't exist.
// Returns the directory path and any error encountered.
func EnsureDataDirectory() (string, error) {
	dir := GetDataDirectory()
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureDir creates a directory (and any parents) with secure permissions
// if it does not already exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
