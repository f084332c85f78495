package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// FileInfo describes a file queued for ingestion.
// Implements zapcore.ObjectMarshaler for structured logging.
type FileInfo struct {
	// Path is the absolute or working-directory-relative file path
	Path string `json:"path"`
	// SizeMB is the file size in megabytes, used for capacity planning
	SizeMB float64 `json:"size_mb"`
	// Extension is the lowercase file extension without the leading dot
	Extension string `json:"extension"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler for structured logging.
func (f FileInfo) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("path", f.Path)
	enc.AddFloat64("size_mb", f.SizeMB)
	enc.AddString("extension", f.Extension)
	return nil
}

// Name returns the base name of the file.
func (f FileInfo) Name() string {
	return filepath.Base(f.Path)
}

// NewFileInfo stats a file on disk and builds its FileInfo.
// Returns an error if the path does not exist or is a directory.
func NewFileInfo(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("%q is a directory, not a file", path)
	}

	return FileInfo{
		Path:      path,
		SizeMB:    BytesToMB(info.Size()),
		Extension: NormalizeExtension(path),
	}, nil
}

// NormalizeExtension returns the lowercase extension of a path without the
// leading dot. Returns "" for paths with no extension.
func NormalizeExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return strings.TrimPrefix(ext, ".")
}

// BytesToMB converts a byte count to megabytes.
func BytesToMB(bytes int64) float64 {
	return float64(bytes) / float64(BytesPerMB)
}

// CollectFiles walks a directory tree and returns a FileInfo for every
// regular file found. Hidden files and directories (dot-prefixed) are
// skipped. Results are sorted by path for deterministic ordering.
func CollectFiles(dir string) ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, statErr := NewFileInfo(path)
		if statErr != nil {
			return statErr
		}
		files = append(files, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", dir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
