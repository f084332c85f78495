package shutdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// stageUploadDir builds a staging directory with per-request
// subdirectories the way the server lays them out.
func stageUploadDir(t *testing.T) string {
	t.Helper()

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	staged := []string{
		filepath.Join("9f2c41a2-1111-4e0c-8a77-000000000001", "report.pdf"),
		filepath.Join("9f2c41a2-2222-4e0c-8a77-000000000002", "0", "notes.txt"),
		filepath.Join("9f2c41a2-2222-4e0c-8a77-000000000002", "1", "notes.txt"),
	}
	for _, rel := range staged {
		path := filepath.Join(uploadDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create staging dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte("staged content"), 0644); err != nil {
			t.Fatalf("Failed to create staged file %s: %v", rel, err)
		}
	}
	return uploadDir
}

func TestCleanupUploads_RemovesStagedEntries(t *testing.T) {
	logger := zaptest.NewLogger(t)
	uploadDir := stageUploadDir(t)

	// A stray file at the top level goes too
	stray := filepath.Join(uploadDir, "orphan.tmp")
	if err := os.WriteFile(stray, []byte("stray"), 0644); err != nil {
		t.Fatalf("Failed to create stray file: %v", err)
	}

	cleanupFn := CleanupUploads(logger, uploadDir)
	if err := cleanupFn(context.Background()); err != nil {
		t.Errorf("CleanupUploads returned unexpected error: %v", err)
	}

	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("Failed to read staging directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty staging directory, found %d entries", len(entries))
	}

	// The staging directory itself stays
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		t.Error("Staging directory should still exist after cleanup")
	}
}

func TestCleanupUploads_HandlesEmptyDirectory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	uploadDir := t.TempDir()

	cleanupFn := CleanupUploads(logger, uploadDir)
	if err := cleanupFn(context.Background()); err != nil {
		t.Errorf("CleanupUploads on empty directory returned error: %v", err)
	}

	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		t.Error("Directory should still exist after cleanup")
	}
}

func TestCleanupUploads_HandlesMissingDirectory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	missingDir := filepath.Join(t.TempDir(), "does_not_exist")

	cleanupFn := CleanupUploads(logger, missingDir)
	if err := cleanupFn(context.Background()); err != nil {
		t.Errorf("CleanupUploads on missing directory returned error: %v", err)
	}
}

func TestCleanupUploads_RespectsContextCancellation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	uploadDir := stageUploadDir(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cleanupFn := CleanupUploads(logger, uploadDir)
	if err := cleanupFn(ctx); err != nil {
		t.Errorf("CleanupUploads with cancelled context returned error: %v", err)
	}

	// Nothing was removed; the cancelled context stopped the sweep
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("Failed to read staging directory: %v", err)
	}
	if len(entries) == 0 {
		t.Error("Expected staged entries to remain after cancelled cleanup")
	}
}

func TestCleanupUploadsAndDir_RemovesDirectory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	parentDir := t.TempDir()
	uploadDir := filepath.Join(parentDir, "jandocs-uploads")
	if err := os.MkdirAll(filepath.Join(uploadDir, "req-1"), 0755); err != nil {
		t.Fatalf("Failed to create staging directory: %v", err)
	}

	cleanupFn := CleanupUploadsAndDir(logger, uploadDir)
	if err := cleanupFn(context.Background()); err != nil {
		t.Errorf("CleanupUploadsAndDir returned unexpected error: %v", err)
	}

	if _, err := os.Stat(uploadDir); !os.IsNotExist(err) {
		t.Error("Staging directory should have been deleted")
	}
	if _, err := os.Stat(parentDir); os.IsNotExist(err) {
		t.Error("Parent directory should still exist")
	}
}

func TestCleanupUploadsAndDir_HandlesMissingDirectory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	missingDir := filepath.Join(t.TempDir(), "does_not_exist")

	cleanupFn := CleanupUploadsAndDir(logger, missingDir)
	if err := cleanupFn(context.Background()); err != nil {
		t.Errorf("CleanupUploadsAndDir on missing directory returned error: %v", err)
	}
}

func TestCleanupUploadsAndDir_RespectsContextCancellation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	uploadDir := stageUploadDir(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cleanupFn := CleanupUploadsAndDir(logger, uploadDir)
	if err := cleanupFn(ctx); err != nil {
		t.Errorf("CleanupUploadsAndDir with cancelled context returned error: %v", err)
	}

	// The directory removal is skipped under a cancelled context
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		t.Error("Staging directory should remain after cancelled cleanup")
	}
}

func TestCleanupUploads_IntegrationWithManager(t *testing.T) {
	logger := zaptest.NewLogger(t)
	uploadDir := stageUploadDir(t)

	manager := NewManager(logger, WithTimeout(5*time.Second))
	manager.Register("cleanup-uploads", 45, CleanupUploads(logger, uploadDir))

	if err := manager.Shutdown(); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}

	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("Failed to read staging directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected staged uploads cleaned up during shutdown, found %d entries", len(entries))
	}
}

func TestCleanupUploadsAndDir_IntegrationWithManager(t *testing.T) {
	logger := zaptest.NewLogger(t)
	parentDir := t.TempDir()
	uploadDir := filepath.Join(parentDir, "jandocs-uploads")
	if err := os.MkdirAll(filepath.Join(uploadDir, "req-1"), 0755); err != nil {
		t.Fatalf("Failed to create staging directory: %v", err)
	}

	manager := NewManager(logger, WithTimeout(5*time.Second))
	manager.Register("cleanup-uploads-dir", 50, CleanupUploadsAndDir(logger, uploadDir))

	if err := manager.Shutdown(); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}

	if _, err := os.Stat(uploadDir); !os.IsNotExist(err) {
		t.Error("Staging directory should have been removed during shutdown")
	}
}
