package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBatchSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.json")
	content := `{"steps":[{"command":"click","target":"@e1"},{"command":"wait","ms":500}]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	steps, err := loadBatchSteps(path)
	if err != nil {
		t.Fatalf("loadBatchSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(steps))
	}
}

func TestLoadBatchSteps_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.json")
	if err := os.WriteFile(path, []byte(`{"steps":[]}`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := loadBatchSteps(path); err == nil {
		t.Fatal("expected an error for a batch file with no steps")
	}
}

func TestLoadBatchSteps_MissingFile(t *testing.T) {
	if _, err := loadBatchSteps(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error opening a nonexistent batch file")
	}
}

func TestLoadBatchSteps_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.json")
	if err := os.WriteFile(path, []byte(`not json`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := loadBatchSteps(path); err == nil {
		t.Fatal("expected a decode error for invalid JSON")
	}
}
