package transfer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildManifestSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	entries, empty, err := buildManifest([]string{path})
	if err != nil {
		t.Fatalf("buildManifest error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty folders = %v, want none", empty)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].info.Name != "hello.txt" || entries[0].info.Size != 5 {
		t.Errorf("entry = %+v", entries[0].info)
	}
	if len(entries[0].info.Hash) == 0 {
		t.Error("expected non-empty hash")
	}
}

func TestBuildManifestDirectoryWithEmptyFolder(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	if err := os.MkdirAll(filepath.Join(root, "sub", "empty"), 0o755); err != nil {
		t.Fatalf("MkdirAll error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	entries, empty, err := buildManifest([]string{root})
	if err != nil {
		t.Fatalf("buildManifest error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	found := false
	for _, e := range empty {
		if filepath.Base(e) == "empty" {
			found = true
		}
	}
	if !found {
		t.Errorf("empty folders = %v, want one named 'empty'", empty)
	}
}
