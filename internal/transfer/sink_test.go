package transfer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDestPathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	_, err := resolveDestPath(dir, fileEntry{Name: "passwd", RemoteFolder: "../../etc"})
	if err == nil {
		t.Fatal("expected traversal error")
	}
}

func TestResolveDestPathAcceptsNestedFolder(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveDestPath(dir, fileEntry{Name: "a.txt", RemoteFolder: "sub/dir"})
	if err != nil {
		t.Fatalf("resolveDestPath error = %v", err)
	}
	want := filepath.Join(dir, "sub", "dir", "a.txt")
	if got != want {
		t.Errorf("resolveDestPath() = %q, want %q", got, want)
	}
}

func TestCreateDestFilePreSizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.bin")

	dest, err := createDestFile(path, 10, 0o644)
	if err != nil {
		t.Fatalf("createDestFile error = %v", err)
	}
	defer dest.Close()

	if err := dest.writeAt(5, []byte("hello")); err != nil {
		t.Fatalf("writeAt error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error = %v", err)
	}
	if info.Size() != 10 {
		t.Errorf("Size() = %d, want 10", info.Size())
	}
}
