package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// resolveDestPath joins destDir with a manifest entry's remote folder and
// name, rejecting any result that escapes destDir after cleaning — the
// same directory-traversal check the teacher's upload handler runs before
// ever opening a path on disk.
func resolveDestPath(destDir string, f fileEntry) (string, error) {
	rel := filepath.Join(f.RemoteFolder, f.Name)
	joined := filepath.Join(destDir, rel)
	cleanDest := filepath.Clean(destDir)
	cleanJoined := filepath.Clean(joined)

	if cleanJoined != cleanDest && !strings.HasPrefix(cleanJoined, cleanDest+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	return cleanJoined, nil
}

// fileEntry is the subset of protocol.FileInfo resolveDestPath needs; kept
// separate so sink.go has no dependency on the wire package beyond what it
// uses.
type fileEntry struct {
	Name         string
	RemoteFolder string
}

// destFile is a pre-sized destination file safe for concurrent,
// offset-tagged writes from multiple chunk-reader goroutines.
type destFile struct {
	mu sync.Mutex
	f  *os.File
}

// createDestFile makes any missing parent directories, creates path
// (truncating an existing file of the same name), and pre-sizes it to
// size bytes so out-of-order chunk writes never need to grow the file
// mid-transfer.
func createDestFile(path string, size int64, mode os.FileMode) (*destFile, error) {
	if mode == 0 {
		mode = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("transfer: create destination directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		return nil, fmt.Errorf("transfer: create destination file: %w", err)
	}
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("transfer: pre-size destination file: %w", err)
		}
	}
	return &destFile{f: f}, nil
}

// writeAt serializes concurrent offset writes from chunk-reader goroutines
// through a single mutex, per file.
func (d *destFile) writeAt(offset int64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.f.WriteAt(data, offset)
	return err
}

func (d *destFile) Close() error {
	return d.f.Close()
}
