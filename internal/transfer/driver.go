package transfer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/postalsys/croc-go/internal/protocol"
)

// manifestEntry pairs a wire FileInfo with the absolute source path the
// sender reopens when it is time to stream that file's chunks. The
// absolute path never goes on the wire.
type manifestEntry struct {
	info protocol.FileInfo
	path string
}

// buildManifest walks paths (each a file or a directory) and returns one
// manifestEntry per regular file found. A file given directly gets an
// empty RemoteFolder/SourceFolder; a file found under a directory root gets
// its directory relative to that root, prefixed with the root's own base
// name, so the receiver recreates the same tree under its destination
// directory.
func buildManifest(paths []string) ([]manifestEntry, []string, error) {
	var entries []manifestEntry
	var emptyFolders []string

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, nil, fmt.Errorf("transfer: stat %s: %w", root, err)
		}

		if !info.IsDir() {
			entry, err := buildFileEntry(root, "", info)
			if err != nil {
				return nil, nil, err
			}
			entries = append(entries, entry)
			continue
		}

		base := filepath.Base(root)
		walkErr := filepath.Walk(root, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if p == root {
				return nil
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return relErr
			}
			remoteDir := filepath.Join(base, filepath.Dir(rel))
			if fi.IsDir() {
				hasEntries, derr := dirHasEntries(p)
				if derr != nil {
					return derr
				}
				if !hasEntries {
					emptyFolders = append(emptyFolders, filepath.Join(base, rel))
				}
				return nil
			}
			entry, ferr := buildFileEntry(p, remoteDir, fi)
			if ferr != nil {
				return ferr
			}
			entries = append(entries, entry)
			return nil
		})
		if walkErr != nil {
			return nil, nil, fmt.Errorf("transfer: walk %s: %w", root, walkErr)
		}
	}

	return entries, emptyFolders, nil
}

func dirHasEntries(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	if err != nil && err != io.EOF {
		return false, err
	}
	return len(names) > 0, nil
}

func buildFileEntry(path, remoteDir string, fi os.FileInfo) (manifestEntry, error) {
	hash, err := hashFile(path)
	if err != nil {
		return manifestEntry{}, err
	}

	symlink := ""
	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err == nil {
			symlink = target
		}
	}

	return manifestEntry{
		info: protocol.FileInfo{
			Name:         fi.Name(),
			RemoteFolder: remoteDir,
			SourceFolder: remoteDir,
			Hash:         hash,
			Size:         fi.Size(),
			ModTime:      fi.ModTime().UTC(),
			Symlink:      symlink,
			Mode:         uint32(fi.Mode().Perm()),
		},
		path: path,
	}, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transfer: open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("transfer: hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// Result reports a completed transfer's totals.
type Result struct {
	Files     int
	TotalSize int64
	PeerIP    string
	Elapsed   time.Duration
}
