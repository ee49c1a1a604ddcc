package dest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Bookmarks persists access to a user-chosen folder across restarts.
type Bookmarks interface {
	// Resolve returns the folder a bookmark points at and whether the
	// bookmark should be regenerated.
	Resolve(data []byte) (path string, stale bool, err error)
	// Refresh produces new bookmark data for path.
	Refresh(path string) ([]byte, error)
	// Access acquires scoped access to path. The returned func releases it.
	Access(path string) (release func(), err error)
}

// PathBookmarks stores the folder's absolute path and inode. A bookmark is
// stale when the folder at that path has been replaced.
type PathBookmarks struct{}

type bookmark struct {
	Path  string `json:"path"`
	Inode uint64 `json:"inode,omitempty"`
}

// Create makes bookmark data for dir.
func (PathBookmarks) Create(dir string) ([]byte, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	ino, err := inodeOf(abs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(bookmark{Path: abs, Inode: ino})
}

func (b PathBookmarks) Resolve(data []byte) (string, bool, error) {
	var bm bookmark
	if err := json.Unmarshal(data, &bm); err != nil {
		return "", false, fmt.Errorf("decode bookmark: %w", err)
	}
	if bm.Path == "" || !filepath.IsAbs(bm.Path) {
		return "", false, errors.New("bookmark has no absolute path")
	}
	ino, err := inodeOf(bm.Path)
	if err != nil {
		return "", false, err
	}
	return bm.Path, bm.Inode != 0 && ino != bm.Inode, nil
}

func (b PathBookmarks) Refresh(path string) ([]byte, error) { return b.Create(path) }

// Access is a no-op: an unsandboxed process already has the user's rights.
func (PathBookmarks) Access(string) (func(), error) { return func() {}, nil }
