package segment

import (
	"fmt"
	"os"
	"path/filepath"
)

// TmpDir hands out unique paths for temporary segment files under
// <outputDir>/tmp. One allocator serves a whole run; it is not safe for
// concurrent use, matching the single writer stage that owns it.
type TmpDir struct {
	dir string
	n   int
}

func NewTmpDir(outputDir string) *TmpDir {
	return &TmpDir{dir: filepath.Join(outputDir, "tmp")}
}

// Dir returns the directory temporary segments are placed in.
func (t *TmpDir) Dir() string {
	return t.dir
}

// NextPath reserves the next free segment path, creating the temp
// directory on first use.
func (t *TmpDir) NextPath() (string, error) {
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}
	for {
		t.n++
		path := filepath.Join(t.dir, fmt.Sprintf("seg_%08d%s", t.n, Ext))
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("probing temp path %s: %w", path, err)
		}
	}
}
