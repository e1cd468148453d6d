package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/tabdigest/internal/errors"
)

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // source note
	PathCheckWrite                      // rendered digest
)

// CleanSuffix is appended to a note's stem to name its digest.
const CleanSuffix = " (clean)"

// ValidateNotePath checks a note path before it is opened:
// 1. no ".." components
// 2. a .md extension
// 3. the file (read) or its parent directory (write) exists
// 4. the final component is not a symlink
func ValidateNotePath(path string, mode PathCheckMode) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInputRejected("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInputRejected("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if !strings.EqualFold(filepath.Ext(cleaned), ".md") {
		return errors.NewInputRejected("path must have .md extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInputRejected(fmt.Sprintf("invalid path: %v", err))
	}

	switch mode {
	case PathCheckRead:
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewInputRejected(fmt.Sprintf("file not found: %s", path))
		}
	case PathCheckWrite:
		info, err := os.Stat(filepath.Dir(absPath))
		if err != nil || !info.IsDir() {
			return errors.NewInputRejected(fmt.Sprintf("output directory does not exist: %s", filepath.Dir(path)))
		}
	}

	// O_NOFOLLOW at open time would catch this too; rejecting early gives a
	// clearer error.
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInputRejected("path must not be a symlink")
	}
	return nil
}

// CleanPath returns the digest path next to a source note:
// "notes/Tabs.md" becomes "notes/Tabs (clean).md".
func CleanPath(src string) string {
	dir, base := filepath.Split(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+CleanSuffix+".md")
}

// IsCleanNote reports whether path already names a rendered digest.
func IsCleanNote(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), CleanSuffix)
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
