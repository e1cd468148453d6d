//go:build windows

package ops

import (
	"fmt"
	"os"

	"github.com/hpungsan/tabdigest/internal/errors"
)

// openFileNoFollow opens a file for writing. O_NOFOLLOW is not available on
// Windows; ValidateNotePath still rejects symlinks before we get here.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens a note for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputRejected(fmt.Sprintf("file not found: %s", path))
		}
		return nil, err
	}
	return f, nil
}
