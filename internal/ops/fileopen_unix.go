//go:build !windows

package ops

import (
	stderrors "errors"
	"fmt"
	"os"
	"syscall"

	"github.com/hpungsan/tabdigest/internal/errors"
)

// openFileNoFollow opens a file for writing with O_NOFOLLOW on the final path
// component. O_CLOEXEC prevents FD leaks across exec.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInputRejected("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// openFileNoFollowRead opens a note for reading with O_NOFOLLOW on the final
// path component.
func openFileNoFollowRead(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInputRejected("cannot read from symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewInputRejected(fmt.Sprintf("file not found: %s", path))
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
