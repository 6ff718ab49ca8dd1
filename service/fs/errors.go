package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrNotFound      = errors.New("no such file or directory")
	ErrAlreadyExists = errors.New("file already exists")
	ErrAccessDenied  = errors.New("access denied")
	ErrInvalidName   = errors.New("invalid name")
)

// wrapOSError replaces the OS not-exist/exist errors with the package
// sentinels. Anything else is an I/O error; it keeps the OS reason but
// names the entry by its base name only, never the server side path.
func wrapOSError(op, path string, err error) error {
	name := filepath.Base(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%s %s: %w", op, name, ErrNotFound)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%s %s: %w", op, name, ErrAlreadyExists)
	}
	return fmt.Errorf("%s %s: %w", op, name, stripPath(err))
}

func stripPath(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Err
	}
	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		return syscallErr.Err
	}
	return err
}

const (
	TraversalMessage    = "Access denied: Path traversal detected."
	AccessDeniedMessage = "Access denied"
)

// Message renders err for clients. Traversal and access denied errors get
// fixed messages that do not echo the offending path.
func Message(err error) string {
	switch {
	case IsTraversal(err):
		return TraversalMessage
	case errors.Is(err, ErrAccessDenied):
		return AccessDeniedMessage
	}
	return err.Error()
}
