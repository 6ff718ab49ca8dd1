package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const (
	dirPerm  = 0755
	filePerm = 0644
)

type LocalFileSystem struct {
	logger zerolog.Logger
}

func NewLocalFileSystem(logger zerolog.Logger) *LocalFileSystem {
	return &LocalFileSystem{logger: logger}
}

// List implements FileSystem. Entries come back in the order the OS
// returns them.
func (l *LocalFileSystem) List(dir string) ([]*FileSystemEntry, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, wrapOSError("list", dir, err)
	}

	f, err := os.Open(dir)
	if err != nil {
		return nil, wrapOSError("list", dir, err)
	}
	defer f.Close()

	dirEntries, err := f.ReadDir(-1)
	if err != nil {
		return nil, wrapOSError("list", dir, err)
	}

	entries := make([]*FileSystemEntry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		entries = append(entries, &FileSystemEntry{
			Name:  dirEntry.Name(),
			IsDir: dirEntry.IsDir(),
			Path:  filepath.Join(dir, dirEntry.Name()),
		})
	}

	return entries, nil
}

// Open implements FileSystem. Directories are reported as not found.
func (l *LocalFileSystem) Open(file string) (io.ReadSeekCloser, os.FileInfo, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, wrapOSError("open", file, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, wrapOSError("stat", file, err)
	}

	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("open %s: is a directory: %w", filepath.Base(file), ErrNotFound)
	}

	return f, info, nil
}

// Mkdir implements FileSystem.
func (l *LocalFileSystem) Mkdir(dir string) error {
	return wrapOSError("mkdir", dir, os.Mkdir(dir, dirPerm))
}

// Delete implements FileSystem.
func (l *LocalFileSystem) Delete(target string) error {
	info, err := os.Lstat(target)
	if err != nil {
		return wrapOSError("delete", target, err)
	}

	if info.IsDir() {
		if err := os.RemoveAll(target); err != nil {
			return wrapOSError("delete", target, err)
		}
		return nil
	}

	return wrapOSError("delete", target, os.Remove(target))
}

// Rename implements FileSystem. An occupied destination is refused
// instead of relying on platform specific replace semantics.
func (l *LocalFileSystem) Rename(oldPath, newPath string) error {
	if _, err := os.Lstat(oldPath); err != nil {
		return wrapOSError("rename", oldPath, err)
	}

	if oldPath == newPath {
		return nil
	}

	if _, err := os.Lstat(newPath); err == nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(newPath), ErrAlreadyExists)
	}

	return wrapOSError("rename", oldPath, os.Rename(oldPath, newPath))
}

// Write implements FileSystem. An interrupted copy leaves the partial file
// in place.
func (l *LocalFileSystem) Write(file string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
		return 0, wrapOSError("write", filepath.Dir(file), err)
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, wrapOSError("write", file, err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		l.logger.Warn().Err(err).Str("file", file).Int64("written", n).Msg("upload interrupted")
		return n, wrapOSError("write", file, err)
	}

	if err := f.Close(); err != nil {
		return n, wrapOSError("write", file, err)
	}

	return n, nil
}
