package fs

import (
	"io"
	"os"
)

// FileSystemEntry is one immediate child of a listed directory. Size is not
// computed and is always reported as 0.
type FileSystemEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDirectory"`
	Size  int64  `json:"size"`
	Path  string `json:"path"`
}

// Listing is the result of listing a directory. Paths are relative to the
// root and use forward slashes.
type Listing struct {
	CurrentPath string             `json:"currentPath"`
	Files       []*FileSystemEntry `json:"files"`
}

// FileSystem performs I/O on absolute paths that were already resolved
// against the root. Implementations never see client input directly.
type FileSystem interface {
	// List returns the immediate children of dir, creating dir (and any
	// missing parents) first. Entry paths are absolute.
	List(dir string) ([]*FileSystemEntry, error)

	// Open opens a regular file for reading.
	Open(file string) (io.ReadSeekCloser, os.FileInfo, error)

	// Mkdir creates a single directory.
	Mkdir(dir string) error

	// Delete removes a file, or a directory and everything beneath it.
	Delete(target string) error

	// Rename moves oldPath to newPath with one OS call.
	Rename(oldPath, newPath string) error

	// Write stores r at file, replacing any existing content. Missing
	// parent directories are created.
	Write(file string, r io.Reader) (int64, error)
}
