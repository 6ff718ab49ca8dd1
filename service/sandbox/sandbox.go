// Package sandbox confines client supplied relative paths to a single root
// directory. It is purely lexical: nothing here touches the filesystem.
package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrTraversal = errors.New("path traversal detected")

type Sandbox struct {
	root string
}

// New anchors a sandbox at root. The root is made absolute and cleaned but
// is not required to exist.
func New(root string) (*Sandbox, error) {
	if root == "" {
		return nil, errors.New("sandbox root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}
	return &Sandbox{root: abs}, nil
}

func (s *Sandbox) Root() string {
	return s.root
}

// Resolve joins rel onto the root and canonicalizes the result. Both slash
// conventions are accepted and a leading slash or volume name never makes
// rel absolute. Symlinks are not followed.
func (s *Sandbox) Resolve(rel string) (string, error) {
	p := filepath.Join(s.root, toNative(rel))
	if !s.Contains(p) {
		return "", fmt.Errorf("%w: %q", ErrTraversal, rel)
	}
	return p, nil
}

// Child returns dir/name, rejecting the result when it leaves the root.
func (s *Sandbox) Child(dir, name string) (string, error) {
	p := filepath.Join(dir, toNative(name))
	if !s.Contains(p) {
		return "", fmt.Errorf("%w: %q", ErrTraversal, name)
	}
	return p, nil
}

// Sibling returns dirname(target)/name, rejecting the result when it leaves
// the root.
func (s *Sandbox) Sibling(target, name string) (string, error) {
	return s.Child(filepath.Dir(target), name)
}

// Contains reports whether p is the root or lies beneath it.
func (s *Sandbox) Contains(p string) bool {
	p = filepath.Clean(p)
	if p == s.root {
		return true
	}
	prefix := s.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// Rel maps a resolved path back to its client form: forward slashes,
// relative to the root, empty for the root itself.
func (s *Sandbox) Rel(p string) (string, error) {
	if !s.Contains(p) {
		return "", fmt.Errorf("%w: %q", ErrTraversal, p)
	}
	rel, err := filepath.Rel(s.root, filepath.Clean(p))
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

func toNative(rel string) string {
	rel = strings.ReplaceAll(rel, `\`, "/")
	// "C:/x" must not select another volume
	if vol := filepath.VolumeName(filepath.FromSlash(rel)); vol != "" {
		rel = rel[len(vol):]
	}
	return filepath.FromSlash(rel)
}
