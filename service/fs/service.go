package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"webdesk/service/sandbox"
)

// TraversalObserver is told about every client path rejected for escaping
// the root.
type TraversalObserver interface {
	TraversalRejected()
}

// FSService exposes the file operations in terms of client relative paths.
// Every path goes through the sandbox before it reaches the FileSystem.
type FSService struct {
	FS      FileSystem
	Sandbox *sandbox.Sandbox

	observer TraversalObserver
	logger   zerolog.Logger
}

func NewFSService(fs FileSystem, sb *sandbox.Sandbox, logger zerolog.Logger) *FSService {
	return &FSService{
		FS:      fs,
		Sandbox: sb,
		logger:  logger,
	}
}

func NewLocalService(sb *sandbox.Sandbox, logger zerolog.Logger) *FSService {
	return NewFSService(NewLocalFileSystem(logger), sb, logger)
}

// SetTraversalObserver must be called before the service is shared.
func (s *FSService) SetTraversalObserver(observer TraversalObserver) {
	s.observer = observer
}

// EnsureRoot creates the root directory if it does not exist yet.
func (s *FSService) EnsureRoot() error {
	if err := os.MkdirAll(s.Sandbox.Root(), dirPerm); err != nil {
		s.logger.Error().Err(err).Str("root", s.Sandbox.Root()).Msg("could not create root directory")
		return wrapOSError("mkdir", s.Sandbox.Root(), err)
	}
	return nil
}

func (s *FSService) List(rel string) (*Listing, error) {
	dir, err := s.resolve("list", rel)
	if err != nil {
		return nil, err
	}

	entries, err := s.FS.List(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.Path, err = s.Sandbox.Rel(entry.Path); err != nil {
			return nil, err
		}
	}

	current, err := s.Sandbox.Rel(dir)
	if err != nil {
		return nil, err
	}

	return &Listing{CurrentPath: current, Files: entries}, nil
}

func (s *FSService) Open(rel string) (io.ReadSeekCloser, os.FileInfo, error) {
	file, err := s.resolve("open", rel)
	if err != nil {
		return nil, nil, err
	}
	return s.FS.Open(file)
}

func (s *FSService) CreateFolder(rel, name string) error {
	parent, err := s.resolve("mkdir", rel)
	if err != nil {
		return err
	}

	dir, err := s.Sandbox.Child(parent, name)
	if err != nil {
		s.logDenied("mkdir", rel, name)
		return fmt.Errorf("mkdir %s: %w", name, ErrAccessDenied)
	}
	if err := validateName(name); err != nil {
		return err
	}
	// the root is created on first use
	if parent == s.Sandbox.Root() {
		if err := s.EnsureRoot(); err != nil {
			return err
		}
	}

	if err := s.FS.Mkdir(dir); err != nil {
		return err
	}
	s.logger.Info().Str("path", rel).Str("name", name).Msg("folder created")
	return nil
}

func (s *FSService) Delete(rel string) error {
	target, err := s.resolve("delete", rel)
	if err != nil {
		return err
	}
	if target == s.Sandbox.Root() {
		s.logDenied("delete", rel, "")
		return fmt.Errorf("delete root: %w", ErrAccessDenied)
	}

	if err := s.FS.Delete(target); err != nil {
		return err
	}
	s.logger.Info().Str("path", rel).Msg("deleted")
	return nil
}

func (s *FSService) Rename(rel, newName string) error {
	target, err := s.resolve("rename", rel)
	if err != nil {
		return err
	}

	dest, err := s.Sandbox.Sibling(target, newName)
	if err != nil {
		s.logDenied("rename", rel, newName)
		return fmt.Errorf("rename %s: %w", newName, ErrAccessDenied)
	}
	if err := validateName(newName); err != nil {
		return err
	}

	if err := s.FS.Rename(target, dest); err != nil {
		return err
	}
	s.logger.Info().Str("path", rel).Str("newName", newName).Msg("renamed")
	return nil
}

// Upload stores r as rel/filename. An existing file of that name is
// overwritten.
func (s *FSService) Upload(rel, filename string, r io.Reader) error {
	dir, err := s.resolve("upload", rel)
	if err != nil {
		return err
	}

	file, err := s.Sandbox.Child(dir, filename)
	if err != nil {
		s.logDenied("upload", rel, filename)
		return fmt.Errorf("upload %s: %w", filename, ErrAccessDenied)
	}
	if err := validateName(filename); err != nil {
		return err
	}

	n, err := s.FS.Write(file, r)
	if err != nil {
		return err
	}
	s.logger.Info().Str("path", rel).Str("file", filename).Int64("bytes", n).Msg("uploaded")
	return nil
}

func (s *FSService) resolve(op, rel string) (string, error) {
	p, err := s.Sandbox.Resolve(rel)
	if err != nil {
		s.logger.Warn().
			Str("event", "security").
			Str("op", op).
			Str("path", rel).
			Msg("path traversal rejected")
		if s.observer != nil {
			s.observer.TraversalRejected()
		}
		return "", err
	}
	return p, nil
}

func (s *FSService) logDenied(op, rel, name string) {
	s.logger.Warn().
		Str("event", "security").
		Str("op", op).
		Str("path", rel).
		Str("name", name).
		Msg("target outside root rejected")
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidName, name)
	}
	return nil
}

// IsTraversal reports whether err was caused by a path escaping the root.
func IsTraversal(err error) bool {
	return errors.Is(err, sandbox.ErrTraversal)
}
