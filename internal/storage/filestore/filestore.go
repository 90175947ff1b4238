// Package filestore keeps every document in its own pretty-printed JSON file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"OplatymBot/internal/storage"
)

type Store struct {
	dir string
	log *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ storage.DocumentStore = (*Store)(nil)

// New creates the data directory if needed.
func New(logger *slog.Logger, dir string) (*Store, error) {
	op := "filestore.New()"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{
		dir:   dir,
		log:   logger.With(slog.String("component", "filestore")),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Path returns the file that backs the named document.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) Load(ctx context.Context, name string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return s.read(name, dst)
}

func (s *Store) Save(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return s.write(name, v)
}

func (s *Store) Update(ctx context.Context, name string, dst any, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	if err := s.read(name, dst); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.write(name, dst)
}

func (s *Store) Close() error { return nil }

func (s *Store) read(name string, dst any) error {
	op := "filestore.read()"
	raw, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, name, err)
	}
	return storage.Decode(s.log, name, raw, dst)
}

// write replaces the file atomically: temp file in the same dir, fsync, rename.
func (s *Store) write(name string, v any) error {
	op := "filestore.write()"
	raw, err := storage.Encode(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
