// Package store is the save-to-disk capability behind interactive delivery.
// Files land in a lode Store: a local directory or an S3 bucket/prefix.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// maxNameAttempts bounds the "name (n).ext" search for a free filename.
const maxNameAttempts = 1000

// Store saves delivered documents under a root.
type Store struct {
	store lode.Store
	// root is the display form of the save root: a directory or s3://bucket/prefix.
	root string
	// exists reports whether a name is taken. Nil means names are never
	// checked (object stores overwrite).
	exists func(name string) bool

	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewFS creates a Store writing into the directory root, creating it if
// needed. Existing files are never overwritten: a taken name is saved as
// "name (1).ext", "name (2).ext", ...
func NewFS(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("store: save directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, WrapInitError(err, root)
	}

	s, err := NewWithFactory(lode.NewFSFactory(root), root)
	if err != nil {
		return nil, err
	}
	s.exists = func(name string) bool {
		_, err := os.Stat(filepath.Join(root, name))
		return err == nil
	}
	return s, nil
}

// NewWithFactory creates a Store from a lode store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWithFactory(factory lode.StoreFactory, root string) (*Store, error) {
	st, err := factory()
	if err != nil {
		return nil, WrapInitError(err, root)
	}
	return &Store{
		store:    st,
		root:     root,
		reserved: make(map[string]struct{}),
	}, nil
}

// Save writes r under name and returns where it landed.
func (s *Store) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	target, err := s.reserve(name)
	if err != nil {
		return "", err
	}

	if err := s.store.Put(ctx, target, r); err != nil {
		s.release(target)
		return "", WrapWriteError(err, target)
	}
	return s.location(target), nil
}

// Root returns the display form of the save root.
func (s *Store) Root() string {
	return s.root
}

// reserve picks the first free variant of name. Names reserved by this
// process count as taken so concurrent saves never collide.
func (s *Store) reserve(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := func(n string) bool {
		if _, ok := s.reserved[n]; ok {
			return true
		}
		return s.exists != nil && s.exists(n)
	}

	target, ok := freeName(name, taken)
	if !ok {
		return "", fmt.Errorf("store: no free name for %q after %d attempts", name, maxNameAttempts)
	}
	s.reserved[target] = struct{}{}
	return target, nil
}

func (s *Store) release(name string) {
	s.mu.Lock()
	delete(s.reserved, name)
	s.mu.Unlock()
}

func (s *Store) location(name string) string {
	if strings.HasPrefix(s.root, "s3://") {
		return strings.TrimRight(s.root, "/") + "/" + name
	}
	return filepath.Join(s.root, name)
}

// freeName returns name, or "base (n)ext" for the smallest n that is not
// taken.
func freeName(name string, taken func(string) bool) (string, bool) {
	if !taken(name) {
		return name, true
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; n <= maxNameAttempts; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !taken(candidate) {
			return candidate, true
		}
	}
	return "", false
}
