package transport

import (
	"context"
	"io"
	"sync"
)

// StubSaver records Save calls for testing.
type StubSaver struct {
	mu    sync.Mutex
	Files []StubFile
	// Err, when set, is returned by every Save.
	Err error
}

// StubFile is a recorded save.
type StubFile struct {
	Name string
	Data []byte
}

// NewStubSaver creates a new stub saver.
func NewStubSaver() *StubSaver {
	return &StubSaver{}
}

// Save implements Saver by recording the call. The location is
// "stub://<name>".
func (s *StubSaver) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files = append(s.Files, StubFile{Name: name, Data: data})
	return "stub://" + name, nil
}

// Saved returns a copy of the recorded saves.
func (s *StubSaver) Saved() []StubFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StubFile(nil), s.Files...)
}

// Verify StubSaver implements Saver.
var _ Saver = (*StubSaver)(nil)
