// Package mediatest provides an in-memory media.Store for tests.
package mediatest

import (
	"context"
	"sync"

	"github.com/Togather-Foundation/gallery/internal/media"
)

type Store struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PutErr and DeleteErr, when set, are returned by the next calls.
	PutErr    error
	DeleteErr error
}

var _ media.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{objects: map[string][]byte{}}
}

func (s *Store) Put(ctx context.Context, key, _ string, body []byte) (string, error) {
	if err := media.ValidateKey(key); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return "", s.PutErr
	}
	s.objects[key] = append([]byte(nil), body...)
	return s.URL(key), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) URL(key string) string {
	return "https://media.test/" + key
}

func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
