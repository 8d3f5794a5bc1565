// Package memory provides an in-memory storage.Storage for tests and local
// development. It keeps object metadata only, not the bytes.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Titansingh/ProfessionalBackend/internal/storage"
)

type object struct {
	contentType string
	size        int64
	url         string
}

// Storage implements storage.Storage backed by a map.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// New returns an empty in-memory storage rooted at baseURL.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string]object),
		baseURL: baseURL,
	}
}

// Put records the object and returns its URL.
func (s *Storage) Put(_ context.Context, obj *storage.Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url := fmt.Sprintf("%s/%s", s.baseURL, obj.Key)
	s.objects[obj.Key] = object{
		contentType: obj.ContentType,
		size:        obj.Size,
		url:         url,
	}
	return url, nil
}

// Delete removes the object.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("object not found: %s", key)
	}
	delete(s.objects, key)
	return nil
}

// URL returns the URL of a stored object.
func (s *Storage) URL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return "", fmt.Errorf("object not found: %s", key)
	}
	return obj.url, nil
}

// Len reports the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
