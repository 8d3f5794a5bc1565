package storage

import (
	"context"
	"io"
)

// Object describes an image to be stored.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Storage persists user images (avatars, cover images) and serves them by
// public URL.
type Storage interface {
	// Put stores an object and returns its public URL.
	Put(ctx context.Context, obj *Object) (string, error)

	// Delete removes an object by key. Deleting an absent key is an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for a stored key.
	URL(ctx context.Context, key string) (string, error)
}
