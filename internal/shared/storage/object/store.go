package object

import (
	"context"
	"errors"
	"io"
)

// SavedObject describes a stored file.
type SavedObject struct {
	Key         string
	Size        int64
	ContentType string
}

// Store persists uploaded and generated files under a namespace prefix.
// Namespaces group related objects (for example "uploads" or a batch id).
type Store interface {
	// Save stores the contents of r under a generated key inside namespace.
	Save(ctx context.Context, namespace, fileName string, r io.Reader) (SavedObject, error)
	// SaveWithKey stores the contents of r at the exact key.
	SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (SavedObject, error)
	// Open returns a reader for the object at key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

var ErrNotFound = errors.New("object not found")
