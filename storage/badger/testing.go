package badger

import "github.com/poiesic/llmerge/storage"

// NewMemoryRepository creates an in-memory document repository for testing.
// Closing the repository closes its backend.
func NewMemoryRepository() (storage.DocumentRepository, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return &DocumentRepository{backend: backend, ownsBackend: true}, nil
}
