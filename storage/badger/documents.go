// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/llmerge/core"
	"github.com/poiesic/llmerge/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	// ownsBackend is set when the repository opened the backend itself.
	ownsBackend bool
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a repository on a shared backend.
// Closing the repository leaves the backend open.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &DocumentRepository{
		backend: backend,
	}, nil
}

// NewRepository opens a database directory and returns a repository that
// owns it.
func NewRepository(path string) (storage.DocumentRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &DocumentRepository{backend: backend, ownsBackend: true}, nil
}

// Close closes the backend if the repository opened it.
func (r *DocumentRepository) Close() error {
	if r.ownsBackend {
		return r.backend.Close()
	}
	return nil
}

// FindSimilar delegates to the backend.
func (r *DocumentRepository) FindSimilar(ctx context.Context, collection string, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, collection, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// CreateCollection registers a new collection.
func (r *DocumentRepository) CreateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error) {
	if collection == nil || collection.Name == "" {
		return nil, fmt.Errorf("%w: collection name is required", storage.ErrInvalidQuery)
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(collection.Name)
		existing, err := readCollection(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: collection %q", storage.ErrCollectionExists, collection.Name)
		}

		collection.CreatedAt = time.Now().UTC()
		collection.UpdatedAt = collection.CreatedAt
		collection.Count = 0
		if err := writeCollection(tx, collection); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return collection, nil
}

// GetCollection retrieves a collection by name.
func (r *DocumentRepository) GetCollection(ctx context.Context, name string) (*core.Collection, error) {
	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readCollection(tx, makeCollectionKey(name))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListCollections returns all collections ordered by name.
func (r *DocumentRepository) ListCollections(ctx context.Context) ([]*core.Collection, error) {
	var results []*core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var c *core.Collection
			err := iter.Item().Value(func(val []byte) error {
				var err error
				c, err = storage.UnmarshalCollection(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, c)
		}
		return nil
	}, false)
	return results, err
}

// UpdateCollection replaces the model and dimension of a collection.
func (r *DocumentRepository) UpdateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error) {
	if collection == nil || collection.Name == "" {
		return nil, fmt.Errorf("%w: collection name is required", storage.ErrInvalidQuery)
	}

	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readCollection(tx, makeCollectionKey(collection.Name))
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: collection %q", storage.ErrNotFound, collection.Name)
		}

		existing.Model = collection.Model
		existing.Dimension = collection.Dimension
		existing.UpdatedAt = time.Now().UTC()
		if err := writeCollection(tx, existing); err != nil {
			return err
		}
		result = existing
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteCollection removes a collection and all of its documents.
func (r *DocumentRepository) DeleteCollection(ctx context.Context, name string) error {
	ckey := makeCollectionKey(name)
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		c, err := readCollection(tx, ckey)
		if err != nil {
			return err
		}
		if c == nil {
			return storage.ErrNotFound
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocumentPrefix(name)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	// A write batch splits large deletions across transactions.
	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	if err := wb.Delete(ckey); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return err
	}
	r.backend.logger.Debug("collection deleted", "collection", name, "documents", len(keys))
	return nil
}

// AddDocuments stores documents in an existing collection and updates
// its document count.
func (r *DocumentRepository) AddDocuments(ctx context.Context, collection string, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ckey := makeCollectionKey(collection)
		c, err := readCollection(tx, ckey)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: collection %q", storage.ErrNotFound, collection)
		}

		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if doc.ID == "" {
				doc.ID = fmt.Sprintf("%016x", uint64(core.IDFromContent(doc.Content)))
			}
			key := makeDocumentKey(collection, doc.ID)

			_, err := tx.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				c.Count++
			case err != nil:
				return err
			}

			value, err := storage.MarshalDocument(doc)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}

		if c.Dimension == 0 {
			for _, doc := range docs {
				if len(doc.Vector) > 0 {
					c.Dimension = len(doc.Vector)
					break
				}
			}
		}
		c.UpdatedAt = time.Now().UTC()
		if err := writeCollection(tx, c); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return docs, err
}

// GetDocument retrieves a single document.
func (r *DocumentRepository) GetDocument(ctx context.Context, collection, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(collection, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalDocument(val)
			return err
		})
	}, false)
	return result, err
}

// GetDocuments returns all documents of a collection in key order.
func (r *DocumentRepository) GetDocuments(ctx context.Context, collection string) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocumentPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, doc)
		}
		return nil
	}, false)
	return results, err
}

// readCollection returns nil without error when the key is absent.
func readCollection(tx *badger.Txn, key []byte) (*core.Collection, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var c *core.Collection
	err = item.Value(func(val []byte) error {
		var err error
		c, err = storage.UnmarshalCollection(val)
		return err
	})
	return c, err
}

func writeCollection(tx *badger.Txn, c *core.Collection) error {
	value, err := storage.MarshalCollection(c)
	if err != nil {
		return err
	}
	return tx.Set(makeCollectionKey(c.Name), value)
}
