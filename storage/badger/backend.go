package badger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/llmerge/core"
	"github.com/poiesic/llmerge/storage"
)

// Backend owns the BadgerDB handle shared by repositories.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogLogger routes badger's printf-style logging into slog. Badger's
// info output is chatty and is demoted to debug.
type slogLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = slogLogger{}

func (l slogLogger) log(level slog.Level, format string, args ...any) {
	if l.logger.Enabled(context.Background(), level) {
		l.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
	}
}

func (l slogLogger) Errorf(format string, args ...any)   { l.log(slog.LevelError, format, args...) }
func (l slogLogger) Warningf(format string, args ...any) { l.log(slog.LevelWarn, format, args...) }
func (l slogLogger) Infof(format string, args ...any)    { l.log(slog.LevelDebug, format, args...) }
func (l slogLogger) Debugf(format string, args ...any)   { l.log(slog.LevelDebug, format, args...) }

// OpenBackend opens the index database in dir, creating the directory if
// needed. With inMemory set dir is ignored and nothing touches disk.
func OpenBackend(dir string, inMemory bool) (*Backend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := prepareDir(dir); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}

	logger := slog.Default().With("component", "badger")
	opts = opts.WithLogger(slogLogger{logger: logger}).WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open index %q: %w", dir, err)
	}
	return &Backend{db: db, logger: logger}, nil
}

func prepareDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return os.MkdirAll(dir, 0o755)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx runs fn in a transaction that is discarded afterwards; write
// transactions must be committed by fn.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithTransaction runs fn and commits a write transaction when it succeeds.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindSimilar scans the documents of a collection and keeps the limit
// best scoring at least minSimilarity, highest first. Ties keep key
// order. Stored vectors are unit length, so the score is the dot product.
// Documents without a vector or with a different dimension are skipped.
func (b *Backend) FindSimilar(ctx context.Context, collection string, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	top := make([]*core.SearchResult, 0, limit+1)
	skipped := 0
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocumentPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}

			score, ok := similarity(vector, doc.Vector)
			if !ok {
				if len(doc.Vector) > 0 {
					skipped++
				}
				continue
			}
			if score < minSimilarity {
				continue
			}
			if len(top) == limit && score <= top[limit-1].Score {
				continue
			}

			// Insert after every result with a score >= this one.
			pos, _ := slices.BinarySearchFunc(top, score, func(r *core.SearchResult, s float32) int {
				if r.Score >= s {
					return -1
				}
				return 1
			})
			top = slices.Insert(top, pos, &core.SearchResult{Document: doc, Score: score})
			if len(top) > limit {
				top = top[:limit]
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		b.logger.Debug("documents with a different vector dimension skipped",
			"collection", collection, "documents", skipped, "dimension", len(vector))
	}
	return top, nil
}

// similarity is the dot product of two vectors of the same dimension.
func similarity(a, b []float32) (float32, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, true
}
