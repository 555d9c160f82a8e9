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
	"log/slog"
	"math"
	"os"
	"slices"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
)

// Index is an index.Index stored in BadgerDB.
type Index struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ index.Index = (*Index)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

type openOptions struct {
	inMemory bool
	logger   *slog.Logger
}

// Option configures Open.
type Option func(*openOptions)

// InMemory keeps the database in memory. The path is ignored.
func InMemory() Option {
	return func(o *openOptions) { o.inMemory = true }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens a BadgerDB index at path, creating the directory if needed.
func Open(path string, opts ...Option) (*Index, error) {
	o := openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "badger-index")

	var bopts badger.Options
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		bopts = badger.DefaultOptions(path)
	}
	bopts.Logger = &badgerLoggerAdapter{logger: logger}
	bopts.Compression = options.None

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, logger: logger}, nil
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(path, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// withTx executes fn within a transaction and commits writes.
// The transaction is discarded if fn returns an error.
func (x *Index) withTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := x.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if isWrite {
		return tx.Commit()
	}
	return nil
}

// Upload replaces the stored records of every source file present in records.
func (x *Index) Upload(ctx context.Context, records []core.ChunkRecord) error {
	if x.db.IsClosed() {
		return index.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bySource := make(map[string][]core.ChunkRecord)
	for _, r := range records {
		bySource[r.SourceName()] = append(bySource[r.SourceName()], r)
	}

	return x.withTx(func(tx *badger.Txn) error {
		for source, recs := range bySource {
			if err := deletePrefix(tx, makeSourcePrefix(source)); err != nil {
				return err
			}
			for _, r := range recs {
				if err := tx.Set(makeChunkRecordKey(source, r.ChunkID), toStored(r).Marshal()); err != nil {
					return err
				}
			}
			x.logger.Debug("stored records", "source", source, "count", len(recs))
		}
		return nil
	}, true)
}

func deletePrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// scan calls fn for every stored record under prefix.
func (x *Index) scan(ctx context.Context, prefix []byte, fn func(core.ChunkRecord)) error {
	return x.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var stored storedRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				stored, err = unmarshalStoredRecord(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("decode %q: %w", iter.Item().Key(), err)
			}
			fn(stored.record())
		}
		return nil
	}, false)
}

// Records returns the stored records of one source file ordered by chunk id.
func (x *Index) Records(ctx context.Context, source string) ([]core.ChunkRecord, error) {
	var records []core.ChunkRecord
	err := x.scan(ctx, makeSourcePrefix(source), func(r core.ChunkRecord) {
		records = append(records, r)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, errA := core.ParseChunkID(records[i].ChunkID)
		b, errB := core.ParseChunkID(records[j].ChunkID)
		if errA != nil || errB != nil {
			return records[i].ChunkID < records[j].ChunkID
		}
		return a < b
	})
	return records, nil
}

// Files returns the distinct source names in the index, sorted.
func (x *Index) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := x.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		last := ""
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			name, ok := sourceFromKey(iter.Item().Key())
			if ok && name != last {
				files = append(files, name)
				last = name
			}
		}
		return nil
	}, false)
	return files, err
}

// Count returns the number of stored records.
func (x *Index) Count(ctx context.Context) (int, error) {
	n := 0
	err := x.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	}, false)
	return n, err
}

// FindSimilar returns up to limit records whose cosine similarity to vector
// is at least minScore, best first.
func (x *Index) FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.SearchResult, error) {
	var results []core.SearchResult
	err := x.scan(ctx, []byte(chunkRecordPrefix), func(r core.ChunkRecord) {
		if len(r.Vector) == 0 {
			return
		}
		score := cosine(vector, r.Vector)
		if score >= minScore {
			results = append(results, core.SearchResult{Record: r, Score: score})
		}
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// cosine computes cosine similarity over the shared prefix of a and b.
func cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
