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


package pgvector

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
)

//go:embed scripts/bootstrap.sql
var bootstrapFS embed.FS

// DefaultTable is the table used when none is configured.
const DefaultTable = "chunk_records"

var (
	ErrMissingDSN   = errors.New("pgvector dsn is required")
	ErrInvalidTable = errors.New("invalid table name")
)

// Index is an index.Index backed by PostgreSQL with pgvector.
type Index struct {
	db     *sql.DB
	table  string
	logger *slog.Logger

	deleteSQL string
	insertSQL string
	searchSQL string
}

var _ index.Index = (*Index)(nil)

// Option configures an Index.
type Option func(*Index) error

// WithTable sets the table name. Default is chunk_records.
func WithTable(table string) Option {
	return func(x *Index) error {
		if strings.TrimSpace(table) == "" || strings.ContainsRune(table, 0) {
			return ErrInvalidTable
		}
		x.table = table
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(x *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		x.logger = logger
		return nil
	}
}

// Open connects to dsn, verifies the connection and ensures the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Index, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	x, err := newIndex(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := x.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return x, nil
}

func newIndex(db *sql.DB, opts ...Option) (*Index, error) {
	x := &Index{
		db:     db,
		table:  DefaultTable,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(x); err != nil {
			return nil, err
		}
	}
	x.logger = x.logger.With("component", "pgvector-index")

	table := x.quotedTable()
	x.deleteSQL = fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, table)
	x.insertSQL = fmt.Sprintf(`INSERT INTO %s
		(record_key, source, file_name, chunk_id, chunk, embedding, headings, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (record_key) DO UPDATE SET
			chunk = EXCLUDED.chunk,
			embedding = EXCLUDED.embedding,
			headings = EXCLUDED.headings,
			last_updated = EXCLUDED.last_updated`, table)
	x.searchSQL = fmt.Sprintf(`SELECT source, file_name, chunk_id, chunk, embedding, headings, last_updated,
		1 - (embedding <=> $1) AS score
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`, table)
	return x, nil
}

func (x *Index) quotedTable() string {
	return pgx.Identifier{x.table}.Sanitize()
}

// bootstrapSQL renders the schema script for the configured table.
func (x *Index) bootstrapSQL() (string, error) {
	raw, err := bootstrapFS.ReadFile("scripts/bootstrap.sql")
	if err != nil {
		return "", fmt.Errorf("read bootstrap.sql: %w", err)
	}
	return strings.NewReplacer(
		"{{table}}", x.quotedTable(),
		"{{index}}", pgx.Identifier{x.table + "_source_idx"}.Sanitize(),
	).Replace(string(raw)), nil
}

func (x *Index) bootstrap(ctx context.Context) error {
	script, err := x.bootstrapSQL()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	return tx.Commit()
}

// Upload replaces the rows of every source file present in records.
func (x *Index) Upload(ctx context.Context, records []core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return core.Transient(fmt.Errorf("begin tx: %w", err))
	}

	cleared := make(map[string]bool)
	for _, r := range records {
		source := r.SourceName()
		if !cleared[source] {
			if _, err := tx.ExecContext(ctx, x.deleteSQL, source); err != nil {
				_ = tx.Rollback()
				return err
			}
			cleared[source] = true
		}
	}

	stmt, err := tx.PrepareContext(ctx, x.insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		id, err := core.ParseChunkID(r.ChunkID)
		if err != nil {
			_ = tx.Rollback()
			return core.Permanent(err)
		}
		headings, err := json.Marshal(headingsOrEmpty(r.Headings))
		if err != nil {
			_ = tx.Rollback()
			return core.Permanent(err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.Key(), r.SourceName(), r.FileName, id, r.Chunk, pgvector.NewVector(r.Vector), string(headings), r.LastUpdated.Time,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	x.logger.Debug("stored records", "count", len(records))
	return nil
}

func headingsOrEmpty(h []core.Heading) []core.Heading {
	if h == nil {
		return []core.Heading{}
	}
	return h
}

// FindSimilar returns up to limit records whose cosine similarity to vector
// is at least minScore, best first.
func (x *Index) FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.SearchResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := x.db.QueryContext(ctx, x.searchSQL, pgvector.NewVector(vector), minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []core.SearchResult
	for rows.Next() {
		var (
			r        core.ChunkRecord
			id       int
			emb      pgvector.Vector
			headings []byte
			updated  time.Time
			score    float64
		)
		if err := rows.Scan(&r.Source, &r.FileName, &id, &r.Chunk, &emb, &headings, &updated, &score); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if len(headings) > 0 {
			if err := json.Unmarshal(headings, &r.Headings); err != nil {
				return nil, fmt.Errorf("decode headings: %w", err)
			}
		}
		r.ChunkID = core.FormatChunkID(id)
		r.Vector = emb.Slice()
		r.LastUpdated = core.NewTimestamp(updated)
		results = append(results, core.SearchResult{Record: r, Score: float32(score)})
	}
	return results, rows.Err()
}

// Close closes the connection pool.
func (x *Index) Close() error {
	if x.db != nil {
		return x.db.Close()
	}
	return nil
}
