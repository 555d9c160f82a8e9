package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/docindex/core"
	"golang.org/x/sync/errgroup"
)

// Store persists text and manifest artifacts.
// Implementations must be safe for concurrent use with distinct names.
type Store interface {
	// SaveText writes extracted text at relPath, a slash or OS separated
	// path relative to the store root.
	SaveText(ctx context.Context, relPath, text string) error
	// SaveManifest writes records as a JSON array under name.
	SaveManifest(ctx context.Context, name string, records []core.ChunkRecord) error
}

// ErrInvalidPath is returned for paths that escape the store root.
var ErrInvalidPath = errors.New("artifact path must be relative and local")

// EncodeManifest renders records as the manifest JSON array.
func EncodeManifest(records []core.ChunkRecord) ([]byte, error) {
	if records == nil {
		records = []core.ChunkRecord{}
	}
	return json.Marshal(records)
}

// DecodeManifest parses a manifest written by EncodeManifest.
func DecodeManifest(data []byte) ([]core.ChunkRecord, error) {
	var records []core.ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Dir is a Store rooted at a local directory.
type Dir struct {
	root string
}

var _ Store = (*Dir)(nil)

// NewDir creates the root directory if needed and returns a Store over it.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory artifacts are written under.
func (d *Dir) Root() string { return d.root }

// Path resolves a store-relative name to a filesystem path.
func (d *Dir) Path(name string) (string, error) {
	name = filepath.FromSlash(name)
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(d.root, name), nil
}

func (d *Dir) write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (d *Dir) SaveText(ctx context.Context, relPath, text string) error {
	return d.write(ctx, relPath, []byte(text))
}

func (d *Dir) SaveManifest(ctx context.Context, name string, records []core.ChunkRecord) error {
	data, err := EncodeManifest(records)
	if err != nil {
		return err
	}
	return d.write(ctx, name, data)
}

type tee struct {
	primary Store
	mirrors []Store
}

// Tee writes to primary and then, if that succeeded, to every mirror
// concurrently. Mirror failures are joined into the returned error.
func Tee(primary Store, mirrors ...Store) Store {
	if len(mirrors) == 0 {
		return primary
	}
	return &tee{primary: primary, mirrors: mirrors}
}

func (t *tee) fanOut(fn func(Store) error) error {
	if err := fn(t.primary); err != nil {
		return err
	}

	errs := make([]error, len(t.mirrors))
	var g errgroup.Group
	for i, m := range t.mirrors {
		g.Go(func() error {
			errs[i] = fn(m)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (t *tee) SaveText(ctx context.Context, relPath, text string) error {
	return t.fanOut(func(s Store) error { return s.SaveText(ctx, relPath, text) })
}

func (t *tee) SaveManifest(ctx context.Context, name string, records []core.ChunkRecord) error {
	return t.fanOut(func(s Store) error { return s.SaveManifest(ctx, name, records) })
}
