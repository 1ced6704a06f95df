// Package bleve is a search driver over a local bleve index, for
// development and single-host deployments without a search cluster.
package bleve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/gofrs/flock"

	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/internal/logging"
	"github.com/addls/scout/pkg/search"
)

// DriverName is the registry name of this driver.
const DriverName = "bleve"

// defaultSize matches bleve's own default page size.
const defaultSize = 10

// RawQuery takes over a search after translation, receiving the open index
// and the prepared request.
type RawQuery interface {
	search.RawQuery
	Execute(ctx context.Context, index bleve.Index, term string, req *bleve.SearchRequest) (*search.RawResult, error)
}

// RawQueryFunc adapts a function to RawQuery.
type RawQueryFunc func(ctx context.Context, index bleve.Index, term string, req *bleve.SearchRequest) (*search.RawResult, error)

// Driver implements search.RawQuery.
func (RawQueryFunc) Driver() string { return DriverName }

// Execute calls f.
func (f RawQueryFunc) Execute(ctx context.Context, index bleve.Index, term string, req *bleve.SearchRequest) (*search.RawResult, error) {
	return f(ctx, index, term, req)
}

// Engine is a search.Engine over a bleve index. An on-disk index is held
// under an exclusive lock file for as long as the engine is open.
type Engine struct {
	search.ResultMapper

	mu     sync.RWMutex
	index  bleve.Index
	lock   *flock.Flock
	path   string
	closed bool
	logger *slog.Logger
}

var _ search.Engine = (*Engine)(nil)

// Open opens or creates the index at path. An empty path creates an
// in-memory index.
func Open(path string, logger *slog.Logger) (*Engine, error) {
	e := &Engine{path: path, logger: logging.OrDiscard(logger)}

	if path == "" {
		idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		e.index = idx
		return e, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	e.lock = flock.New(path + ".lock")
	locked, err := e.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock index: %w", err)
	}
	if !locked {
		return nil, scerrors.New(scerrors.ErrCodeIndexLocked,
			fmt.Sprintf("index %s is in use by another process", path), nil).
			WithSuggestion("Stop the other scout process or point bleve.path at another directory")
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, bleve.NewIndexMapping())
		if err == nil {
			e.logger.Info("bleve_index_created", slog.String("path", path))
		}
	}
	if err != nil {
		_ = e.lock.Unlock()
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}
	e.index = idx
	return e, nil
}

// Index returns the underlying bleve index.
func (e *Engine) Index() bleve.Index { return e.index }

// Update indexes each record's searchable fields under its key.
func (e *Engine) Update(ctx context.Context, records []search.Record) error {
	if len(records) == 0 {
		return nil
	}
	return e.batch(ctx, "update", len(records), func(b *bleve.Batch) error {
		for _, r := range records {
			if err := b.Index(r.Key(), r.SearchableFields()); err != nil {
				return fmt.Errorf("failed to index record %s: %w", r.Key(), err)
			}
		}
		return nil
	})
}

// Delete removes records by key.
func (e *Engine) Delete(ctx context.Context, records []search.Record) error {
	if len(records) == 0 {
		return nil
	}
	return e.batch(ctx, "delete", len(records), func(b *bleve.Batch) error {
		for _, r := range records {
			b.Delete(r.Key())
		}
		return nil
	})
}

func (e *Engine) batch(ctx context.Context, action string, n int, fill func(*bleve.Batch) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return scerrors.BackendError("index is closed", nil)
	}

	b := e.index.NewBatch()
	if err := fill(b); err != nil {
		return scerrors.BackendError("failed to build batch", err)
	}
	if err := e.index.Batch(b); err != nil {
		return scerrors.BackendError(fmt.Sprintf("batch %s failed", action), err)
	}
	e.logger.Debug("batch_applied",
		slog.String("action", action),
		slog.Int("records", n))
	return nil
}

// Search runs spec. A positive spec.Limit caps the hit count.
func (e *Engine) Search(ctx context.Context, spec *search.Spec) (*search.RawResult, error) {
	size := defaultSize
	if spec.Limit > 0 {
		size = spec.Limit
	}
	return e.run(ctx, spec, 0, size)
}

// Paginate runs one 1-based page of spec.
func (e *Engine) Paginate(ctx context.Context, spec *search.Spec, perPage, page int) (*search.RawResult, error) {
	if perPage <= 0 || page <= 0 {
		return nil, scerrors.New(scerrors.ErrCodeInvalidPage,
			fmt.Sprintf("invalid page %d of size %d", page, perPage), nil)
	}
	res, err := e.run(ctx, spec, page*perPage-perPage, perPage)
	if err != nil || res == nil {
		return res, err
	}
	res.PageCount = search.PageCount(res.Total, perPage)
	return res, nil
}

// Explain returns the JSON search request Search would run for spec.
func (e *Engine) Explain(ctx context.Context, spec *search.Spec) ([]byte, error) {
	size := defaultSize
	if spec.Limit > 0 {
		size = spec.Limit
	}
	req, err := e.request(ctx, spec, 0, size)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, scerrors.New(scerrors.ErrCodeEncodeFailed, "failed to encode search request", err)
	}
	return body, nil
}

func (e *Engine) request(ctx context.Context, spec *search.Spec, from, size int) (*bleve.SearchRequest, error) {
	typeOf, err := search.ColumnTypes(ctx, spec)
	if err != nil {
		return nil, scerrors.RepositoryError("failed to resolve column types", err)
	}

	req := bleve.NewSearchRequestOptions(Translate(spec, typeOf), size, from, false)
	if len(spec.Orders) > 0 {
		req.SortBy(sortOrder(spec.Orders))
	}
	return req, nil
}

func (e *Engine) run(ctx context.Context, spec *search.Spec, from, size int) (*search.RawResult, error) {
	req, err := e.request(ctx, spec, from, size)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, scerrors.BackendError("index is closed", nil)
	}

	if spec.Raw != nil {
		raw, ok := spec.Raw.(RawQuery)
		if !ok {
			return nil, scerrors.New(scerrors.ErrCodeRawQueryUnsupported,
				fmt.Sprintf("raw query for driver %q cannot run on %s", spec.Raw.Driver(), DriverName), nil)
		}
		return raw.Execute(ctx, e.index, spec.Query, req)
	}

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, scerrors.BackendError("search request failed", err)
	}

	out := &search.RawResult{Hits: make([]search.Hit, 0, len(res.Hits)), Total: int(res.Total)}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, search.Hit{ID: h.ID, Score: h.Score})
	}
	e.logger.Debug("search_executed",
		slog.String("path", e.path),
		slog.Int("hits", len(out.Hits)),
		slog.Int("total", out.Total))
	return out, nil
}

// Close closes the index and releases its lock. It is safe to call more
// than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	err := e.index.Close()
	if e.lock != nil {
		if uerr := e.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}
