package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/addls/scout/internal/logging"
	"github.com/addls/scout/pkg/search"
)

// ErrNilEngine is returned when creating an Indexer without an engine.
var ErrNilEngine = errors.New("search engine is required")

const (
	// DefaultBatchSize is the number of records per Update call.
	DefaultBatchSize = 500

	// DefaultWorkers bounds the batches in flight at once.
	DefaultWorkers = 4
)

// Source yields every record that belongs in the index.
type Source interface {
	All(ctx context.Context) ([]search.Record, error)
}

// Stats describes a finished import.
type Stats struct {
	// Records is the number of records sent to the engine.
	Records int

	// Batches is the number of Update calls made.
	Batches int

	// Duration is the wall time of the import.
	Duration time.Duration
}

// Indexer pushes records into an engine in fixed-size batches.
type Indexer struct {
	engine    search.Engine
	batchSize int
	workers   int
	logger    *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithBatchSize sets the records per batch. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(i *Indexer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithWorkers sets how many batches may be in flight. Values below 1 are
// ignored.
func WithWorkers(n int) Option {
	return func(i *Indexer) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithLogger sets the logger for progress events.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Indexer) {
		i.logger = logger
	}
}

// New creates an indexer for engine.
//
// Returns ErrNilEngine if engine is nil.
func New(engine search.Engine, opts ...Option) (*Indexer, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	i := &Indexer{
		engine:    engine,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logging.OrDiscard(i.logger)

	return i, nil
}

// Import loads every record from src and upserts it into the engine.
//
// The first failing batch cancels the rest and its error is returned.
// Batches already sent stay indexed; re-running Import is idempotent.
func (i *Indexer) Import(ctx context.Context, src Source) (Stats, error) {
	start := time.Now()

	records, err := src.All(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load records: %w", err)
	}

	stats, err := i.Index(ctx, records)
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}

	i.logger.Info("import_complete",
		slog.Int("records", stats.Records),
		slog.Int("batches", stats.Batches),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// Index upserts records in batches.
//
// Empty or nil slices are no-ops.
func (i *Indexer) Index(ctx context.Context, records []search.Record) (Stats, error) {
	batches := Batches(records, i.batchSize)
	if len(batches) == 0 {
		return Stats{}, nil
	}

	var sent, done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for n, batch := range batches {
		g.Go(func() error {
			if err := i.engine.Update(gctx, batch); err != nil {
				return fmt.Errorf("index batch %d: %w", n, err)
			}
			sent.Add(int64(len(batch)))
			done.Add(1)
			i.logger.Debug("batch_indexed",
				slog.Int("batch", n),
				slog.Int("records", len(batch)))
			return nil
		})
	}

	err := g.Wait()
	return Stats{Records: int(sent.Load()), Batches: int(done.Load())}, err
}

// Remove deletes records from the engine in batches, one batch at a time.
func (i *Indexer) Remove(ctx context.Context, records []search.Record) error {
	for n, batch := range Batches(records, i.batchSize) {
		if err := i.engine.Delete(ctx, batch); err != nil {
			return fmt.Errorf("remove batch %d: %w", n, err)
		}
	}
	return nil
}

// Batches splits records into consecutive slices of at most size entries.
func Batches(records []search.Record, size int) [][]search.Record {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]search.Record
	for start := 0; start < len(records); start += size {
		out = append(out, records[start:min(start+size, len(records))])
	}
	return out
}
