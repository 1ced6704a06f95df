// Package registry resolves search drivers by name and caches the engines
// it builds for the life of the process.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/addls/scout/internal/config"
	"github.com/addls/scout/internal/driver/bleve"
	"github.com/addls/scout/internal/driver/elastic"
	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/internal/logging"
	"github.com/addls/scout/pkg/search"
)

// Built-in driver names.
const (
	DriverNull          = "null"
	DriverElasticsearch = elastic.DriverName
	DriverBleve         = bleve.DriverName
)

// Factory builds an engine from the loaded configuration.
type Factory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (search.Engine, error)

// Registry maps driver names to factories and caches constructed engines.
// It is safe for concurrent use.
type Registry struct {
	cfg       *config.Config
	logger    *slog.Logger
	factories map[string]Factory

	mu      sync.Mutex
	engines map[string]search.Engine
	group   singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithFactory registers or replaces the factory for name.
func WithFactory(name string, f Factory) Option {
	return func(r *Registry) {
		r.factories[name] = f
	}
}

// WithLogger sets the logger handed to factories.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry with the built-in drivers.
func New(cfg *config.Config, opts ...Option) *Registry {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	r := &Registry{
		cfg:       cfg,
		factories: DefaultFactories(),
		engines:   make(map[string]search.Engine),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDiscard(r.logger)
	return r
}

// DefaultFactories returns the built-in driver table.
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		DriverNull: func(context.Context, *config.Config, *slog.Logger) (search.Engine, error) {
			return search.NullEngine{}, nil
		},
		DriverElasticsearch: func(_ context.Context, cfg *config.Config, logger *slog.Logger) (search.Engine, error) {
			return elastic.NewFromConfig(cfg.Elasticsearch, logger)
		},
		DriverBleve: func(_ context.Context, cfg *config.Config, logger *slog.Logger) (search.Engine, error) {
			return bleve.Open(cfg.Bleve.Path, logger)
		},
	}
}

// DefaultDriver returns the driver used when none is named.
func (r *Registry) DefaultDriver() string {
	if r.cfg.Search.Driver == "" {
		return DriverNull
	}
	return r.cfg.Search.Driver
}

// Drivers lists the registered driver names in sorted order.
func (r *Registry) Drivers() []string {
	return slices.Sorted(maps.Keys(r.factories))
}

// Engine returns the engine for name, building it on first use. An empty
// name selects the configured default, and the null engine when there is
// none. Construction failures are returned and not cached.
func (r *Registry) Engine(ctx context.Context, name string) (search.Engine, error) {
	if name == "" {
		name = r.DefaultDriver()
	}

	r.mu.Lock()
	engine, ok := r.engines[name]
	r.mu.Unlock()
	if ok {
		return engine, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, scerrors.DriverError(scerrors.ErrCodeDriverUnknown, name, nil).
			WithDetail("available", fmt.Sprint(r.Drivers()))
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.Lock()
		if engine, ok := r.engines[name]; ok {
			r.mu.Unlock()
			return engine, nil
		}
		r.mu.Unlock()

		engine, err := factory(ctx, r.cfg, r.logger)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.engines[name] = engine
		r.mu.Unlock()

		r.logger.Info("engine_resolved", slog.String("driver", name))
		return engine, nil
	})
	if err != nil {
		r.logger.Warn("engine_failed",
			slog.String("driver", name),
			slog.String("error", err.Error()))
		return nil, scerrors.DriverError(scerrors.ErrCodeDriverInit, name, err)
	}
	return v.(search.Engine), nil
}

// Close closes every cached engine that holds resources and empties the
// cache.
func (r *Registry) Close() error {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]search.Engine)
	r.mu.Unlock()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(engines)) {
		c, ok := engines[name].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s engine: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
