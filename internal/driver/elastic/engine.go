package elastic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"

	"github.com/addls/scout/internal/config"
	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/internal/logging"
	"github.com/addls/scout/pkg/search"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Index receives every record and serves searches that do not name
	// another index.
	Index string

	// MappingTypes writes _type into bulk headers.
	MappingTypes bool

	// Scope is matched by every search, in addition to the spec.
	Scope map[string]any

	Logger *slog.Logger
}

// Engine is the Elasticsearch search.Engine.
type Engine struct {
	search.ResultMapper

	client Client
	index  string
	bulk   BulkBuilder
	scope  []types.Query
	logger *slog.Logger
}

var _ search.Engine = (*Engine)(nil)

// New creates an engine over client.
func New(client Client, cfg EngineConfig) *Engine {
	return &Engine{
		client: client,
		index:  cfg.Index,
		bulk:   BulkBuilder{Index: cfg.Index, IncludeType: cfg.MappingTypes},
		scope:  ScopeFilters(cfg.Scope),
		logger: logging.OrDiscard(cfg.Logger),
	}
}

// NewFromConfig connects to the cluster described by cfg.
func NewFromConfig(cfg config.ElasticsearchConfig, logger *slog.Logger) (*Engine, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	scope := make(map[string]any, len(cfg.Scope))
	for k, v := range cfg.Scope {
		scope[k] = v
	}
	return New(client, EngineConfig{
		Index:        cfg.Index,
		MappingTypes: cfg.MappingTypes,
		Scope:        scope,
		Logger:       logger,
	}), nil
}

// Client returns the client the engine searches with.
func (e *Engine) Client() Client { return e.client }

// Update upserts records with one bulk request.
func (e *Engine) Update(ctx context.Context, records []search.Record) error {
	return e.sendBulk(ctx, "update", records, e.bulk.BuildUpdateRequest(records))
}

// Delete removes records with one bulk request.
func (e *Engine) Delete(ctx context.Context, records []search.Record) error {
	return e.sendBulk(ctx, "delete", records, e.bulk.BuildDeleteRequest(records))
}

func (e *Engine) sendBulk(ctx context.Context, action string, records []search.Record, body BulkBody) error {
	if len(records) == 0 {
		return nil
	}
	payload, err := body.NDJSON()
	if err != nil {
		return scerrors.New(scerrors.ErrCodeEncodeFailed, "failed to encode bulk body", err)
	}
	if err := e.client.Bulk(ctx, payload); err != nil {
		if _, ok := scerrors.As(err); ok {
			return err
		}
		return scerrors.BackendError(fmt.Sprintf("bulk %s failed", action), err).
			WithDetail("index", e.index)
	}
	e.logger.Debug("bulk_sent",
		slog.String("action", action),
		slog.String("index", e.index),
		slog.Int("records", len(records)))
	return nil
}

// Search runs spec. A positive spec.Limit caps the hit count.
func (e *Engine) Search(ctx context.Context, spec *search.Spec) (*search.RawResult, error) {
	opts := Options{Filters: e.scope}
	if spec.Limit > 0 {
		size := spec.Limit
		opts.Size = &size
	}
	return e.run(ctx, spec, opts)
}

// Paginate runs one 1-based page of spec.
func (e *Engine) Paginate(ctx context.Context, spec *search.Spec, perPage, page int) (*search.RawResult, error) {
	if perPage <= 0 || page <= 0 {
		return nil, scerrors.New(scerrors.ErrCodeInvalidPage,
			fmt.Sprintf("invalid page %d of size %d", page, perPage), nil)
	}
	from, size := page*perPage-perPage, perPage
	res, err := e.run(ctx, spec, Options{From: &from, Size: &size, Filters: e.scope})
	if err != nil || res == nil {
		return res, err
	}
	res.PageCount = search.PageCount(res.Total, perPage)
	return res, nil
}

// Explain returns the request body Search would send for spec.
func (e *Engine) Explain(ctx context.Context, spec *search.Spec) ([]byte, error) {
	q, err := e.translate(ctx, spec, Options{Filters: e.scope})
	if err != nil {
		return nil, err
	}
	body, err := q.JSON()
	if err != nil {
		return nil, scerrors.New(scerrors.ErrCodeEncodeFailed, "failed to encode search request", err)
	}
	return body, nil
}

func (e *Engine) translate(ctx context.Context, spec *search.Spec, opts Options) (*Query, error) {
	typeOf, err := search.ColumnTypes(ctx, spec)
	if err != nil {
		return nil, scerrors.RepositoryError("failed to resolve column types", err)
	}
	return Translate(spec, typeOf, opts), nil
}

func (e *Engine) run(ctx context.Context, spec *search.Spec, opts Options) (*search.RawResult, error) {
	q, err := e.translate(ctx, spec, opts)
	if err != nil {
		return nil, err
	}

	if spec.Raw != nil {
		raw, ok := spec.Raw.(RawQuery)
		if !ok {
			return nil, scerrors.New(scerrors.ErrCodeRawQueryUnsupported,
				fmt.Sprintf("raw query for driver %q cannot run on %s", spec.Raw.Driver(), DriverName), nil)
		}
		return raw.Execute(ctx, e.client, spec.Query, q)
	}

	index := e.index
	if spec.Index != "" {
		index = spec.Index
	}
	res, err := e.client.Search(ctx, index, q.Request())
	if err != nil {
		return nil, scerrors.BackendError("search request failed", err).WithDetail("index", index)
	}
	e.logger.Debug("search_executed",
		slog.String("index", index),
		slog.Int("hits", len(res.Hits)),
		slog.Int("total", res.Total))
	return res, nil
}
