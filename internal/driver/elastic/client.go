package elastic

import (
	"bytes"
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"
	essearch "github.com/elastic/go-elasticsearch/v9/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types/enums/operationtype"

	"github.com/addls/scout/internal/config"
	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/pkg/search"
)

// Client is the part of an Elasticsearch cluster the engine talks to.
type Client interface {
	// Search runs req against index and returns the hits in rank order.
	Search(ctx context.Context, index string, req *essearch.Request) (*search.RawResult, error)

	// Bulk sends an NDJSON bulk body. Item-level rejections are errors.
	Bulk(ctx context.Context, body []byte) error
}

// TypedClient is a Client backed by the official typed client.
type TypedClient struct {
	es *elasticsearch.TypedClient
}

var _ Client = (*TypedClient)(nil)

// NewClient connects a typed client using cfg. No request is made.
func NewClient(cfg config.ElasticsearchConfig) (*TypedClient, error) {
	es, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		CloudID:   cfg.CloudID,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &TypedClient{es: es}, nil
}

// WrapClient adapts an existing typed client.
func WrapClient(es *elasticsearch.TypedClient) *TypedClient {
	return &TypedClient{es: es}
}

// Typed returns the underlying client for raw strategies that need API
// calls beyond Search and Bulk.
func (c *TypedClient) Typed() *elasticsearch.TypedClient { return c.es }

// Search implements Client.
func (c *TypedClient) Search(ctx context.Context, index string, req *essearch.Request) (*search.RawResult, error) {
	res, err := c.es.Search().Index(index).Request(req).Do(ctx)
	if err != nil {
		return nil, err
	}
	return rawResult(res.Hits), nil
}

// Bulk implements Client.
func (c *TypedClient) Bulk(ctx context.Context, body []byte) error {
	res, err := c.es.Bulk().Raw(bytes.NewReader(body)).Do(ctx)
	if err != nil {
		return err
	}
	if !res.Errors {
		return nil
	}
	return bulkItemsError(res.Items)
}

func rawResult(hits types.HitsMetadata) *search.RawResult {
	out := &search.RawResult{Hits: make([]search.Hit, 0, len(hits.Hits))}
	if hits.Total != nil {
		out.Total = int(hits.Total.Value)
	}
	for _, h := range hits.Hits {
		if h.Id_ == nil {
			continue
		}
		hit := search.Hit{ID: *h.Id_}
		if h.Score_ != nil {
			hit.Score = float64(*h.Score_)
		}
		out.Hits = append(out.Hits, hit)
	}
	return out
}

// bulkItemsError summarizes the rejected items of a bulk response.
func bulkItemsError(items []map[operationtype.OperationType]types.ResponseItem) error {
	var (
		rejected int
		first    string
	)
	for _, item := range items {
		for _, r := range item {
			if r.Error == nil {
				continue
			}
			rejected++
			if first == "" {
				first = r.Error.Type
				if r.Error.Reason != nil {
					first += ": " + *r.Error.Reason
				}
				if r.Id_ != nil {
					first = *r.Id_ + ": " + first
				}
			}
		}
	}
	return scerrors.New(scerrors.ErrCodeBulkRejected,
		fmt.Sprintf("%d of %d bulk items rejected", rejected, len(items)), nil).
		WithDetail("first_error", first)
}
