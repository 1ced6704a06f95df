package search

import (
	"context"
	"fmt"
)

// Hit is one entry of a RawResult.
type Hit struct {
	ID    string
	Score float64
}

// RawResult is a backend response before mapping back to records. Hits
// keep the backend's ranking order.
type RawResult struct {
	Hits  []Hit
	Total int

	// PageCount is set by Paginate: Total divided by the page size.
	PageCount float64
}

// MapIDs returns the hit identifiers in hit order.
func MapIDs(res *RawResult) []string {
	if res == nil {
		return []string{}
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

// Map loads the records behind res from repo and returns them in hit
// order. Hits whose record no longer exists are dropped. A result with a
// zero total returns an empty slice without contacting repo.
func Map(ctx context.Context, res *RawResult, repo RecordRepository) ([]Record, error) {
	if res == nil || res.Total == 0 {
		return []Record{}, nil
	}
	if repo == nil {
		return nil, fmt.Errorf("map results: record repository is required")
	}

	ids := MapIDs(res)
	found, err := repo.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch %d records: %w", len(ids), err)
	}

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := found[id]; ok && rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// TotalCount returns the backend's total hit count.
func TotalCount(res *RawResult) int {
	if res == nil {
		return 0
	}
	return res.Total
}

// PageCount divides total by perPage without rounding: 10 hits at 3 per
// page is 3.333..., not 4. A non-positive perPage yields 0.
func PageCount(total, perPage int) float64 {
	if perPage <= 0 {
		return 0
	}
	return float64(total) / float64(perPage)
}

// ResultMapper implements the mapping half of Engine. Drivers embed it.
type ResultMapper struct{}

// MapIDs implements Engine.
func (ResultMapper) MapIDs(res *RawResult) []string { return MapIDs(res) }

// Map implements Engine.
func (ResultMapper) Map(ctx context.Context, res *RawResult, repo RecordRepository) ([]Record, error) {
	return Map(ctx, res, repo)
}

// TotalCount implements Engine.
func (ResultMapper) TotalCount(res *RawResult) int { return TotalCount(res) }
