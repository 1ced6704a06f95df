package search

import "context"

// Engine is a concrete search backend.
//
// Implementations must be safe for concurrent use.
type Engine interface {
	// Update upserts records into the index.
	Update(ctx context.Context, records []Record) error

	// Delete removes records from the index.
	Delete(ctx context.Context, records []Record) error

	// Search runs spec and returns the raw hits.
	Search(ctx context.Context, spec *Spec) (*RawResult, error)

	// Paginate runs spec for one page. page is 1-based. The result's
	// PageCount is set.
	Paginate(ctx context.Context, spec *Spec, perPage, page int) (*RawResult, error)

	// MapIDs returns hit identifiers in hit order.
	MapIDs(res *RawResult) []string

	// Map resolves hits into records, in hit order, dropping missing ones.
	Map(ctx context.Context, res *RawResult, repo RecordRepository) ([]Record, error)

	// TotalCount returns the total number of matches.
	TotalCount(res *RawResult) int
}

// NullEngine is the inert engine used when no driver is configured.
type NullEngine struct {
	ResultMapper
}

var _ Engine = NullEngine{}

// Update implements Engine. It does nothing.
func (NullEngine) Update(context.Context, []Record) error { return nil }

// Delete implements Engine. It does nothing.
func (NullEngine) Delete(context.Context, []Record) error { return nil }

// Search implements Engine. It always returns an empty result.
func (NullEngine) Search(context.Context, *Spec) (*RawResult, error) {
	return &RawResult{Hits: []Hit{}}, nil
}

// Paginate implements Engine. It always returns an empty result.
func (NullEngine) Paginate(context.Context, *Spec, int, int) (*RawResult, error) {
	return &RawResult{Hits: []Hit{}}, nil
}

// Page is one page of mapped records.
type Page struct {
	Records   []Record
	Total     int
	PageCount float64
	PerPage   int
	Page      int
}

// Get runs spec on engine and maps the hits through spec.Repository.
func Get(ctx context.Context, engine Engine, spec *Spec) ([]Record, error) {
	res, err := engine.Search(ctx, spec)
	if err != nil {
		return nil, err
	}
	return engine.Map(ctx, res, spec.Repository)
}

// Keys runs spec on engine and returns the hit identifiers.
func Keys(ctx context.Context, engine Engine, spec *Spec) ([]string, error) {
	res, err := engine.Search(ctx, spec)
	if err != nil {
		return nil, err
	}
	return engine.MapIDs(res), nil
}

// PaginateRecords runs one page of spec and maps it.
func PaginateRecords(ctx context.Context, engine Engine, spec *Spec, perPage, page int) (*Page, error) {
	res, err := engine.Paginate(ctx, spec, perPage, page)
	if err != nil {
		return nil, err
	}
	records, err := engine.Map(ctx, res, spec.Repository)
	if err != nil {
		return nil, err
	}
	return &Page{
		Records:   records,
		Total:     engine.TotalCount(res),
		PageCount: res.PageCount,
		PerPage:   perPage,
		Page:      page,
	}, nil
}
