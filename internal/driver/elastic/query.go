package elastic

import (
	"encoding/json"

	essearch "github.com/elastic/go-elasticsearch/v9/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types/enums/sortorder"

	"github.com/addls/scout/pkg/search"
)

// Query is a translated search: the clauses of one bool query plus sort and
// paging. Raw strategies receive it as a draft they may edit before
// executing.
type Query struct {
	Must    []types.Query
	Filter  []types.Query
	MustNot []types.Query
	Should  []types.Query

	// MinimumShouldMatch is 1 whenever Should is non-empty, 0 otherwise.
	MinimumShouldMatch int

	Sort []types.SortCombinations
	From *int
	Size *int
}

// Bool returns the bool query.
func (q *Query) Bool() *types.BoolQuery {
	b := &types.BoolQuery{
		Must:    q.Must,
		Filter:  q.Filter,
		MustNot: q.MustNot,
		Should:  q.Should,
	}
	if q.MinimumShouldMatch > 0 {
		b.MinimumShouldMatch = q.MinimumShouldMatch
	}
	return b
}

// Request returns the typed search request body.
func (q *Query) Request() *essearch.Request {
	return &essearch.Request{
		Query: &types.Query{Bool: q.Bool()},
		Sort:  q.Sort,
		From:  q.From,
		Size:  q.Size,
	}
}

// JSON returns the request body as sent to the cluster.
func (q *Query) JSON() ([]byte, error) {
	return json.Marshal(q.Request())
}

// bounds accumulates the range bounds of one column.
type bounds struct {
	gt, gte, lt, lte *search.Value
}

func (b *bounds) set(op search.Operator, v search.Value) {
	switch op {
	case search.OpGt:
		b.gt = &v
	case search.OpGte:
		b.gte = &v
	case search.OpLt:
		b.lt = &v
	case search.OpLte:
		b.lte = &v
	}
}

// rangeQuery renders the bounds as a number range when every bound is
// numeric and as a term range otherwise.
func (b *bounds) rangeQuery() types.RangeQuery {
	all := []*search.Value{b.gt, b.gte, b.lt, b.lte}
	numeric := true
	for _, v := range all {
		if v != nil && !v.IsNumeric() {
			numeric = false
		}
	}

	if numeric {
		num := func(v *search.Value) *types.Float64 {
			if v == nil {
				return nil
			}
			f := types.Float64(v.Int)
			return &f
		}
		return &types.NumberRangeQuery{
			Gt: num(b.gt), Gte: num(b.gte), Lt: num(b.lt), Lte: num(b.lte),
		}
	}

	str := func(v *search.Value) *string {
		if v == nil {
			return nil
		}
		s := v.String()
		return &s
	}
	return &types.TermRangeQuery{
		Gt: str(b.gt), Gte: str(b.gte), Lt: str(b.lt), Lte: str(b.lte),
	}
}

// rangeSet merges range bounds per column, remembering first-use order.
type rangeSet struct {
	columns []string
	byCol   map[string]*bounds
}

func (r *rangeSet) add(column string, op search.Operator, v search.Value) {
	if r.byCol == nil {
		r.byCol = make(map[string]*bounds)
	}
	b, ok := r.byCol[column]
	if !ok {
		b = &bounds{}
		r.byCol[column] = b
		r.columns = append(r.columns, column)
	}
	b.set(op, v)
}

func (r *rangeSet) empty() bool { return len(r.columns) == 0 }

// clause emits every column's merged range in a single range clause.
func (r *rangeSet) clause() types.Query {
	ranges := make(map[string]types.RangeQuery, len(r.columns))
	for _, col := range r.columns {
		ranges[col] = r.byCol[col].rangeQuery()
	}
	return types.Query{Range: ranges}
}

func termClause(column string, v any) types.Query {
	return types.Query{Term: map[string]types.TermQuery{column: {Value: v}}}
}

func termsClause(column string, values []any) types.Query {
	field := make([]types.FieldValue, 0, len(values))
	for _, v := range values {
		field = append(field, v)
	}
	return types.Query{Terms: &types.TermsQuery{
		TermsQuery: map[string]types.TermsQueryField{column: field},
	}}
}

func sortClause(order search.Order) types.SortCombinations {
	dir := sortorder.Asc
	if order.Desc() {
		dir = sortorder.Desc
	}
	return &types.SortOptions{
		SortOptions: map[string]types.FieldSort{order.Column: {Order: &dir}},
	}
}
