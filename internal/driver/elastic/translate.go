package elastic

import (
	"fmt"
	"maps"
	"slices"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types/enums/operator"

	"github.com/addls/scout/pkg/search"
)

// Options carries the per-call parts of a translation.
type Options struct {
	// From and Size page the hits. Nil leaves the cluster default.
	From *int
	Size *int

	// Filters are pre-built clauses appended to Must, after every clause
	// derived from the spec.
	Filters []types.Query
}

// Translate converts spec into a bool query. typeOf decides, per column,
// whether condition values are coerced to integers; nil treats every
// column as text.
//
// Operators outside = != > >= < <= like are ignored. Ranges from Operators
// are merged per column and emitted as one clause, while each ranged
// OrWhere becomes its own should clause.
func Translate(spec *search.Spec, typeOf search.ColumnTypeFunc, opts Options) *Query {
	if typeOf == nil {
		typeOf = search.TextColumns
	}
	q := &Query{}

	q.Must = append(q.Must, types.Query{
		QueryString: &types.QueryStringQuery{Query: "*" + spec.Query + "*"},
	})

	for _, w := range spec.Wheres {
		switch {
		case search.IsList(w.Value):
			q.Filter = append(q.Filter, termsClause(w.Column, search.ListValues(w.Value)))
		case search.IsNumeric(w.Value):
			q.Filter = append(q.Filter, termClause(w.Column, w.Value))
		default:
			q.Must = append(q.Must, termClause(w.Column, w.Value))
		}
	}

	var ranges rangeSet
	for _, c := range spec.Operators {
		v := search.Resolve(c.Value, typeOf(c.Column))
		switch op := c.Op(); op {
		case search.OpEq:
			if v.IsNumeric() {
				q.Filter = append(q.Filter, termClause(c.Column, v.Any()))
			} else {
				q.Must = append(q.Must, termClause(c.Column, v.Any()))
			}
		case search.OpNe:
			q.MustNot = append(q.MustNot, termClause(c.Column, v.Any()))
		case search.OpGt, search.OpGte, search.OpLt, search.OpLte:
			ranges.add(c.Column, op, v)
		case search.OpLike:
			q.Must = append(q.Must, matchAll(c.Column, v.String()))
		}
	}
	if !ranges.empty() {
		q.Must = append(q.Must, ranges.clause())
	}

	for _, c := range spec.OrWheres {
		v := search.Resolve(c.Value, typeOf(c.Column))
		switch op := c.Op(); op {
		case search.OpEq, search.OpLike:
			q.Should = append(q.Should, types.Query{
				Match: map[string]types.MatchQuery{c.Column: {Query: v.String()}},
			})
		case search.OpGt, search.OpGte, search.OpLt, search.OpLte:
			var single rangeSet
			single.add(c.Column, op, v)
			q.Should = append(q.Should, single.clause())
		}
	}

	for _, in := range spec.WhereIns {
		typ := typeOf(in.Column)
		for _, raw := range in.Split() {
			q.Should = append(q.Should, termClause(in.Column, search.Resolve(raw, typ).Any()))
		}
	}

	if len(q.Should) > 0 {
		q.MinimumShouldMatch = 1
	}

	for _, o := range spec.Orders {
		q.Sort = append(q.Sort, sortClause(o))
	}

	q.From, q.Size = opts.From, opts.Size
	q.Must = append(q.Must, opts.Filters...)
	return q
}

// ScopeFilters turns fixed field/value pairs into clauses for
// Options.Filters: a slice matches any of its values, anything else is a
// phrase match. Fields are emitted in sorted order.
func ScopeFilters(scope map[string]any) []types.Query {
	out := make([]types.Query, 0, len(scope))
	for _, f := range slices.Sorted(maps.Keys(scope)) {
		v := scope[f]
		if search.IsList(v) {
			out = append(out, termsClause(f, search.ListValues(v)))
			continue
		}
		out = append(out, types.Query{
			MatchPhrase: map[string]types.MatchPhraseQuery{f: {Query: fmt.Sprint(v)}},
		})
	}
	return out
}

// matchAll is a match query requiring every analyzed term.
func matchAll(column, text string) types.Query {
	and := operator.And
	return types.Query{
		Match: map[string]types.MatchQuery{column: {Query: text, Operator: &and}},
	}
}
