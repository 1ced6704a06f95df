package bleve

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/addls/scout/pkg/search"
)

// Translate converts spec into a bleve boolean query, mirroring the
// Elasticsearch translation: the free-text term and every condition must
// match, != conditions must not, and OrWheres and WhereIns form a
// should-group of which at least one must match.
//
// Numeric values query numeric fields, everything else is a phrase match on
// the analyzed text. Unknown operators are ignored.
func Translate(spec *search.Spec, typeOf search.ColumnTypeFunc) query.Query {
	if typeOf == nil {
		typeOf = search.TextColumns
	}
	bq := bleve.NewBooleanQuery()
	bq.AddMust(freeText(spec.Query))

	for _, w := range spec.Wheres {
		bq.AddMust(equality(w))
	}

	var ranges []string
	byCol := map[string]*bounds{}
	for _, c := range spec.Operators {
		v := search.Resolve(c.Value, typeOf(c.Column))
		switch op := c.Op(); op {
		case search.OpEq:
			bq.AddMust(equals(c.Column, v))
		case search.OpNe:
			bq.AddMustNot(equals(c.Column, v))
		case search.OpGt, search.OpGte, search.OpLt, search.OpLte:
			b, ok := byCol[c.Column]
			if !ok {
				b = &bounds{}
				byCol[c.Column] = b
				ranges = append(ranges, c.Column)
			}
			b.set(op, v)
		case search.OpLike:
			mq := bleve.NewMatchQuery(v.String())
			mq.SetField(c.Column)
			mq.SetOperator(query.MatchQueryOperatorAnd)
			bq.AddMust(mq)
		}
	}
	for _, col := range ranges {
		bq.AddMust(byCol[col].query(col))
	}

	var should int
	for _, c := range spec.OrWheres {
		v := search.Resolve(c.Value, typeOf(c.Column))
		switch op := c.Op(); op {
		case search.OpEq, search.OpLike:
			mq := bleve.NewMatchQuery(v.String())
			mq.SetField(c.Column)
			bq.AddShould(mq)
			should++
		case search.OpGt, search.OpGte, search.OpLt, search.OpLte:
			var b bounds
			b.set(op, v)
			bq.AddShould(b.query(c.Column))
			should++
		}
	}
	for _, in := range spec.WhereIns {
		typ := typeOf(in.Column)
		for _, raw := range in.Split() {
			bq.AddShould(equals(in.Column, search.Resolve(raw, typ)))
			should++
		}
	}
	if should > 0 {
		bq.SetMinShould(1)
	}

	return bq
}

// freeText matches every whitespace-separated word of term as a substring.
// An empty term matches all documents.
func freeText(term string) query.Query {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return bleve.NewMatchAllQuery()
	}
	qs := make([]query.Query, 0, len(words))
	for _, w := range words {
		qs = append(qs, bleve.NewWildcardQuery("*"+w+"*"))
	}
	return bleve.NewConjunctionQuery(qs...)
}

func equals(field string, v search.Value) query.Query {
	if v.IsNumeric() {
		n := float64(v.Int)
		incl := true
		q := bleve.NewNumericRangeInclusiveQuery(&n, &n, &incl, &incl)
		q.SetField(field)
		return q
	}
	q := bleve.NewMatchPhraseQuery(v.Text)
	q.SetField(field)
	return q
}

// equality handles a plain Where, whose value type comes from the value
// itself rather than the column.
func equality(w search.Equality) query.Query {
	if search.IsList(w.Value) {
		return anyOf(w.Column, search.ListValues(w.Value))
	}
	return equals(w.Column, plainValue(w.Value))
}

func anyOf(field string, values []any) query.Query {
	qs := make([]query.Query, 0, len(values))
	for _, v := range values {
		qs = append(qs, equals(field, plainValue(v)))
	}
	return bleve.NewDisjunctionQuery(qs...)
}

func plainValue(v any) search.Value {
	if search.IsNumeric(v) {
		return search.Resolve(v, search.ColumnNumeric)
	}
	return search.Resolve(v, search.ColumnText)
}

// bounds holds the range bounds of one field. When both a strict and an
// inclusive bound are given on the same side, the strict one wins.
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

func (b *bounds) query(field string) query.Query {
	lo, loIncl := b.gt, false
	if lo == nil && b.gte != nil {
		lo, loIncl = b.gte, true
	}
	hi, hiIncl := b.lt, false
	if hi == nil && b.lte != nil {
		hi, hiIncl = b.lte, true
	}

	numeric := (lo == nil || lo.IsNumeric()) && (hi == nil || hi.IsNumeric())
	if numeric {
		var from, to *float64
		if lo != nil {
			f := float64(lo.Int)
			from = &f
		}
		if hi != nil {
			f := float64(hi.Int)
			to = &f
		}
		q := bleve.NewNumericRangeInclusiveQuery(from, to, &loIncl, &hiIncl)
		q.SetField(field)
		return q
	}

	var from, to string
	if lo != nil {
		from = lo.String()
	}
	if hi != nil {
		to = hi.String()
	}
	q := bleve.NewTermRangeInclusiveQuery(from, to, &loIncl, &hiIncl)
	q.SetField(field)
	return q
}

// sortOrder converts orders to bleve sort strings, "-field" for descending.
func sortOrder(orders []search.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Desc() {
			out = append(out, "-"+o.Column)
			continue
		}
		out = append(out, o.Column)
	}
	return out
}
