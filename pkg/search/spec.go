package search

import (
	"fmt"
	"strings"
)

// Operator is a normalized comparison operator.
type Operator string

const (
	OpEq   Operator = "="
	OpNe   Operator = "!="
	OpGt   Operator = ">"
	OpGte  Operator = ">="
	OpLt   Operator = "<"
	OpLte  Operator = "<="
	OpLike Operator = "like"
)

// NormalizeOperator lower-cases op and rewrites "<>" as "!=".
// The result may still be an operator no translator recognizes.
func NormalizeOperator(op string) Operator {
	o := strings.ToLower(strings.TrimSpace(op))
	return Operator(strings.ReplaceAll(o, "<>", "!="))
}

// Known reports whether o is one of the supported operators.
func (o Operator) Known() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike:
		return true
	}
	return false
}

// IsRange reports whether o is one of > >= < <=.
func (o Operator) IsRange() bool {
	switch o {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Equality is a plain column = value condition. A slice value means
// "any of".
type Equality struct {
	Column string
	Value  any
}

// Condition is a column/operator/value triple.
type Condition struct {
	Column   string
	Operator string
	Value    any
}

// Op returns the normalized operator.
func (c Condition) Op() Operator { return NormalizeOperator(c.Operator) }

// InList is a column IN (values) condition. Values is a slice or a single
// comma-separated string.
type InList struct {
	Column string
	Values any
}

// Split returns the discrete values of the list: strings are split on
// commas, every string is trimmed and duplicates are removed keeping the
// first occurrence.
func (l InList) Split() []any {
	var raw []any
	switch v := l.Values.(type) {
	case nil:
	case string:
		for _, part := range strings.Split(v, ",") {
			raw = append(raw, part)
		}
	case []string:
		for _, part := range v {
			raw = append(raw, part)
		}
	case []any:
		raw = v
	case []int:
		for _, n := range v {
			raw = append(raw, n)
		}
	case []int64:
		for _, n := range v {
			raw = append(raw, n)
		}
	default:
		raw = []any{v}
	}

	out := make([]any, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		key := fmt.Sprintf("%T:%v", v, v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Order is one sort term.
type Order struct {
	Column    string
	Direction string
}

// Desc reports whether the order is descending.
func (o Order) Desc() bool {
	return strings.EqualFold(strings.TrimSpace(o.Direction), "desc")
}

// RawQuery takes over execution of a translated query. Each driver
// defines the strategy interface it accepts; Driver names that driver.
type RawQuery interface {
	Driver() string
}

// Spec is the backend-neutral description of a search. Build it with
// Builder; engines treat it as read-only.
type Spec struct {
	// Query is the free-text term, matched as a substring.
	Query string

	Wheres    []Equality
	Operators []Condition
	OrWheres  []Condition
	WhereIns  []InList
	Orders    []Order

	// Limit caps the number of hits for Search. Zero means backend default.
	Limit int

	// Index overrides the engine's configured index.
	Index string

	// Raw, when set, receives the translated query instead of the engine
	// executing it.
	Raw RawQuery

	// Repository resolves column types and maps hits back to records.
	Repository RecordRepository
}

// Columns returns the distinct columns whose values need type resolution,
// in first-use order.
func (s *Spec) Columns() []string {
	var cols []string
	seen := make(map[string]struct{})
	add := func(c string) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}
	for _, c := range s.Operators {
		add(c.Column)
	}
	for _, c := range s.OrWheres {
		add(c.Column)
	}
	for _, in := range s.WhereIns {
		add(in.Column)
	}
	return cols
}
