package search

// Builder assembles a Spec fluently.
//
//	spec := search.NewBuilder(repo, "term").Where("team_id", 4).Take(10).Build()
type Builder struct {
	spec Spec
}

// NewBuilder starts a search for query against the records of repo.
// repo may be nil when the caller only needs hit identifiers.
func NewBuilder(repo RecordRepository, query string) *Builder {
	return &Builder{spec: Spec{Query: query, Repository: repo}}
}

// Where adds an equality condition. A slice value matches any element.
func (b *Builder) Where(column string, value any) *Builder {
	b.spec.Wheres = append(b.spec.Wheres, Equality{Column: column, Value: value})
	return b
}

// WhereOp adds an operator condition (=, !=, <>, >, >=, <, <=, like).
func (b *Builder) WhereOp(column, operator string, value any) *Builder {
	b.spec.Operators = append(b.spec.Operators, Condition{Column: column, Operator: operator, Value: value})
	return b
}

// OrWhere adds a condition of which at least one must hold.
func (b *Builder) OrWhere(column, operator string, value any) *Builder {
	b.spec.OrWheres = append(b.spec.OrWheres, Condition{Column: column, Operator: operator, Value: value})
	return b
}

// WhereIn adds an "in" list; values is a slice or a comma-separated string.
func (b *Builder) WhereIn(column string, values any) *Builder {
	b.spec.WhereIns = append(b.spec.WhereIns, InList{Column: column, Values: values})
	return b
}

// OrderBy appends a sort term. direction is "asc" or "desc".
func (b *Builder) OrderBy(column, direction string) *Builder {
	b.spec.Orders = append(b.spec.Orders, Order{Column: column, Direction: direction})
	return b
}

// Take limits the number of hits.
func (b *Builder) Take(limit int) *Builder {
	b.spec.Limit = limit
	return b
}

// Within searches a specific index instead of the engine's default.
func (b *Builder) Within(index string) *Builder {
	b.spec.Index = index
	return b
}

// WithRaw hands execution of the translated query to raw.
func (b *Builder) WithRaw(raw RawQuery) *Builder {
	b.spec.Raw = raw
	return b
}

// Build returns a copy of the accumulated Spec. The builder may keep being
// used without affecting specs already built.
func (b *Builder) Build() *Spec {
	s := b.spec
	s.Wheres = append([]Equality(nil), b.spec.Wheres...)
	s.Operators = append([]Condition(nil), b.spec.Operators...)
	s.OrWheres = append([]Condition(nil), b.spec.OrWheres...)
	s.WhereIns = append([]InList(nil), b.spec.WhereIns...)
	s.Orders = append([]Order(nil), b.spec.Orders...)
	return &s
}
