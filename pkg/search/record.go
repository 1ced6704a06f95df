package search

import "context"

// Record is a searchable domain object.
type Record interface {
	// Key returns the record's primary key as a string.
	Key() string

	// SearchableAs returns the document type the record is indexed under.
	SearchableAs() string

	// SearchableFields returns the document body sent to the backend.
	SearchableFields() map[string]any
}

// RecordRepository resolves identifiers back into records and describes the
// table they live in.
//
// Implementations must be safe for concurrent use.
type RecordRepository interface {
	// Table returns the table (or collection) name backing the records.
	Table() string

	// ColumnType reports the storage type of table.column.
	ColumnType(ctx context.Context, table, column string) (ColumnType, error)

	// FetchByIDs loads the records with the given keys. Keys that do not
	// exist are absent from the returned map; that is not an error.
	FetchByIDs(ctx context.Context, ids []string) (map[string]Record, error)

	// KeyName returns the primary key column.
	KeyName() string
}

// Document is a Record backed by a field map.
type Document struct {
	ID     string
	Type   string
	Fields map[string]any
}

// Key implements Record.
func (d *Document) Key() string { return d.ID }

// SearchableAs implements Record.
func (d *Document) SearchableAs() string { return d.Type }

// SearchableFields implements Record.
func (d *Document) SearchableFields() map[string]any { return d.Fields }

// ColumnTypes resolves the type of every column spec conditions on and
// returns a lookup over the result. Columns outside the spec resolve to
// ColumnText. A nil repository yields TextColumns.
func ColumnTypes(ctx context.Context, spec *Spec) (ColumnTypeFunc, error) {
	repo := spec.Repository
	if repo == nil {
		return TextColumns, nil
	}
	types := make(map[string]ColumnType)
	for _, col := range spec.Columns() {
		t, err := repo.ColumnType(ctx, repo.Table(), col)
		if err != nil {
			return nil, err
		}
		types[col] = t
	}
	return func(column string) ColumnType {
		return types[column]
	}, nil
}
