package elastic

import (
	"context"

	"github.com/addls/scout/pkg/search"
)

// DriverName is the registry name of this driver.
const DriverName = "elasticsearch"

// RawQuery takes over a search after translation. The engine hands it the
// client, the free-text term and the translated draft, and returns whatever
// Execute returns without looking at it.
type RawQuery interface {
	search.RawQuery
	Execute(ctx context.Context, client Client, term string, draft *Query) (*search.RawResult, error)
}

// RawQueryFunc adapts a function to RawQuery.
type RawQueryFunc func(ctx context.Context, client Client, term string, draft *Query) (*search.RawResult, error)

// Driver implements search.RawQuery.
func (RawQueryFunc) Driver() string { return DriverName }

// Execute calls f.
func (f RawQueryFunc) Execute(ctx context.Context, client Client, term string, draft *Query) (*search.RawResult, error) {
	return f(ctx, client, term, draft)
}
