package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addls/scout/pkg/search"
)

// recordingEngine records the batches it receives.
type recordingEngine struct {
	search.NullEngine
	mu      sync.Mutex
	updated [][]string
	deleted [][]string
	failOn  string
}

func keys(records []search.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key()
	}
	return out
}

func (e *recordingEngine) Update(_ context.Context, records []search.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		if r.Key() == e.failOn {
			return errors.New("rejected")
		}
	}
	e.updated = append(e.updated, keys(records))
	return nil
}

func (e *recordingEngine) Delete(_ context.Context, records []search.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = append(e.deleted, keys(records))
	return nil
}

type sliceSource struct {
	records []search.Record
	err     error
}

func (s sliceSource) All(context.Context) ([]search.Record, error) { return s.records, s.err }

func docs(n int) []search.Record {
	out := make([]search.Record, n)
	for i := range out {
		out[i] = &search.Document{ID: fmt.Sprint(i + 1), Type: "users"}
	}
	return out
}

func TestNew_RequiresEngine(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilEngine)
}

func TestImport_BatchesEveryRecord(t *testing.T) {
	engine := &recordingEngine{}
	idx, err := New(engine, WithBatchSize(2), WithWorkers(3))
	require.NoError(t, err)

	stats, err := idx.Import(t.Context(), sliceSource{records: docs(5)})

	require.NoError(t, err)
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 3, stats.Batches)

	var all []string
	for _, b := range engine.updated {
		assert.LessOrEqual(t, len(b), 2)
		all = append(all, b...)
	}
	sort.Strings(all)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, all)
}

func TestImport_SourceError(t *testing.T) {
	idx, err := New(&recordingEngine{})
	require.NoError(t, err)

	_, err = idx.Import(t.Context(), sliceSource{err: errors.New("no such table")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load records")
}

func TestImport_BatchFailure(t *testing.T) {
	engine := &recordingEngine{failOn: "3"}
	idx, err := New(engine, WithBatchSize(2), WithWorkers(1))
	require.NoError(t, err)

	stats, err := idx.Import(t.Context(), sliceSource{records: docs(4)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "index batch 1")
	assert.Less(t, stats.Batches, 2)
}

func TestIndex_Empty(t *testing.T) {
	engine := &recordingEngine{}
	idx, err := New(engine)
	require.NoError(t, err)

	stats, err := idx.Index(t.Context(), nil)

	require.NoError(t, err)
	assert.Zero(t, stats.Records)
	assert.Empty(t, engine.updated)
}

func TestRemove_InOrder(t *testing.T) {
	engine := &recordingEngine{}
	idx, err := New(engine, WithBatchSize(2))
	require.NoError(t, err)

	require.NoError(t, idx.Remove(t.Context(), docs(3)))

	assert.Equal(t, [][]string{{"1", "2"}, {"3"}}, engine.deleted)
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int
	}{
		{"exact", 4, 2, []int{2, 2}},
		{"remainder", 5, 2, []int{2, 2, 1}},
		{"single", 3, 10, []int{3}},
		{"empty", 0, 2, nil},
		{"default size", 3, 0, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sizes []int
			for _, b := range Batches(docs(tt.n), tt.size) {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
}

func TestOptions_IgnoreNonPositive(t *testing.T) {
	idx, err := New(&recordingEngine{}, WithBatchSize(0), WithWorkers(-1))
	require.NoError(t, err)

	assert.Equal(t, DefaultBatchSize, idx.batchSize)
	assert.Equal(t, DefaultWorkers, idx.workers)
}
