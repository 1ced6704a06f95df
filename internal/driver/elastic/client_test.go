package elastic

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types/enums/operationtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addls/scout/internal/config"
	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/pkg/search"
)

// fakeCluster answers _search and _bulk with canned bodies and records
// what it received.
type fakeCluster struct {
	mu     sync.Mutex
	paths  []string
	bodies []string
	search string
	bulk   string
	status int
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception","reason":"no such index"},"status":404}`)
		return
	}
	if strings.HasSuffix(r.URL.Path, "/_bulk") {
		_, _ = io.WriteString(w, f.bulk)
		return
	}
	_, _ = io.WriteString(w, f.search)
}

func newTestClient(t *testing.T, cluster *fakeCluster) *TypedClient {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestTypedClient_Search(t *testing.T) {
	cluster := &fakeCluster{search: `{
		"took": 1, "timed_out": false,
		"_shards": {"total": 1, "successful": 1, "skipped": 0, "failed": 0},
		"hits": {
			"total": {"value": 3, "relation": "eq"},
			"max_score": 2.5,
			"hits": [
				{"_index": "scout", "_id": "3", "_score": 2.5},
				{"_index": "scout", "_id": "1", "_score": 1.0}
			]
		}
	}`}
	client := newTestClient(t, cluster)

	q := Translate(search.NewBuilder(nil, "go").Build(), nil, Options{})
	res, err := client.Search(t.Context(), "scout", q.Request())

	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []search.Hit{{ID: "3", Score: 2.5}, {ID: "1", Score: 1}}, res.Hits)

	require.Len(t, cluster.paths, 1)
	assert.Equal(t, "POST /scout/_search", cluster.paths[0])
	assert.Contains(t, cluster.bodies[0], `"*go*"`)
}

func TestTypedClient_SearchError(t *testing.T) {
	client := newTestClient(t, &fakeCluster{status: http.StatusNotFound})

	_, err := client.Search(t.Context(), "missing", Translate(&search.Spec{}, nil, Options{}).Request())

	assert.Error(t, err)
}

func TestTypedClient_Bulk(t *testing.T) {
	cluster := &fakeCluster{bulk: `{"took": 2, "errors": false, "items": [
		{"update": {"_index": "scout", "_id": "1", "status": 200, "result": "updated"}}
	]}`}
	client := newTestClient(t, cluster)
	body, err := BulkBuilder{Index: "scout"}.BuildUpdateRequest(docs("1")).NDJSON()
	require.NoError(t, err)

	require.NoError(t, client.Bulk(t.Context(), body))

	require.Len(t, cluster.bodies, 1)
	assert.Equal(t, string(body), cluster.bodies[0])
	assert.True(t, strings.HasSuffix(cluster.paths[0], "/_bulk"))
}

func TestTypedClient_BulkItemErrors(t *testing.T) {
	cluster := &fakeCluster{bulk: `{"took": 2, "errors": true, "items": [
		{"update": {"_index": "scout", "_id": "1", "status": 200, "result": "updated"}},
		{"update": {"_index": "scout", "_id": "2", "status": 400,
			"error": {"type": "mapper_parsing_exception", "reason": "failed to parse field [age]"}}}
	]}`}
	client := newTestClient(t, cluster)
	body, err := BulkBuilder{Index: "scout"}.BuildUpdateRequest(docs("1", "2")).NDJSON()
	require.NoError(t, err)

	err = client.Bulk(t.Context(), body)

	require.Error(t, err)
	assert.ErrorIs(t, err, scerrors.ErrBulkRejected)
	se, ok := scerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "1 of 2 bulk items rejected", se.Message)
	assert.Equal(t, "2: mapper_parsing_exception: failed to parse field [age]", se.Details["first_error"])
}

func TestRawResult(t *testing.T) {
	id1, id2 := "a", "b"
	score := types.Float64(0.5)

	res := rawResult(types.HitsMetadata{
		Total: &types.TotalHits{Value: 10},
		Hits: []types.Hit{
			{Id_: &id1, Score_: &score},
			{},
			{Id_: &id2},
		},
	})

	assert.Equal(t, 10, res.Total)
	assert.Equal(t, []search.Hit{{ID: "a", Score: 0.5}, {ID: "b"}}, res.Hits)

	empty := rawResult(types.HitsMetadata{})
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.Hits)
}

func TestBulkItemsError_WithoutReason(t *testing.T) {
	err := bulkItemsError([]map[operationtype.OperationType]types.ResponseItem{
		{operationtype.Delete: {Error: &types.ErrorCause{Type: "version_conflict_engine_exception"}}},
	})

	se, ok := scerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "version_conflict_engine_exception", se.Details["first_error"])
}
