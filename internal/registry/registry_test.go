package registry

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addls/scout/internal/config"
	"github.com/addls/scout/internal/driver/elastic"
	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/pkg/search"
)

// closingEngine is a null engine that records Close calls.
type closingEngine struct {
	search.NullEngine
	closed atomic.Int32
	err    error
}

func (c *closingEngine) Close() error {
	c.closed.Add(1)
	return c.err
}

func countingFactory(calls *atomic.Int32, engine search.Engine) Factory {
	return func(context.Context, *config.Config, *slog.Logger) (search.Engine, error) {
		calls.Add(1)
		return engine, nil
	}
}

func TestEngine_NoNameNoDefaultIsNull(t *testing.T) {
	// Given: no configured driver
	r := New(config.NewConfig())

	// When: resolving without a name
	engine, err := r.Engine(t.Context(), "")

	// Then: the null engine, whose search is empty
	require.NoError(t, err)
	assert.IsType(t, search.NullEngine{}, engine)

	res, err := engine.Search(t.Context(), search.NewBuilder(nil, "anything").Build())
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Equal(t, 0, engine.TotalCount(res))
}

func TestEngine_UsesConfiguredDefault(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Search.Driver = "fake"
	var calls atomic.Int32
	fake := &closingEngine{}
	r := New(cfg, WithFactory("fake", countingFactory(&calls, fake)))

	engine, err := r.Engine(t.Context(), "")

	require.NoError(t, err)
	assert.Same(t, fake, engine)
	assert.Equal(t, "fake", r.DefaultDriver())
}

func TestEngine_CachesPerName(t *testing.T) {
	var calls atomic.Int32
	r := New(nil, WithFactory("fake", countingFactory(&calls, &closingEngine{})))

	first, err := r.Engine(t.Context(), "fake")
	require.NoError(t, err)
	second, err := r.Engine(t.Context(), "fake")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEngine_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	var calls atomic.Int32
	r := New(nil, WithFactory("fake", countingFactory(&calls, &closingEngine{})))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Engine(context.Background(), "fake")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestEngine_UnknownDriver(t *testing.T) {
	r := New(nil)

	_, err := r.Engine(t.Context(), "solr")

	require.Error(t, err)
	assert.Equal(t, scerrors.ErrCodeDriverUnknown, scerrors.GetCode(err))
	assert.Equal(t, scerrors.CategoryConfig, scerrors.GetCategory(err))
}

func TestEngine_FactoryFailureNotCached(t *testing.T) {
	boom := errors.New("connection refused")
	var calls atomic.Int32
	fail := true
	r := New(nil, WithFactory("flaky", func(context.Context, *config.Config, *slog.Logger) (search.Engine, error) {
		calls.Add(1)
		if fail {
			return nil, boom
		}
		return search.NullEngine{}, nil
	}))

	_, err := r.Engine(t.Context(), "flaky")
	require.Error(t, err)
	assert.Equal(t, scerrors.ErrCodeDriverInit, scerrors.GetCode(err))
	assert.ErrorIs(t, err, boom)

	fail = false
	engine, err := r.Engine(t.Context(), "flaky")
	require.NoError(t, err)
	assert.NotNil(t, engine)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEngine_BuiltInElasticsearch(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Elasticsearch.Addresses = []string{"http://127.0.0.1:1"}
	r := New(cfg)

	engine, err := r.Engine(t.Context(), DriverElasticsearch)

	require.NoError(t, err)
	assert.IsType(t, &elastic.Engine{}, engine)
}

func TestEngine_BuiltInBleve(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Bleve.Path = filepath.Join(t.TempDir(), "idx.bleve")
	r := New(cfg)
	t.Cleanup(func() { _ = r.Close() })

	engine, err := r.Engine(t.Context(), DriverBleve)

	require.NoError(t, err)
	res, err := engine.Search(t.Context(), search.NewBuilder(nil, "").Build())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}

func TestDrivers(t *testing.T) {
	r := New(nil, WithFactory("zeta", countingFactory(new(atomic.Int32), search.NullEngine{})))

	assert.Equal(t, []string{"bleve", "elasticsearch", "null", "zeta"}, r.Drivers())
	assert.Equal(t, DriverNull, r.DefaultDriver())
}

func TestClose(t *testing.T) {
	a := &closingEngine{}
	b := &closingEngine{err: errors.New("flush failed")}
	r := New(nil,
		WithFactory("a", countingFactory(new(atomic.Int32), a)),
		WithFactory("b", countingFactory(new(atomic.Int32), b)),
	)
	for _, name := range []string{"a", "b", "null"} {
		_, err := r.Engine(t.Context(), name)
		require.NoError(t, err)
	}

	err := r.Close()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "close b engine")
	assert.Equal(t, int32(1), a.closed.Load())
	assert.Equal(t, int32(1), b.closed.Load())

	// cache emptied: a second Close touches nothing
	require.NoError(t, r.Close())
	assert.Equal(t, int32(1), a.closed.Load())
}
