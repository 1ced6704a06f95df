// Package indexer moves records from a source of truth into a search engine.
//
// # Architecture
//
//	┌─────────────────┐
//	│     Source      │  (SQL table, fixture, ...)
//	└────────┬────────┘
//	         │ All
//	┌────────▼────────┐
//	│    Indexer      │  ← This package
//	│  (batch + pool) │
//	└────────┬────────┘
//	         │ Update / Delete
//	┌────────▼────────┐
//	│  search.Engine  │  (elasticsearch, bleve, null)
//	└─────────────────┘
//
// # Usage
//
//	idx, err := indexer.New(engine, indexer.WithBatchSize(500))
//	if err != nil {
//	    return err
//	}
//	stats, err := idx.Import(ctx, repo)
//
// # Thread Safety
//
// An Indexer holds no mutable state and may be shared between goroutines.
// Batches of one Import run concurrently, bounded by WithWorkers; the engine
// must be safe for concurrent use.
package indexer
