// Package search defines the backend-neutral side of scout. Callers build
// a Spec; engines translate it and return hits that the shared result
// mapper turns back into records.
//
// # Architecture
//
//	caller ──Builder──► Spec ──► Engine.Search ──► RawResult ──► Map ──► []Record
//	                               │                              ▲
//	                               ▼                              │
//	                     driver translator              RecordRepository
//	                 (elasticsearch, bleve, null)
//
// Engines are resolved by name through the driver registry. Each engine
// translates a [Spec] into its backend's query language, executes it and
// returns a [RawResult] whose hits keep the backend's relevance order.
// [Map] turns those hits back into records, dropping identifiers the
// repository no longer knows about.
//
// # Usage
//
//	spec := search.NewBuilder(users, "ali").
//	    WhereOp("age", ">=", 21).
//	    WhereIn("status", "active,invited").
//	    OrderBy("created_at", "desc").
//	    Take(20).
//	    Build()
//
//	records, err := search.Get(ctx, engine, spec)
//
// # Column typing
//
// Operator conditions are resolved through the repository's column types
// exactly once ([Resolve]): numeric columns produce [Numeric] values that
// translate to non-scoring filters, everything else produces [Text] values
// that translate to scored matches.
package search
