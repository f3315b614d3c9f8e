// Package storage provides SQLite-based persistence for the knowledge store.
//
// The storage layer manages:
//   - Notes (free-form knowledge units)
//   - Type, Callable and Field entities (merge-on-save records)
//   - The append-only coverage log
//   - One FTS5 index per content table
//
// # Database Schema
//
// Tables:
//   - notes: Notes with JSON-encoded source_files, tags and related_entries
//   - types: Type-entities keyed by name
//   - callables: Callable-entities keyed by qualified_name
//   - fields: Field-entities keyed by qualified_name
//   - coverage_log: analyzed-file records
//   - notes_fts, types_fts, callables_fts, fields_fts: FTS5 projections
//   - schema_version: applied migration versions
//
// parent_type, known_children and the call-edge lists are plain names with no
// foreign key: analysis arrives in arbitrary order and references may dangle.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.ue-knowledge/knowledge.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	t, outcome, err := store.UpsertType(ctx, &types.TypeEntity{
//	    Name:          "AActor",
//	    Kind:          "class",
//	    Subsystem:     "gameplay",
//	    KnownChildren: []string{"APawn"},
//	})
//
// # Transactions
//
// Every mutation runs in one transaction. The FTS projection of a row is
// rewritten in the same transaction as the row itself, so a reader never
// sees content without its index entry or the reverse.
//
// UpsertBatch shares one transaction across all items and wraps each item
// in a SAVEPOINT. An item that fails validation is rolled back to its
// savepoint and reported; any other error aborts the batch:
//
//	result, err := store.UpsertBatch(ctx, []storage.BatchItem{
//	    {Kind: storage.BatchType, Type: actor},
//	    {Kind: storage.BatchCallable, Callable: beginPlay},
//	})
//	// result.Saved, result.Errors[i].Index
//
// # Search
//
// SearchTable quotes and prefix-matches every query term, OR-ing them, and
// orders by bm25 rank then id. Scores are reported as -bm25 so higher is
// better. Tag filters apply to Notes after the rank-ordered fetch, so
// TotalMatches always counts the filtered set.
//
// # Migrations
//
// A fresh database is created at CurrentSchemaVersion directly. An older one
// runs each newer step from AllMigrations in its own transaction along with
// its schema_version row.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite. Building with
// -tags "cgo_sqlite sqlite_fts5" switches to github.com/mattn/go-sqlite3.
package storage
