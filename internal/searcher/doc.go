// Package searcher runs ranked full-text queries across the knowledge tables.
//
// Two entry points are provided:
//   - Search: one merged page over the requested tables (notes by default)
//   - SearchAll: an independent page per table (all tables by default),
//     queried concurrently
//
// # Basic Usage
//
//	s, err := searcher.NewSearcher(store, searcher.DefaultOptions())
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:  "actor replication",
//	    Tables: []storage.Table{storage.TableNotes, storage.TableTypes},
//	    Limit:  10,
//	})
//
//	for _, hit := range resp.Results {
//	    fmt.Printf("[%s] %s (score: %.2f)\n", hit.Table, hit.Key, hit.Score)
//	}
//
// # Merging
//
// Each table is ranked by FTS5 bm25 and reported as score = -bm25. Search
// fetches the top offset+limit hits from every table, sorts the union by
// score (ties: table order in the request, then row id) and slices the
// requested page. TotalMatches is the sum of per-table totals.
//
// Scores are not normalized across tables. SearchAll leaves each table's
// page as is for callers that want to compare tables themselves.
//
// # Caching
//
// Responses are kept in an LRU cache keyed by a SHA-256 of the request.
// Every entry records the store write generation it was computed at; any
// committed write, from this process or any other connection to the same
// database file, bumps the generation and the entry is dropped on its next
// lookup. Set Options.CacheSize to 0 to disable caching.
package searcher
