package searcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/dshills/uekb-mcp/internal/storage"
	"github.com/dshills/uekb-mcp/pkg/types"
)

// setupSearchBenchmark fills an in-memory store with notes and types
func setupSearchBenchmark(b *testing.B, cacheSize int) (*storage.SQLiteStorage, *Searcher) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		if _, err := store.CreateNote(ctx, &types.Note{
			Title:     fmt.Sprintf("Replication note %d", i),
			Subsystem: "networking",
			Category:  "pattern",
			Summary:   "actor replication, dormancy and relevancy",
			Content:   "NetUpdateFrequency controls how often an actor is considered for replication",
		}); err != nil {
			store.Close()
			b.Fatal(err)
		}
		if _, _, err := store.UpsertType(ctx, &types.TypeEntity{
			Name:      fmt.Sprintf("AReplicatedActor%d", i),
			Kind:      "class",
			Subsystem: "networking",
			Summary:   "actor with replicated state",
		}); err != nil {
			store.Close()
			b.Fatal(err)
		}
	}

	srch, err := NewSearcher(store, Options{CacheSize: cacheSize})
	if err != nil {
		store.Close()
		b.Fatal(err)
	}
	return store, srch
}

// BenchmarkSearchMultiTable benchmarks a merged notes+types search without caching
func BenchmarkSearchMultiTable(b *testing.B) {
	store, srch := setupSearchBenchmark(b, 0)
	defer store.Close()

	req := SearchRequest{
		Query:  "actor replication",
		Tables: []storage.Table{storage.TableNotes, storage.TableTypes},
		Limit:  10,
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := srch.Search(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSearchCached benchmarks repeated identical searches served from cache
func BenchmarkSearchCached(b *testing.B) {
	store, srch := setupSearchBenchmark(b, 64)
	defer store.Close()

	req := SearchRequest{Query: "actor replication", Limit: 10}
	ctx := context.Background()
	if _, err := srch.Search(ctx, req); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := srch.Search(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSearchAll benchmarks the concurrent per-table fan-out
func BenchmarkSearchAll(b *testing.B) {
	store, srch := setupSearchBenchmark(b, 0)
	defer store.Close()

	req := SearchRequest{Query: "actor replication", Limit: 10}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := srch.SearchAll(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}
