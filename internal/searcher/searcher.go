package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/uekb-mcp/internal/merge"
	"github.com/dshills/uekb-mcp/internal/storage"
)

// Store is the part of storage the searcher needs
type Store interface {
	SearchTable(ctx context.Context, table storage.Table, query string, filters storage.SearchFilters, limit, offset int) (*storage.SearchPage, error)
	Generation() uint64
}

// Options configures limits and the result cache
type Options struct {
	DefaultLimit int
	MaxLimit     int
	// CacheSize is the number of cached responses; 0 disables caching
	CacheSize int
}

// DefaultOptions returns the standard limits with a 256 entry cache
func DefaultOptions() Options {
	return Options{DefaultLimit: storage.DefaultSearchLimit, MaxLimit: 100, CacheSize: 256}
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query   string
	Tables  []storage.Table
	Filters storage.SearchFilters
	Limit   int
	Offset  int
}

// SearchResponse is one merged page across the requested tables
type SearchResponse struct {
	Query        string              `json:"query"`
	Tables       []storage.Table     `json:"tables"`
	Results      []storage.SearchHit `json:"results"`
	TotalMatches int                 `json:"total_matches"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
	CacheHit     bool                `json:"cache_hit"`
	Duration     time.Duration       `json:"-"`
}

// SearchAllResponse holds one independent page per table
type SearchAllResponse struct {
	Query    string                                `json:"query"`
	Pages    map[storage.Table]*storage.SearchPage `json:"tables"`
	CacheHit bool                                  `json:"cache_hit"`
}

// cacheEntry is a cached response tagged with the store generation it was
// computed at. A different current generation means the entry is stale.
type cacheEntry struct {
	generation uint64
	search     *SearchResponse
	all        *SearchAllResponse
}

// Searcher runs ranked queries across tables and caches the results
type Searcher struct {
	store Store
	opts  Options
	cache *lru.Cache[[32]byte, *cacheEntry]
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store Store, opts Options) (*Searcher, error) {
	defaults := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaults.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = defaults.MaxLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}

	s := &Searcher{store: store, opts: opts}
	if opts.CacheSize > 0 {
		cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create LRU cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Search runs the query against each requested table (notes by default)
// and merges the hits by score. Ties go to the earlier table in the request,
// then to the lower row id. TotalMatches is the sum over all tables.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req, []storage.Table{storage.TableNotes}); err != nil {
		return nil, err
	}

	key := computeQueryHash("search", req)
	generation := s.store.Generation()
	if cached := s.checkCache(key, generation); cached != nil && cached.search != nil {
		response := copySearchResponse(cached.search)
		response.CacheHit = true
		response.Duration = time.Since(startTime)
		return response, nil
	}

	// Each table must supply enough hits to fill the merged page
	window := req.Offset + req.Limit
	var merged []storage.SearchHit
	total := 0
	for _, table := range req.Tables {
		page, err := s.store.SearchTable(ctx, table, req.Query, req.Filters, window, 0)
		if err != nil {
			return nil, err
		}
		total += page.TotalMatches
		merged = append(merged, page.Hits...)
	}
	sortHits(merged, req.Tables)

	response := &SearchResponse{
		Query:        req.Query,
		Tables:       req.Tables,
		Results:      pageOf(merged, req.Limit, req.Offset),
		TotalMatches: total,
		Limit:        req.Limit,
		Offset:       req.Offset,
	}
	s.storeInCache(key, &cacheEntry{generation: generation, search: copySearchResponse(response)})
	response.Duration = time.Since(startTime)
	return response, nil
}

// SearchAll runs the same query against every requested table (all tables
// by default) concurrently. Pages are returned per table with no
// cross-table score normalization.
func (s *Searcher) SearchAll(ctx context.Context, req SearchRequest) (*SearchAllResponse, error) {
	if err := s.validateRequest(&req, storage.AllTables); err != nil {
		return nil, err
	}

	key := computeQueryHash("all", req)
	generation := s.store.Generation()
	if cached := s.checkCache(key, generation); cached != nil && cached.all != nil {
		response := copySearchAllResponse(cached.all)
		response.CacheHit = true
		return response, nil
	}

	pages := make([]*storage.SearchPage, len(req.Tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, table := range req.Tables {
		g.Go(func() error {
			page, err := s.store.SearchTable(gctx, table, req.Query, req.Filters, req.Limit, req.Offset)
			if err != nil {
				return fmt.Errorf("search %s: %w", table, err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	response := &SearchAllResponse{Query: req.Query, Pages: make(map[storage.Table]*storage.SearchPage, len(pages))}
	for i, table := range req.Tables {
		response.Pages[table] = pages[i]
	}
	s.storeInCache(key, &cacheEntry{generation: generation, all: copySearchAllResponse(response)})
	return response, nil
}

// validateRequest applies defaults and clamps the limit
func (s *Searcher) validateRequest(req *SearchRequest, defaultTables []storage.Table) error {
	req.Query = strings.TrimSpace(req.Query)

	if req.Limit <= 0 {
		req.Limit = s.opts.DefaultLimit
	}
	if req.Limit > s.opts.MaxLimit {
		req.Limit = s.opts.MaxLimit
	}
	if req.Offset < 0 {
		return &storage.ValidationError{Field: "offset", Value: fmt.Sprint(req.Offset), Reason: "must not be negative"}
	}

	if len(req.Tables) == 0 {
		req.Tables = append([]storage.Table(nil), defaultTables...)
		return nil
	}
	tables := make([]storage.Table, 0, len(req.Tables))
	seen := make(map[storage.Table]bool, len(req.Tables))
	for _, t := range req.Tables {
		table, err := storage.ParseTable(string(t))
		if err != nil {
			return err
		}
		if !seen[table] {
			seen[table] = true
			tables = append(tables, table)
		}
	}
	req.Tables = tables
	return nil
}

// checkCache returns a live entry for key. Entries from an older store
// generation are removed.
func (s *Searcher) checkCache(key [32]byte, generation uint64) *cacheEntry {
	if s.cache == nil {
		return nil
	}
	entry, found := s.cache.Get(key)
	if !found {
		return nil
	}
	if entry.generation != generation {
		s.cache.Remove(key)
		return nil
	}
	return entry
}

func (s *Searcher) storeInCache(key [32]byte, entry *cacheEntry) {
	if s.cache == nil {
		return
	}
	s.cache.Add(key, entry)
}

// sortHits orders by score descending, then table position, then id
func sortHits(hits []storage.SearchHit, tables []storage.Table) {
	order := make(map[storage.Table]int, len(tables))
	for i, t := range tables {
		order[t] = i
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if order[a.Table] != order[b.Table] {
			return order[a.Table] < order[b.Table]
		}
		return a.ID < b.ID
	})
}

func pageOf(hits []storage.SearchHit, limit, offset int) []storage.SearchHit {
	if offset >= len(hits) {
		return []storage.SearchHit{}
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return append([]storage.SearchHit{}, hits[offset:end]...)
}

func copyHits(src []storage.SearchHit) []storage.SearchHit {
	dst := make([]storage.SearchHit, len(src))
	for i, h := range src {
		dst[i] = h
		if h.Tags != nil {
			dst[i].Tags = append([]string(nil), h.Tags...)
		}
	}
	return dst
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Tables = append([]storage.Table(nil), src.Tables...)
	dst.Results = copyHits(src.Results)
	return &dst
}

func copySearchAllResponse(src *SearchAllResponse) *SearchAllResponse {
	if src == nil {
		return nil
	}
	dst := &SearchAllResponse{Query: src.Query, CacheHit: src.CacheHit, Pages: make(map[storage.Table]*storage.SearchPage, len(src.Pages))}
	for table, page := range src.Pages {
		p := *page
		p.Hits = copyHits(page.Hits)
		dst.Pages[table] = &p
	}
	return dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(kind string, req SearchRequest) [32]byte {
	tables := make([]string, len(req.Tables))
	for i, t := range req.Tables {
		tables[i] = string(t)
	}
	tags := merge.NormalizeTags(req.Filters.Tags)
	sort.Strings(tags)

	var data strings.Builder
	data.WriteString(kind)
	data.WriteString("|")
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(strings.Join(tables, ","))
	data.WriteString("|filters:")
	data.WriteString(req.Filters.Subsystem)
	data.WriteString("|")
	data.WriteString(req.Filters.Category)
	data.WriteString("|")
	data.WriteString(strings.Join(tags, ","))
	data.WriteString(fmt.Sprintf("|%d|%d", req.Limit, req.Offset))

	return sha256.Sum256([]byte(data.String()))
}
