package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/dshills/uekb-mcp/internal/merge"
)

// Table names a searchable content table
type Table string

const (
	TableNotes     Table = "notes"
	TableTypes     Table = "types"
	TableCallables Table = "callables"
	TableFields    Table = "fields"
)

// AllTables lists every searchable table in its default order
var AllTables = []Table{TableNotes, TableTypes, TableCallables, TableFields}

var tableAliases = map[string]Table{
	"notes":      TableNotes,
	"entries":    TableNotes,
	"types":      TableTypes,
	"classes":    TableTypes,
	"callables":  TableCallables,
	"functions":  TableCallables,
	"fields":     TableFields,
	"properties": TableFields,
}

// ParseTable resolves a table name, accepting the legacy names
// entries/classes/functions/properties.
func ParseTable(name string) (Table, error) {
	t, ok := tableAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", &ValidationError{Field: "tables", Value: name, Reason: "must be one of: notes, types, callables, fields"}
	}
	return t, nil
}

// tableSpec describes a content table and its FTS projection
type tableSpec struct {
	content string
	fts     string
	ftsCols []string
	// select expressions for the uniform search row
	keyExpr, categoryExpr, kindExpr, tagsExpr string
}

var tableSpecs = map[Table]tableSpec{
	TableNotes: {
		content:      "notes",
		fts:          "notes_fts",
		ftsCols:      []string{"title", "summary", "content"},
		keyExpr:      "c.title",
		categoryExpr: "c.category",
		kindExpr:     "''",
		tagsExpr:     "c.tags",
	},
	TableTypes: {
		content:      "types",
		fts:          "types_fts",
		ftsCols:      []string{"name", "summary", "doc_comment", "specifiers", "lifecycle_order"},
		keyExpr:      "c.name",
		categoryExpr: "''",
		kindExpr:     "c.kind",
		tagsExpr:     "'[]'",
	},
	TableCallables: {
		content:      "callables",
		fts:          "callables_fts",
		ftsCols:      []string{"qualified_name", "summary", "doc_comment", "specifiers", "signature"},
		keyExpr:      "c.qualified_name",
		categoryExpr: "''",
		kindExpr:     "''",
		tagsExpr:     "'[]'",
	},
	TableFields: {
		content:      "fields",
		fts:          "fields_fts",
		ftsCols:      []string{"qualified_name", "summary", "doc_comment", "specifiers", "declared_type"},
		keyExpr:      "c.qualified_name",
		categoryExpr: "''",
		kindExpr:     "''",
		tagsExpr:     "'[]'",
	},
}

// writeProjection replaces the indexed text of one row. It runs in the same
// transaction as the content write so the index is never stale.
func writeProjection(ctx context.Context, q querier, table Table, id int64, values ...string) error {
	spec := tableSpecs[table]
	if len(values) != len(spec.ftsCols) {
		return fmt.Errorf("projection for %s expects %d values, got %d", table, len(spec.ftsCols), len(values))
	}
	if err := deleteProjection(ctx, q, table, id); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)+1), ", ")
	query := fmt.Sprintf("INSERT INTO %s (rowid, %s) VALUES (%s)",
		spec.fts, strings.Join(spec.ftsCols, ", "), placeholders)
	args := make([]interface{}, 0, len(values)+1)
	args = append(args, id)
	for _, v := range values {
		args = append(args, v)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to index %s row %d: %w", table, id, err)
	}
	return nil
}

func deleteProjection(ctx context.Context, q querier, table Table, id int64) error {
	spec := tableSpecs[table]
	if _, err := q.ExecContext(ctx, "DELETE FROM "+spec.fts+" WHERE rowid = ?", id); err != nil {
		return fmt.Errorf("failed to remove %s row %d from index: %w", table, id, err)
	}
	return nil
}

// SearchFilters narrows a table search. Category applies to Notes only.
// Only Notes carry tags, so a Tags filter matches nothing in other tables.
type SearchFilters struct {
	Subsystem string
	Category  string
	Tags      []string
}

// SearchHit is one ranked match
type SearchHit struct {
	Table     Table    `json:"table"`
	ID        int64    `json:"id"`
	Key       string   `json:"key"`
	Subsystem string   `json:"subsystem"`
	Category  string   `json:"category,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Score     float64  `json:"score"`
}

// SearchPage is one page of hits plus the match count before paging
type SearchPage struct {
	Table        Table       `json:"table"`
	Hits         []SearchHit `json:"results"`
	TotalMatches int         `json:"total_matches"`
	Limit        int         `json:"limit"`
	Offset       int         `json:"offset"`
}

// DefaultSearchLimit is used when a search asks for a non-positive limit
const DefaultSearchLimit = 10

// BuildMatchQuery turns free text into an FTS5 expression: each term is
// quoted, prefix-matched and OR-ed. Terms without letters or digits are
// dropped. An empty result means nothing is searchable.
func BuildMatchQuery(query string) string {
	var terms []string
	for _, raw := range strings.Fields(query) {
		term := strings.ReplaceAll(raw, `"`, "")
		if !strings.ContainsFunc(term, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		terms = append(terms, `"`+term+`"*`)
	}
	return strings.Join(terms, " OR ")
}

// SearchTable runs a ranked match against one table. Hits are ordered by
// bm25 rank then id, so paging is stable between identical calls.
func (s *SQLiteStorage) SearchTable(ctx context.Context, table Table, query string, filters SearchFilters, limit, offset int) (*SearchPage, error) {
	spec, ok := tableSpecs[table]
	if !ok {
		return nil, &ValidationError{Field: "tables", Value: string(table), Reason: "unknown table"}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if offset < 0 {
		return nil, &ValidationError{Field: "offset", Reason: "must not be negative"}
	}

	page := &SearchPage{Table: table, Hits: []SearchHit{}, Limit: limit, Offset: offset}
	match := BuildMatchQuery(query)
	if match == "" {
		return page, nil
	}
	tags := merge.NormalizeTags(filters.Tags)
	if table != TableNotes && len(tags) > 0 {
		return page, nil
	}

	where := []string{spec.fts + " MATCH ?"}
	args := []interface{}{match}
	if filters.Subsystem != "" {
		where = append(where, "c.subsystem = ?")
		args = append(args, filters.Subsystem)
	}
	if table == TableNotes && filters.Category != "" {
		where = append(where, "c.category = ?")
		args = append(args, filters.Category)
	}
	from := fmt.Sprintf("FROM %s JOIN %s c ON c.id = %s.rowid WHERE %s",
		spec.fts, spec.content, spec.fts, strings.Join(where, " AND "))
	selectSQL := fmt.Sprintf("SELECT c.id, %s, c.subsystem, %s, %s, c.summary, %s, bm25(%s) AS rank %s ORDER BY rank, c.id",
		spec.keyExpr, spec.categoryExpr, spec.kindExpr, spec.tagsExpr, spec.fts, from)

	if len(tags) > 0 {
		// Tags are not indexed: filter the full rank-ordered list, then page
		hits, err := s.queryHits(ctx, table, selectSQL, args)
		if err != nil {
			return nil, err
		}
		filtered := hits[:0]
		for _, h := range hits {
			if hasAllTags(h.Tags, tags) {
				filtered = append(filtered, h)
			}
		}
		page.TotalMatches = len(filtered)
		page.Hits = slicePage(filtered, limit, offset)
		return page, nil
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) "+from, args...).Scan(&page.TotalMatches); err != nil {
		return nil, fmt.Errorf("failed to count %s matches: %w", table, err)
	}
	hits, err := s.queryHits(ctx, table, selectSQL+" LIMIT ? OFFSET ?", append(args, limit, offset))
	if err != nil {
		return nil, err
	}
	page.Hits = hits
	return page, nil
}

func (s *SQLiteStorage) queryHits(ctx context.Context, table Table, query string, args []interface{}) ([]SearchHit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	hits := []SearchHit{}
	for rows.Next() {
		var (
			h       SearchHit
			rawTags string
			rank    float64
		)
		if err := rows.Scan(&h.ID, &h.Key, &h.Subsystem, &h.Category, &h.Kind, &h.Summary, &rawTags, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan %s match: %w", table, err)
		}
		var decodeErrs []string
		h.Tags = decodeList[string](s, string(table), h.ID, "tags", rawTags, &decodeErrs)
		if len(h.Tags) == 0 {
			h.Tags = nil
		}
		h.Table = table
		h.Score = -rank
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func hasAllTags(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func slicePage[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T{}, items[offset:end]...)
}
