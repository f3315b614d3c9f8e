package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dshills/uekb-mcp/pkg/types"
)

// maxPendingTypes caps the stub-depth names reported by CoverageStatus
const maxPendingTypes = 50

// LogCoverage appends one analyzed-file record
func (s *SQLiteStorage) LogCoverage(ctx context.Context, entry *types.CoverageEntry) (*types.CoverageEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	e := *entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now, stamp := s.timestamp()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO coverage_log (file_path, module, subsystem, depth, types_found, callables_found, fields_found, notes, analyzed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.FilePath, e.Module, e.Subsystem, string(e.Depth),
			e.TypesFound, e.CallablesFound, e.FieldsFound, e.Notes, stamp)
		if err != nil {
			return fmt.Errorf("failed to log coverage: %w", err)
		}
		if e.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		e.AnalyzedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CoverageStatus reports entity totals, types by depth and the coverage
// log grouped by module, subsystem or depth.
func (s *SQLiteStorage) CoverageStatus(ctx context.Context, query CoverageQuery) (*CoverageReport, error) {
	column, err := coverageGroupColumn(query.GroupBy)
	if err != nil {
		return nil, err
	}

	report := &CoverageReport{
		GroupBy:      column,
		ByDepth:      map[string]int{},
		Breakdown:    map[string]map[string]int{},
		PendingTypes: []string{},
	}

	counts := []struct {
		table string
		dst   *int
	}{
		{"types", &report.TotalTypes},
		{"callables", &report.TotalCallables},
		{"fields", &report.TotalFields},
		{"coverage_log", &report.FilesAnalyzed},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	if err := s.groupCounts(ctx, "SELECT depth, COUNT(*) FROM types GROUP BY depth", nil, report.ByDepth); err != nil {
		return nil, err
	}

	var where []string
	var args []interface{}
	if query.Module != "" {
		where = append(where, "module = ?")
		args = append(args, query.Module)
	}
	if query.Subsystem != "" {
		where = append(where, "subsystem = ?")
		args = append(args, query.Subsystem)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s, depth, COUNT(*) FROM coverage_log%s GROUP BY %s, depth ORDER BY %s",
		column, clause, column, column), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group coverage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var group, depth string
		var n int
		if err := rows.Scan(&group, &depth, &n); err != nil {
			return nil, fmt.Errorf("failed to scan coverage group: %w", err)
		}
		if report.Breakdown[group] == nil {
			report.Breakdown[group] = map[string]int{}
		}
		report.Breakdown[group][depth] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	pending, err := s.db.QueryContext(ctx,
		"SELECT name FROM types WHERE depth = ? ORDER BY name LIMIT ?", string(types.DepthStub), maxPendingTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending types: %w", err)
	}
	defer func() { _ = pending.Close() }()
	for pending.Next() {
		var name string
		if err := pending.Scan(&name); err != nil {
			return nil, err
		}
		report.PendingTypes = append(report.PendingTypes, name)
	}
	return report, pending.Err()
}

func coverageGroupColumn(groupBy string) (string, error) {
	switch groupBy {
	case "", "module":
		return "module", nil
	case "subsystem":
		return "subsystem", nil
	case "depth":
		return "depth", nil
	default:
		return "", &ValidationError{Field: "group_by", Value: groupBy, Reason: "must be one of: module, subsystem, depth"}
	}
}

// Stats returns row counts per table and the grouped Note breakdowns
func (s *SQLiteStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		BySubsystem:  map[string]int{},
		ByCategory:   map[string]int{},
		TypesByDepth: map[string]int{},
	}

	counts := []struct {
		table string
		dst   *int
	}{
		{"notes", &stats.Notes},
		{"types", &stats.Types},
		{"callables", &stats.Callables},
		{"fields", &stats.Fields},
		{"coverage_log", &stats.FilesAnalyzed},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	groups := []struct {
		query string
		dst   map[string]int
	}{
		{"SELECT subsystem, COUNT(*) FROM notes GROUP BY subsystem", stats.BySubsystem},
		{"SELECT category, COUNT(*) FROM notes GROUP BY category", stats.ByCategory},
		{"SELECT depth, COUNT(*) FROM types GROUP BY depth", stats.TypesByDepth},
	}
	for _, g := range groups {
		if err := s.groupCounts(ctx, g.query, nil, g.dst); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *SQLiteStorage) groupCounts(ctx context.Context, query string, args []interface{}, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to group counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan group count: %w", err)
		}
		dst[key] = n
	}
	return rows.Err()
}
