package storage

import (
	"context"

	"github.com/dshills/uekb-mcp/pkg/types"
)

// ValidationError is re-exported so callers of this package can match it
// without importing pkg/types.
type ValidationError = types.ValidationError

// Storage defines the interface for persisting and querying knowledge records
type Storage interface {
	// Note operations
	CreateNote(ctx context.Context, note *types.Note) (*types.Note, error)
	GetNote(ctx context.Context, id int64) (*types.Note, error)
	UpdateNote(ctx context.Context, id int64, update *types.NoteUpdate) (*types.Note, error)
	DeleteNote(ctx context.Context, id int64) error
	ListNotes(ctx context.Context, filter NoteFilter) (*NoteList, error)

	// Entity operations
	UpsertType(ctx context.Context, t *types.TypeEntity) (*types.TypeEntity, Outcome, error)
	UpsertCallable(ctx context.Context, c *types.CallableEntity) (*types.CallableEntity, Outcome, error)
	UpsertField(ctx context.Context, f *types.FieldEntity) (*types.FieldEntity, Outcome, error)
	UpsertBatch(ctx context.Context, items []BatchItem) (*BatchResult, error)
	GetType(ctx context.Context, name string) (*types.TypeEntity, error)
	GetCallable(ctx context.Context, qualifiedName string) (*types.CallableEntity, error)
	FindCallable(ctx context.Context, name string) (*types.CallableEntity, error)
	GetField(ctx context.Context, qualifiedName string) (*types.FieldEntity, error)
	ListCallablesByOwner(ctx context.Context, owner string) ([]*types.CallableEntity, error)
	ListFieldsByOwner(ctx context.Context, owner string) ([]*types.FieldEntity, error)
	ListChildTypes(ctx context.Context, parent string) ([]string, error)

	// Coverage operations
	LogCoverage(ctx context.Context, entry *types.CoverageEntry) (*types.CoverageEntry, error)
	CoverageStatus(ctx context.Context, query CoverageQuery) (*CoverageReport, error)

	// Search operations
	SearchTable(ctx context.Context, table Table, query string, filters SearchFilters, limit, offset int) (*SearchPage, error)

	// Status operations
	Stats(ctx context.Context) (*Stats, error)
	Generation() uint64

	// Database operations
	Close() error
}

// Outcome reports whether an upsert inserted or merged
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// NoteFilter selects Notes for ListNotes
type NoteFilter struct {
	Subsystem string
	Category  string
	Limit     int
	Offset    int
}

// NoteList is one page of Notes plus the unpaginated count
type NoteList struct {
	Notes []*types.Note `json:"notes"`
	Total int           `json:"total"`
}

// CoverageQuery selects and groups the coverage breakdown
type CoverageQuery struct {
	GroupBy   string
	Module    string
	Subsystem string
}

// CoverageReport summarizes how much of the source tree has been analyzed
type CoverageReport struct {
	TotalTypes     int                       `json:"total_types"`
	TotalCallables int                       `json:"total_callables"`
	TotalFields    int                       `json:"total_fields"`
	FilesAnalyzed  int                       `json:"files_analyzed"`
	ByDepth        map[string]int            `json:"by_depth"`
	GroupBy        string                    `json:"group_by"`
	Breakdown      map[string]map[string]int `json:"breakdown"`
	PendingTypes   []string                  `json:"pending_types"`
}

// Stats holds row counts per table and the grouped Note breakdowns
type Stats struct {
	Notes         int            `json:"notes"`
	Types         int            `json:"types"`
	Callables     int            `json:"callables"`
	Fields        int            `json:"fields"`
	FilesAnalyzed int            `json:"files_analyzed"`
	BySubsystem   map[string]int `json:"notes_by_subsystem"`
	ByCategory    map[string]int `json:"notes_by_category"`
	TypesByDepth  map[string]int `json:"types_by_depth"`
}
