package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dshills/uekb-mcp/internal/merge"
	"github.com/dshills/uekb-mcp/pkg/types"
)

const noteColumns = `id, title, subsystem, category, summary, content, source_files, tags, related_entries, created_at, updated_at`

// CreateNote validates and inserts a Note, indexing it in the same
// transaction. A taken title yields *DuplicateTitleError.
func (s *SQLiteStorage) CreateNote(ctx context.Context, note *types.Note) (*types.Note, error) {
	if err := note.Validate(); err != nil {
		return nil, err
	}
	n := *note
	prepareNote(&n)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkTitleFree(ctx, tx, n.Title, 0); err != nil {
			return err
		}

		now, stamp := s.timestamp()
		sourceFiles, tags, related, err := encodeNoteLists(&n)
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO notes (title, subsystem, category, summary, content, source_files, tags, related_entries, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.Title, n.Subsystem, n.Category, n.Summary, n.Content,
			sourceFiles, tags, related, stamp, stamp)
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}
		if n.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		n.CreatedAt, n.UpdatedAt = now, now
		return writeProjection(ctx, tx, TableNotes, n.ID, n.Title, n.Summary, n.Content)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNote returns the Note with the given id or ErrNotFound
func (s *SQLiteStorage) GetNote(ctx context.Context, id int64) (*types.Note, error) {
	return s.getNoteWithQuerier(ctx, s.db, id)
}

func (s *SQLiteStorage) getNoteWithQuerier(ctx context.Context, q querier, id int64) (*types.Note, error) {
	row := q.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	n, err := s.scanNote(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

// UpdateNote changes only the supplied fields of a Note
func (s *SQLiteStorage) UpdateNote(ctx context.Context, id int64, update *types.NoteUpdate) (*types.Note, error) {
	if update == nil || update.Empty() {
		return nil, &ValidationError{Field: "update", Reason: "no fields supplied"}
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var n *types.Note
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = s.getNoteWithQuerier(ctx, tx, id)
		if err != nil {
			return err
		}
		update.Apply(n)
		prepareNote(n)
		if update.Title != nil {
			if err := checkTitleFree(ctx, tx, n.Title, id); err != nil {
				return err
			}
		}

		now, stamp := s.timestamp()
		sourceFiles, tags, related, err := encodeNoteLists(n)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE notes
			SET title = ?, subsystem = ?, category = ?, summary = ?, content = ?,
			    source_files = ?, tags = ?, related_entries = ?, updated_at = ?
			WHERE id = ?`,
			n.Title, n.Subsystem, n.Category, n.Summary, n.Content,
			sourceFiles, tags, related, stamp, id)
		if err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}
		n.UpdatedAt = now
		n.DecodeErrors = nil
		return writeProjection(ctx, tx, TableNotes, id, n.Title, n.Summary, n.Content)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNote removes a Note. Entities that referenced it keep their rows
// and lose only the reference, in the same transaction.
func (s *SQLiteStorage) DeleteNote(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var found int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM notes WHERE id = ?", id).Scan(&found)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get note: %w", err)
		}

		for _, table := range []string{"types", "callables", "fields"} {
			if _, err := tx.ExecContext(ctx, "UPDATE "+table+" SET note_id = NULL WHERE note_id = ?", id); err != nil {
				return fmt.Errorf("failed to clear note references on %s: %w", table, err)
			}
		}
		if err := deleteProjection(ctx, tx, TableNotes, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		return nil
	})
}

// ListNotes returns Notes ordered by most recently updated
func (s *SQLiteStorage) ListNotes(ctx context.Context, filter NoteFilter) (*NoteList, error) {
	if filter.Subsystem != "" && !types.ValidSubsystem(filter.Subsystem) {
		return nil, &ValidationError{Field: "subsystem", Value: filter.Subsystem, Reason: "unknown subsystem"}
	}
	if filter.Category != "" && !types.ValidCategory(filter.Category) {
		return nil, &ValidationError{Field: "category", Value: filter.Category, Reason: "unknown category"}
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		return nil, &ValidationError{Field: "offset", Reason: "must not be negative"}
	}

	var where []string
	var args []interface{}
	if filter.Subsystem != "" {
		where = append(where, "subsystem = ?")
		args = append(args, filter.Subsystem)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	list := &NoteList{Notes: []*types.Note{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes"+clause, args...).Scan(&list.Total); err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes"+clause+" ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		n, err := s.scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		list.Notes = append(list.Notes, n)
	}
	return list, rows.Err()
}

func (s *SQLiteStorage) scanNote(row rowScanner) (*types.Note, error) {
	var (
		n                          types.Note
		sourceFiles, tags, related string
		createdAt, updatedAt       string
	)
	err := row.Scan(&n.ID, &n.Title, &n.Subsystem, &n.Category, &n.Summary, &n.Content,
		&sourceFiles, &tags, &related, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	n.SourceFiles = decodeList[string](s, "notes", n.ID, "source_files", sourceFiles, &n.DecodeErrors)
	n.Tags = decodeList[string](s, "notes", n.ID, "tags", tags, &n.DecodeErrors)
	n.RelatedNotes = decodeList[int64](s, "notes", n.ID, "related_entries", related, &n.DecodeErrors)
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	return &n, nil
}

// prepareNote trims the title, normalizes tags and replaces nil lists
func prepareNote(n *types.Note) {
	n.Title = strings.TrimSpace(n.Title)
	n.Tags = merge.NormalizeTags(n.Tags)
	if n.SourceFiles == nil {
		n.SourceFiles = []string{}
	}
	if n.RelatedNotes == nil {
		n.RelatedNotes = []int64{}
	}
}

func encodeNoteLists(n *types.Note) (sourceFiles, tags, related string, err error) {
	if sourceFiles, err = encodeList(n.SourceFiles); err != nil {
		return
	}
	if tags, err = encodeList(n.Tags); err != nil {
		return
	}
	related, err = encodeList(n.RelatedNotes)
	return
}

// checkTitleFree fails with *DuplicateTitleError when another Note
// (not selfID) already uses title.
func checkTitleFree(ctx context.Context, q querier, title string, selfID int64) error {
	var existing int64
	err := q.QueryRowContext(ctx, "SELECT id FROM notes WHERE title = ? AND id != ?", title, selfID).Scan(&existing)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check title: %w", err)
	}
	return &DuplicateTitleError{Title: title, ExistingID: existing}
}
