package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dshills/uekb-mcp/internal/merge"
	"github.com/dshills/uekb-mcp/pkg/types"
)

// Type operations

const typeColumns = `id, name, kind, parent_type, outer_type, subsystem, module, header_path,
	specifiers, doc_comment, summary, inheritance_chain, known_children, interfaces,
	related_types, key_methods, key_properties, key_delegates, lifecycle_order, depth,
	note_id, source_line_count, created_at, updated_at`

// UpsertType inserts a new Type-entity or merges into the existing one:
// arrays union and depth never goes down. Returns the stored record.
func (s *SQLiteStorage) UpsertType(ctx context.Context, t *types.TypeEntity) (*types.TypeEntity, Outcome, error) {
	if err := t.Validate(); err != nil {
		return nil, "", err
	}
	var (
		saved   *types.TypeEntity
		outcome Outcome
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		saved, outcome, err = s.upsertTypeWithQuerier(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return saved, outcome, nil
}

func (s *SQLiteStorage) upsertTypeWithQuerier(ctx context.Context, q querier, incoming *types.TypeEntity) (*types.TypeEntity, Outcome, error) {
	if err := noteExists(ctx, q, incoming.NoteID); err != nil {
		return nil, "", err
	}
	in := *incoming
	in.Name = strings.TrimSpace(in.Name)

	existing, err := s.getTypeWithQuerier(ctx, q, in.Name)
	if err != nil && err != ErrNotFound {
		return nil, "", err
	}

	now, stamp := s.timestamp()
	var t *types.TypeEntity
	outcome := OutcomeUpdated
	if existing == nil {
		outcome = OutcomeCreated
		t = merge.NewType(&in)
		t.CreatedAt = now
	} else {
		t = merge.MergeType(existing, &in)
		t.DecodeErrors = nil
	}
	t.UpdatedAt = now

	lists := make([]string, 0, 7)
	for _, v := range [][]string{t.InheritanceChain, t.KnownChildren, t.Interfaces, t.RelatedTypes} {
		encoded, err := encodeList(v)
		if err != nil {
			return nil, "", err
		}
		lists = append(lists, encoded)
	}
	for _, v := range [][]types.Member{t.KeyMethods, t.KeyProperties, t.KeyDelegates} {
		encoded, err := encodeList(v)
		if err != nil {
			return nil, "", err
		}
		lists = append(lists, encoded)
	}

	if existing == nil {
		result, err := q.ExecContext(ctx, `
			INSERT INTO types (name, kind, parent_type, outer_type, subsystem, module, header_path,
				specifiers, doc_comment, summary, inheritance_chain, known_children, interfaces,
				related_types, key_methods, key_properties, key_delegates, lifecycle_order, depth,
				note_id, source_line_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Name, t.Kind, t.ParentType, t.OuterType, t.Subsystem, t.Module, t.HeaderPath,
			t.Specifiers, t.DocComment, t.Summary, lists[0], lists[1], lists[2],
			lists[3], lists[4], lists[5], lists[6], t.LifecycleOrder, string(t.Depth),
			nullableID(t.NoteID), t.SourceLineCount, stamp, stamp)
		if err != nil {
			return nil, "", fmt.Errorf("failed to insert type: %w", err)
		}
		if t.ID, err = result.LastInsertId(); err != nil {
			return nil, "", err
		}
	} else {
		_, err := q.ExecContext(ctx, `
			UPDATE types
			SET kind = ?, parent_type = ?, outer_type = ?, subsystem = ?, module = ?, header_path = ?,
				specifiers = ?, doc_comment = ?, summary = ?, inheritance_chain = ?, known_children = ?,
				interfaces = ?, related_types = ?, key_methods = ?, key_properties = ?, key_delegates = ?,
				lifecycle_order = ?, depth = ?, note_id = ?, source_line_count = ?, updated_at = ?
			WHERE id = ?`,
			t.Kind, t.ParentType, t.OuterType, t.Subsystem, t.Module, t.HeaderPath,
			t.Specifiers, t.DocComment, t.Summary, lists[0], lists[1],
			lists[2], lists[3], lists[4], lists[5], lists[6],
			t.LifecycleOrder, string(t.Depth), nullableID(t.NoteID), t.SourceLineCount, stamp,
			t.ID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to update type: %w", err)
		}
	}

	if err := writeProjection(ctx, q, TableTypes, t.ID,
		t.Name, t.Summary, t.DocComment, t.Specifiers, t.LifecycleOrder); err != nil {
		return nil, "", err
	}
	return t, outcome, nil
}

// GetType returns the Type-entity with the given name or ErrNotFound
func (s *SQLiteStorage) GetType(ctx context.Context, name string) (*types.TypeEntity, error) {
	return s.getTypeWithQuerier(ctx, s.db, strings.TrimSpace(name))
}

func (s *SQLiteStorage) getTypeWithQuerier(ctx context.Context, q querier, name string) (*types.TypeEntity, error) {
	row := q.QueryRowContext(ctx, "SELECT "+typeColumns+" FROM types WHERE name = ?", name)
	t, err := s.scanType(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get type: %w", err)
	}
	return t, nil
}

// ListChildTypes returns the names of types whose parent_type is parent
func (s *SQLiteStorage) ListChildTypes(ctx context.Context, parent string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM types WHERE parent_type = ? ORDER BY name", parent)
	if err != nil {
		return nil, fmt.Errorf("failed to list child types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) scanType(row rowScanner) (*types.TypeEntity, error) {
	var (
		t                                          types.TypeEntity
		depth, createdAt, updatedAt                string
		inheritance, children, interfaces, related string
		methods, properties, delegates             string
		noteID                                     sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Name, &t.Kind, &t.ParentType, &t.OuterType, &t.Subsystem,
		&t.Module, &t.HeaderPath, &t.Specifiers, &t.DocComment, &t.Summary,
		&inheritance, &children, &interfaces, &related, &methods, &properties, &delegates,
		&t.LifecycleOrder, &depth, &noteID, &t.SourceLineCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.InheritanceChain = decodeList[string](s, "types", t.ID, "inheritance_chain", inheritance, &t.DecodeErrors)
	t.KnownChildren = decodeList[string](s, "types", t.ID, "known_children", children, &t.DecodeErrors)
	t.Interfaces = decodeList[string](s, "types", t.ID, "interfaces", interfaces, &t.DecodeErrors)
	t.RelatedTypes = decodeList[string](s, "types", t.ID, "related_types", related, &t.DecodeErrors)
	t.KeyMethods = decodeList[types.Member](s, "types", t.ID, "key_methods", methods, &t.DecodeErrors)
	t.KeyProperties = decodeList[types.Member](s, "types", t.ID, "key_properties", properties, &t.DecodeErrors)
	t.KeyDelegates = decodeList[types.Member](s, "types", t.ID, "key_delegates", delegates, &t.DecodeErrors)
	t.Depth = types.Depth(depth)
	t.NoteID = idPtr(noteID)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

// Callable operations

const callableColumns = `id, qualified_name, name, owner_type, subsystem, return_type, parameters,
	signature, specifiers, is_virtual, is_const, is_static, is_blueprint_callable,
	is_blueprint_event, is_rpc, rpc_type, doc_comment, summary, call_context, call_order,
	calls_into, called_by, note_id, created_at, updated_at`

// UpsertCallable inserts a Callable-entity or overwrites every supplied
// field of the existing one. Call edges are replaced, never unioned.
func (s *SQLiteStorage) UpsertCallable(ctx context.Context, c *types.CallableEntity) (*types.CallableEntity, Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, "", err
	}
	var (
		saved   *types.CallableEntity
		outcome Outcome
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		saved, outcome, err = s.upsertCallableWithQuerier(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return saved, outcome, nil
}

func (s *SQLiteStorage) upsertCallableWithQuerier(ctx context.Context, q querier, incoming *types.CallableEntity) (*types.CallableEntity, Outcome, error) {
	if err := noteExists(ctx, q, incoming.NoteID); err != nil {
		return nil, "", err
	}
	key := incoming.QualifiedKey()
	existing, err := s.getCallableWithQuerier(ctx, q, key)
	if err != nil && err != ErrNotFound {
		return nil, "", err
	}

	now, stamp := s.timestamp()
	var c *types.CallableEntity
	outcome := OutcomeUpdated
	if existing == nil {
		outcome = OutcomeCreated
		c = merge.NewCallable(incoming)
		if c.Name == "" {
			c.Name = key
		}
		c.CreatedAt = now
	} else {
		c = merge.OverlayCallable(existing, incoming)
		c.DecodeErrors = nil
	}
	c.UpdatedAt = now

	params, err := encodeList(c.Parameters)
	if err != nil {
		return nil, "", err
	}
	callsInto, err := encodeList(c.CallsInto)
	if err != nil {
		return nil, "", err
	}
	calledBy, err := encodeList(c.CalledBy)
	if err != nil {
		return nil, "", err
	}

	if existing == nil {
		result, err := q.ExecContext(ctx, `
			INSERT INTO callables (qualified_name, name, owner_type, subsystem, return_type, parameters,
				signature, specifiers, is_virtual, is_const, is_static, is_blueprint_callable,
				is_blueprint_event, is_rpc, rpc_type, doc_comment, summary, call_context, call_order,
				calls_into, called_by, note_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.QualifiedName, c.Name, c.OwnerType, c.Subsystem, c.ReturnType, params,
			c.Signature, c.Specifiers, boolInt(c.IsVirtual), boolInt(c.IsConst), boolInt(c.IsStatic),
			boolInt(c.IsBlueprintCallable), boolInt(c.IsBlueprintEvent), boolInt(c.IsRPC), c.RPCType,
			c.DocComment, c.Summary, c.CallContext, c.CallOrder, callsInto, calledBy,
			nullableID(c.NoteID), stamp, stamp)
		if err != nil {
			return nil, "", fmt.Errorf("failed to insert callable: %w", err)
		}
		if c.ID, err = result.LastInsertId(); err != nil {
			return nil, "", err
		}
	} else {
		_, err := q.ExecContext(ctx, `
			UPDATE callables
			SET name = ?, owner_type = ?, subsystem = ?, return_type = ?, parameters = ?,
				signature = ?, specifiers = ?, is_virtual = ?, is_const = ?, is_static = ?,
				is_blueprint_callable = ?, is_blueprint_event = ?, is_rpc = ?, rpc_type = ?,
				doc_comment = ?, summary = ?, call_context = ?, call_order = ?,
				calls_into = ?, called_by = ?, note_id = ?, updated_at = ?
			WHERE id = ?`,
			c.Name, c.OwnerType, c.Subsystem, c.ReturnType, params,
			c.Signature, c.Specifiers, boolInt(c.IsVirtual), boolInt(c.IsConst), boolInt(c.IsStatic),
			boolInt(c.IsBlueprintCallable), boolInt(c.IsBlueprintEvent), boolInt(c.IsRPC), c.RPCType,
			c.DocComment, c.Summary, c.CallContext, c.CallOrder,
			callsInto, calledBy, nullableID(c.NoteID), stamp,
			c.ID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to update callable: %w", err)
		}
	}

	if err := writeProjection(ctx, q, TableCallables, c.ID,
		c.QualifiedName, c.Summary, c.DocComment, c.Specifiers, c.Signature); err != nil {
		return nil, "", err
	}
	return c, outcome, nil
}

// GetCallable returns the Callable-entity with the given qualified name
func (s *SQLiteStorage) GetCallable(ctx context.Context, qualifiedName string) (*types.CallableEntity, error) {
	return s.getCallableWithQuerier(ctx, s.db, strings.TrimSpace(qualifiedName))
}

// FindCallable looks a Callable-entity up by qualified name, falling back
// to the first one whose plain name matches.
func (s *SQLiteStorage) FindCallable(ctx context.Context, name string) (*types.CallableEntity, error) {
	name = strings.TrimSpace(name)
	c, err := s.getCallableWithQuerier(ctx, s.db, name)
	if err != ErrNotFound {
		return c, err
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+callableColumns+" FROM callables WHERE name = ? ORDER BY id LIMIT 1", name)
	c, err = s.scanCallable(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find callable: %w", err)
	}
	return c, nil
}

func (s *SQLiteStorage) getCallableWithQuerier(ctx context.Context, q querier, qualifiedName string) (*types.CallableEntity, error) {
	row := q.QueryRowContext(ctx, "SELECT "+callableColumns+" FROM callables WHERE qualified_name = ?", qualifiedName)
	c, err := s.scanCallable(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get callable: %w", err)
	}
	return c, nil
}

// ListCallablesByOwner returns the callables owned by a type, by name
func (s *SQLiteStorage) ListCallablesByOwner(ctx context.Context, owner string) ([]*types.CallableEntity, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+callableColumns+" FROM callables WHERE owner_type = ? ORDER BY name, id", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list callables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*types.CallableEntity{}
	for rows.Next() {
		c, err := s.scanCallable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan callable: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) scanCallable(row rowScanner) (*types.CallableEntity, error) {
	var (
		c                                    types.CallableEntity
		params, callsInto, calledBy          string
		virtual, isConst, static, bpCallable int
		bpEvent, rpc                         int
		noteID                               sql.NullInt64
		createdAt, updatedAt                 string
	)
	err := row.Scan(&c.ID, &c.QualifiedName, &c.Name, &c.OwnerType, &c.Subsystem, &c.ReturnType, &params,
		&c.Signature, &c.Specifiers, &virtual, &isConst, &static, &bpCallable,
		&bpEvent, &rpc, &c.RPCType, &c.DocComment, &c.Summary, &c.CallContext, &c.CallOrder,
		&callsInto, &calledBy, &noteID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.Parameters = decodeList[types.Parameter](s, "callables", c.ID, "parameters", params, &c.DecodeErrors)
	c.CallsInto = decodeList[string](s, "callables", c.ID, "calls_into", callsInto, &c.DecodeErrors)
	c.CalledBy = decodeList[string](s, "callables", c.ID, "called_by", calledBy, &c.DecodeErrors)
	c.IsVirtual = boolPtr(virtual)
	c.IsConst = boolPtr(isConst)
	c.IsStatic = boolPtr(static)
	c.IsBlueprintCallable = boolPtr(bpCallable)
	c.IsBlueprintEvent = boolPtr(bpEvent)
	c.IsRPC = boolPtr(rpc)
	c.NoteID = idPtr(noteID)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// Field operations

const fieldColumns = `id, qualified_name, name, owner_type, subsystem, declared_type, default_value,
	specifiers, is_replicated, replicated_using, is_blueprint_visible, is_edit_anywhere,
	is_config, doc_comment, summary, note_id, created_at, updated_at`

// UpsertField inserts a Field-entity or overwrites every supplied field
func (s *SQLiteStorage) UpsertField(ctx context.Context, f *types.FieldEntity) (*types.FieldEntity, Outcome, error) {
	if err := f.Validate(); err != nil {
		return nil, "", err
	}
	var (
		saved   *types.FieldEntity
		outcome Outcome
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		saved, outcome, err = s.upsertFieldWithQuerier(ctx, tx, f)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return saved, outcome, nil
}

func (s *SQLiteStorage) upsertFieldWithQuerier(ctx context.Context, q querier, incoming *types.FieldEntity) (*types.FieldEntity, Outcome, error) {
	if err := noteExists(ctx, q, incoming.NoteID); err != nil {
		return nil, "", err
	}
	existing, err := s.getFieldWithQuerier(ctx, q, incoming.QualifiedKey())
	if err != nil && err != ErrNotFound {
		return nil, "", err
	}

	now, stamp := s.timestamp()
	var f *types.FieldEntity
	outcome := OutcomeUpdated
	if existing == nil {
		outcome = OutcomeCreated
		f = merge.NewField(incoming)
		f.CreatedAt = now
	} else {
		f = merge.OverlayField(existing, incoming)
	}
	f.UpdatedAt = now

	if existing == nil {
		result, err := q.ExecContext(ctx, `
			INSERT INTO fields (qualified_name, name, owner_type, subsystem, declared_type, default_value,
				specifiers, is_replicated, replicated_using, is_blueprint_visible, is_edit_anywhere,
				is_config, doc_comment, summary, note_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.QualifiedName, f.Name, f.OwnerType, f.Subsystem, f.DeclaredType, f.DefaultValue,
			f.Specifiers, boolInt(f.IsReplicated), f.ReplicatedUsing, boolInt(f.IsBlueprintVisible),
			boolInt(f.IsEditAnywhere), boolInt(f.IsConfig), f.DocComment, f.Summary,
			nullableID(f.NoteID), stamp, stamp)
		if err != nil {
			return nil, "", fmt.Errorf("failed to insert field: %w", err)
		}
		if f.ID, err = result.LastInsertId(); err != nil {
			return nil, "", err
		}
	} else {
		_, err := q.ExecContext(ctx, `
			UPDATE fields
			SET name = ?, owner_type = ?, subsystem = ?, declared_type = ?, default_value = ?,
				specifiers = ?, is_replicated = ?, replicated_using = ?, is_blueprint_visible = ?,
				is_edit_anywhere = ?, is_config = ?, doc_comment = ?, summary = ?, note_id = ?,
				updated_at = ?
			WHERE id = ?`,
			f.Name, f.OwnerType, f.Subsystem, f.DeclaredType, f.DefaultValue,
			f.Specifiers, boolInt(f.IsReplicated), f.ReplicatedUsing, boolInt(f.IsBlueprintVisible),
			boolInt(f.IsEditAnywhere), boolInt(f.IsConfig), f.DocComment, f.Summary, nullableID(f.NoteID),
			stamp, f.ID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to update field: %w", err)
		}
	}

	if err := writeProjection(ctx, q, TableFields, f.ID,
		f.QualifiedName, f.Summary, f.DocComment, f.Specifiers, f.DeclaredType); err != nil {
		return nil, "", err
	}
	return f, outcome, nil
}

// GetField returns the Field-entity with the given qualified name
func (s *SQLiteStorage) GetField(ctx context.Context, qualifiedName string) (*types.FieldEntity, error) {
	return s.getFieldWithQuerier(ctx, s.db, strings.TrimSpace(qualifiedName))
}

func (s *SQLiteStorage) getFieldWithQuerier(ctx context.Context, q querier, qualifiedName string) (*types.FieldEntity, error) {
	row := q.QueryRowContext(ctx, "SELECT "+fieldColumns+" FROM fields WHERE qualified_name = ?", qualifiedName)
	f, err := scanField(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return f, nil
}

// ListFieldsByOwner returns the fields owned by a type, by name
func (s *SQLiteStorage) ListFieldsByOwner(ctx context.Context, owner string) ([]*types.FieldEntity, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+fieldColumns+" FROM fields WHERE owner_type = ? ORDER BY name, id", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*types.FieldEntity{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanField(row rowScanner) (*types.FieldEntity, error) {
	var (
		f                                         types.FieldEntity
		replicated, bpVisible, editAnywhere, conf int
		noteID                                    sql.NullInt64
		createdAt, updatedAt                      string
	)
	err := row.Scan(&f.ID, &f.QualifiedName, &f.Name, &f.OwnerType, &f.Subsystem, &f.DeclaredType,
		&f.DefaultValue, &f.Specifiers, &replicated, &f.ReplicatedUsing, &bpVisible, &editAnywhere,
		&conf, &f.DocComment, &f.Summary, &noteID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	f.IsReplicated = boolPtr(replicated)
	f.IsBlueprintVisible = boolPtr(bpVisible)
	f.IsEditAnywhere = boolPtr(editAnywhere)
	f.IsConfig = boolPtr(conf)
	f.NoteID = idPtr(noteID)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}
