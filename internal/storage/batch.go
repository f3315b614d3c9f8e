package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dshills/uekb-mcp/pkg/types"
)

// BatchKind names the entity kind of one batch item
type BatchKind string

const (
	BatchType     BatchKind = "type"
	BatchCallable BatchKind = "callable"
	BatchField    BatchKind = "field"
)

// BatchItem is one entity in an UpsertBatch call. Exactly the payload
// matching Kind must be set.
type BatchItem struct {
	Kind     BatchKind
	Type     *types.TypeEntity
	Callable *types.CallableEntity
	Field    *types.FieldEntity
}

// BatchItemResult reports one saved item
type BatchItemResult struct {
	Index   int       `json:"index"`
	Kind    BatchKind `json:"kind"`
	Key     string    `json:"key"`
	Outcome Outcome   `json:"status"`
}

// BatchItemError reports one rejected item. Siblings are unaffected.
type BatchItemError struct {
	Index  int       `json:"index"`
	Kind   BatchKind `json:"kind"`
	Key    string    `json:"key,omitempty"`
	Field  string    `json:"field,omitempty"`
	Reason string    `json:"reason"`
}

func (e BatchItemError) Error() string {
	return fmt.Sprintf("item %d (%s %s): %s", e.Index, e.Kind, e.Key, e.Reason)
}

// BatchResult collects the outcome of every item
type BatchResult struct {
	Saved   int               `json:"saved"`
	Results []BatchItemResult `json:"results"`
	Errors  []BatchItemError  `json:"errors"`
}

// UpsertBatch saves items in one transaction. Each item runs inside its
// own savepoint: a validation failure rolls back only that item and is
// reported by index, while any other error aborts the whole batch.
func (s *SQLiteStorage) UpsertBatch(ctx context.Context, items []BatchItem) (*BatchResult, error) {
	result := &BatchResult{Results: []BatchItemResult{}, Errors: []BatchItemError{}}
	if len(items) == 0 {
		return result, nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		*result = BatchResult{Results: []BatchItemResult{}, Errors: []BatchItemError{}}
		for i, item := range items {
			savepoint := fmt.Sprintf("batch_item_%d", i)
			if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
				return fmt.Errorf("failed to open savepoint for item %d: %w", i, err)
			}

			key, outcome, err := s.applyBatchItem(ctx, tx, item)
			if err != nil {
				ve, ok := asValidationError(err)
				if !ok {
					return fmt.Errorf("batch item %d: %w", i, err)
				}
				if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO "+savepoint); rbErr != nil {
					return fmt.Errorf("failed to roll back item %d: %w", i, rbErr)
				}
				if _, relErr := tx.ExecContext(ctx, "RELEASE "+savepoint); relErr != nil {
					return fmt.Errorf("failed to release savepoint for item %d: %w", i, relErr)
				}
				result.Errors = append(result.Errors, BatchItemError{
					Index:  i,
					Kind:   item.Kind,
					Key:    key,
					Field:  ve.Field,
					Reason: ve.Error(),
				})
				continue
			}

			if _, err := tx.ExecContext(ctx, "RELEASE "+savepoint); err != nil {
				return fmt.Errorf("failed to release savepoint for item %d: %w", i, err)
			}
			result.Saved++
			result.Results = append(result.Results, BatchItemResult{Index: i, Kind: item.Kind, Key: key, Outcome: outcome})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyBatchItem validates and saves one item, returning its key
func (s *SQLiteStorage) applyBatchItem(ctx context.Context, q querier, item BatchItem) (string, Outcome, error) {
	switch item.Kind {
	case BatchType:
		if item.Type == nil {
			return "", "", &ValidationError{Field: "type", Reason: "payload is required"}
		}
		key := item.Type.Name
		if err := item.Type.Validate(); err != nil {
			return key, "", err
		}
		_, outcome, err := s.upsertTypeWithQuerier(ctx, q, item.Type)
		return key, outcome, err
	case BatchCallable:
		if item.Callable == nil {
			return "", "", &ValidationError{Field: "callable", Reason: "payload is required"}
		}
		key := item.Callable.QualifiedKey()
		if err := item.Callable.Validate(); err != nil {
			return key, "", err
		}
		_, outcome, err := s.upsertCallableWithQuerier(ctx, q, item.Callable)
		return key, outcome, err
	case BatchField:
		if item.Field == nil {
			return "", "", &ValidationError{Field: "field", Reason: "payload is required"}
		}
		key := item.Field.QualifiedKey()
		if err := item.Field.Validate(); err != nil {
			return key, "", err
		}
		_, outcome, err := s.upsertFieldWithQuerier(ctx, q, item.Field)
		return key, outcome, err
	default:
		return "", "", &ValidationError{Field: "kind", Value: string(item.Kind), Reason: "must be one of: type, callable, field"}
	}
}
