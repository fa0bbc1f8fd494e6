package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/rule"
)

// GetOrCreateRuleSetWrapper returns the wrapper bound to the category,
// creating one with an empty expression on first access. The operation is
// idempotent: repeated calls, from any user, never create a duplicate wrapper
// for the same category.
func (s *SQLiteStorage) GetOrCreateRuleSetWrapper(ctx context.Context, qualifiedName string, polarity model.Polarity) (*rule.RuleSetWrapper, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(qualifiedName, "qualifiedName"); err != nil {
		return nil, err
	}

	// The unique constraint on category_qualified_name makes the insert a
	// no-op when a wrapper already exists.
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_sets (category_qualified_name, polarity)
		VALUES (?, ?)
		ON CONFLICT(category_qualified_name) DO NOTHING`,
		qualifiedName, string(polarity),
	); err != nil {
		return nil, fmt.Errorf("failed to create rule set wrapper: %w", err)
	}

	return s.GetRuleSetWrapper(ctx, qualifiedName)
}

// GetRuleSetWrapper returns the wrapper for a category, or nil when none
// exists.
func (s *SQLiteStorage) GetRuleSetWrapper(ctx context.Context, qualifiedName string) (*rule.RuleSetWrapper, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(qualifiedName, "qualifiedName"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, category_qualified_name, polarity, payload, created_at, updated_at
		FROM rule_sets
		WHERE category_qualified_name = ?`

	wrapper, err := scanWrapper(s.db.QueryRowContext(ctx, query, qualifiedName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rule set wrapper: %w", err)
	}
	return wrapper, nil
}

// GetAllRuleSetWrappers returns every wrapper, ordered by qualified name.
func (s *SQLiteStorage) GetAllRuleSetWrappers(ctx context.Context) ([]rule.RuleSetWrapper, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, category_qualified_name, polarity, payload, created_at, updated_at
		FROM rule_sets
		ORDER BY category_qualified_name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule set wrappers: %w", err)
	}
	defer rows.Close()

	var wrappers []rule.RuleSetWrapper
	for rows.Next() {
		wrapper, err := scanWrapper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule set wrapper: %w", err)
		}
		wrappers = append(wrappers, *wrapper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule set wrappers: %w", err)
	}

	slog.Debug("retrieved rule set wrappers", "count", len(wrappers))
	return wrappers, nil
}

// UpdateRuleSetWrapper stores the wrapper's payload in place.
func (s *SQLiteStorage) UpdateRuleSetWrapper(ctx context.Context, wrapper *rule.RuleSetWrapper) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWrapper(wrapper); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE rule_sets
		SET payload = ?, updated_at = ?
		WHERE category_qualified_name = ?`,
		wrapper.Payload, time.Now().UTC(), wrapper.CategoryQualifiedName,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule set wrapper: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no rule set wrapper for category %q", wrapper.CategoryQualifiedName)
	}
	return nil
}

func scanWrapper(row rowScanner) (*rule.RuleSetWrapper, error) {
	var wrapper rule.RuleSetWrapper
	var polarity string
	if err := row.Scan(
		&wrapper.ID, &wrapper.CategoryQualifiedName, &polarity,
		&wrapper.Payload, &wrapper.CreatedAt, &wrapper.UpdatedAt,
	); err != nil {
		return nil, err
	}
	wrapper.Polarity = model.Polarity(polarity)
	return &wrapper, nil
}
