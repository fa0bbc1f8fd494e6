package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coinsort/coinsort/internal/model"
)

// SaveCounterparty inserts or updates a counterparty record.
func (s *SQLiteStorage) SaveCounterparty(ctx context.Context, counterparty *model.Counterparty) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if counterparty == nil {
		return fmt.Errorf("%w: counterparty", ErrNilParameter)
	}
	if err := validateString(counterparty.AccountNumber, "accountNumber"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counterparties (account_number, name, default_category)
		VALUES (?, ?, ?)
		ON CONFLICT(account_number) DO UPDATE SET
			name = excluded.name,
			default_category = excluded.default_category`,
		counterparty.AccountNumber, counterparty.Name,
		nullable(counterparty.DefaultCategory),
	)
	if err != nil {
		return fmt.Errorf("failed to save counterparty: %w", err)
	}
	return nil
}

// GetCounterparty returns the counterparty with the given account number, or
// nil when unknown.
func (s *SQLiteStorage) GetCounterparty(ctx context.Context, accountNumber string) (*model.Counterparty, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountNumber, "accountNumber"); err != nil {
		return nil, err
	}

	var cp model.Counterparty
	var defaultCategory sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT account_number, name, default_category, created_at
		FROM counterparties
		WHERE account_number = ?`,
		accountNumber,
	).Scan(&cp.AccountNumber, &cp.Name, &defaultCategory, &cp.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query counterparty: %w", err)
	}
	cp.DefaultCategory = defaultCategory.String
	return &cp, nil
}
