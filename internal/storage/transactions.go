package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/service"
)

const transactionColumns = `id, hash, date, description, communications, amount,
	currency, country_code, counterparty_name, counterparty_account,
	account_number, user_id, category, manually_assigned, needs_review`

// SaveTransactions stores transactions, updating rows that already exist.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.saveTransactionsTx(ctx, tx, transactions); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			manually_assigned = excluded.manually_assigned,
			needs_review = excluded.needs_review`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range transactions {
		txn := &transactions[i]
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.Hash, txn.Date, txn.Description, txn.Communications,
			txn.Amount, txn.Currency, txn.CountryCode, txn.CounterpartyName,
			txn.CounterpartyAccount, txn.AccountNumber, txn.UserID,
			nullable(txn.Category), txn.ManuallyAssigned, txn.NeedsReview,
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	slog.Debug("saved transactions", "count", len(transactions))
	return nil
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`
	txn, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

// GetUncategorizedTransactions returns the user's transactions with no
// manually assigned category, optionally filtered by bank account and by
// polarity. The polarity filter is an amount-sign predicate.
func (s *SQLiteStorage) GetUncategorizedTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(filter.UserID, "userID"); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ? AND manually_assigned = 0`
	args := []any{filter.UserID}

	if filter.AccountNumber != "" {
		query += ` AND account_number = ?`
		args = append(args, filter.AccountNumber)
	}
	if filter.Polarity != nil {
		if *filter.Polarity == model.PolarityExpenses {
			query += ` AND amount < 0`
		} else {
			query += ` AND amount >= 0`
		}
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	slog.Debug("retrieved uncategorized transactions",
		"user", filter.UserID,
		"count", len(transactions))
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var category sql.NullString
	if err := row.Scan(
		&txn.ID, &txn.Hash, &txn.Date, &txn.Description, &txn.Communications,
		&txn.Amount, &txn.Currency, &txn.CountryCode, &txn.CounterpartyName,
		&txn.CounterpartyAccount, &txn.AccountNumber, &txn.UserID,
		&category, &txn.ManuallyAssigned, &txn.NeedsReview,
	); err != nil {
		return nil, err
	}
	txn.Category = category.String
	return &txn, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
