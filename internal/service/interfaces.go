// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/rule"
)

// TransactionFilter defines filtering options for uncategorized-transaction
// queries. Polarity, when set, is expressed as an amount-sign predicate, not
// a stored field.
type TransactionFilter struct {
	Polarity      *model.Polarity
	UserID        string
	AccountNumber string
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetUncategorizedTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// Rule set wrapper operations
	GetOrCreateRuleSetWrapper(ctx context.Context, qualifiedName string, polarity model.Polarity) (*rule.RuleSetWrapper, error)
	GetRuleSetWrapper(ctx context.Context, qualifiedName string) (*rule.RuleSetWrapper, error)
	GetAllRuleSetWrappers(ctx context.Context) ([]rule.RuleSetWrapper, error)
	UpdateRuleSetWrapper(ctx context.Context, wrapper *rule.RuleSetWrapper) error

	// Counterparty operations
	SaveCounterparty(ctx context.Context, counterparty *model.Counterparty) error
	GetCounterparty(ctx context.Context, accountNumber string) (*model.Counterparty, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. All mutations inside a batch
// go through one of these and commit together or not at all.
type Transaction interface {
	Commit() error
	Rollback() error
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
}

// BatchStats shows the results of one categorization batch.
type BatchStats struct {
	Matched   int
	Unmatched int
}
