package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/schollz/progressbar/v3"

	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/rule"
	"github.com/coinsort/coinsort/internal/service"
)

// Engine orchestrates categorization: it selects the right tree per
// transaction, loads the applicable rule set wrappers, drives the traverser
// over a batch and persists the results.
type Engine struct {
	storage  service.Storage
	expenses *model.Tree
	revenue  *model.Tree
	progress bool
}

// Config holds configuration options for the engine.
type Config struct {
	// ShowProgress renders a progress bar during batch runs.
	ShowProgress bool
}

// New creates an engine over the two category trees.
func New(storage service.Storage, expenses, revenue *model.Tree) *Engine {
	return NewWithConfig(storage, expenses, revenue, Config{})
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(storage service.Storage, expenses, revenue *model.Tree, config Config) *Engine {
	return &Engine{
		storage:  storage,
		expenses: expenses,
		revenue:  revenue,
		progress: config.ShowProgress,
	}
}

// FindUncategorized returns the user's transactions with no manually assigned
// category, optionally filtered by bank account and polarity.
func (e *Engine) FindUncategorized(ctx context.Context, userID, accountNumber string, polarity *model.Polarity) ([]model.Transaction, error) {
	return e.storage.GetUncategorizedTransactions(ctx, service.TransactionFilter{
		UserID:        userID,
		AccountNumber: accountNumber,
		Polarity:      polarity,
	})
}

// GetOrCreateAllWrappers returns, per polarity, the qualified-name-to-wrapper
// mapping for every matchable category, creating missing wrappers with an
// empty expression. Wrappers are shared: repeated calls, for any user, return
// the same wrapper identifiers. The user only scopes logging.
func (e *Engine) GetOrCreateAllWrappers(ctx context.Context, userID string) (Wrappers, error) {
	wrappers := Wrappers{
		model.PolarityExpenses: make(map[string]*rule.RuleSetWrapper),
		model.PolarityRevenue:  make(map[string]*rule.RuleSetWrapper),
	}

	for _, tree := range []*model.Tree{e.expenses, e.revenue} {
		if tree == nil {
			continue
		}
		for _, id := range tree.PostOrder() {
			node := tree.Node(id)
			if node.IsRoot || node.IsSentinel() {
				continue
			}
			wrapper, err := e.storage.GetOrCreateRuleSetWrapper(ctx, node.QualifiedName, tree.Polarity)
			if err != nil {
				return nil, fmt.Errorf("failed to get wrapper for %s: %w", node.QualifiedName, err)
			}
			wrappers[tree.Polarity][node.QualifiedName] = wrapper
		}
	}

	slog.Debug("loaded rule set wrappers",
		"user", userID,
		"expenses", len(wrappers[model.PolarityExpenses]),
		"revenue", len(wrappers[model.PolarityRevenue]))
	return wrappers, nil
}

// CategorizeBatch runs the post-order traverser over every uncategorized
// transaction matching the filter and persists all assignments in a single
// commit. A persistence failure aborts the whole batch; nothing is retried.
func (e *Engine) CategorizeBatch(ctx context.Context, userID, accountNumber string, polarity *model.Polarity) (service.BatchStats, error) {
	var stats service.BatchStats

	transactions, err := e.FindUncategorized(ctx, userID, accountNumber, polarity)
	if err != nil {
		return stats, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(transactions) == 0 {
		slog.Info("no transactions to categorize", "user", userID)
		return stats, nil
	}

	wrappers, err := e.GetOrCreateAllWrappers(ctx, userID)
	if err != nil {
		return stats, err
	}
	categorizer := NewCategorizer(e.expenses, e.revenue, wrappers)

	bar := e.newProgressBar(len(transactions))
	updated := make([]model.Transaction, 0, len(transactions))
	for i := range transactions {
		txn := &transactions[i]
		category, err := categorizer.Traverse(txn)
		if err != nil {
			return service.BatchStats{}, fmt.Errorf("failed to categorize %s: %w", txn.ID, err)
		}
		if category != nil {
			stats.Matched++
			updated = append(updated, *txn)
		} else {
			stats.Unmatched++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if err := e.persistBatch(ctx, updated); err != nil {
		return service.BatchStats{}, err
	}

	slog.Info("batch categorization complete",
		"user", userID,
		"matched", stats.Matched,
		"unmatched", stats.Unmatched)
	return stats, nil
}

// CategorizeSimple is the simpler evaluation path: it evaluates wrappers
// independently, in stable qualified-name order rather than tree order, and
// falls back to the counterparty's default category when no rule matches.
// The traverser path has no such fallback; the two are deliberately kept
// distinct.
func (e *Engine) CategorizeSimple(ctx context.Context, userID, accountNumber string, polarity *model.Polarity) (service.BatchStats, error) {
	var stats service.BatchStats

	transactions, err := e.FindUncategorized(ctx, userID, accountNumber, polarity)
	if err != nil {
		return stats, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(transactions) == 0 {
		return stats, nil
	}

	wrappers, err := e.GetOrCreateAllWrappers(ctx, userID)
	if err != nil {
		return stats, err
	}

	ordered := make(map[model.Polarity][]string, len(wrappers))
	for pol, byName := range wrappers {
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)
		ordered[pol] = names
	}

	updated := make([]model.Transaction, 0, len(transactions))
	for i := range transactions {
		txn := &transactions[i]
		matched, err := e.categorizeSimpleOne(ctx, txn, wrappers[txn.Polarity()], ordered[txn.Polarity()])
		if err != nil {
			return service.BatchStats{}, err
		}
		if matched {
			stats.Matched++
			updated = append(updated, *txn)
		} else {
			stats.Unmatched++
		}
	}

	if err := e.persistBatch(ctx, updated); err != nil {
		return service.BatchStats{}, err
	}
	return stats, nil
}

func (e *Engine) categorizeSimpleOne(ctx context.Context, txn *model.Transaction, wrappers map[string]*rule.RuleSetWrapper, order []string) (bool, error) {
	tree := e.treeFor(txn.Polarity())
	if tree == nil {
		return false, nil
	}

	for _, name := range order {
		rs := wrappers[name].RuleSet()
		if rs == nil {
			continue
		}
		matched, err := rs.Evaluate(txn)
		if err != nil {
			return false, fmt.Errorf("failed to evaluate rules for %s: %w", name, err)
		}
		if matched {
			if category, ok := tree.Lookup(name); ok {
				txn.AssignCategory(category)
				return true, nil
			}
		}
	}

	// Fallback: the counterparty's own default category.
	if txn.CounterpartyAccount == "" {
		return false, nil
	}
	counterparty, err := e.storage.GetCounterparty(ctx, txn.CounterpartyAccount)
	if err != nil {
		return false, fmt.Errorf("failed to look up counterparty: %w", err)
	}
	if counterparty == nil || counterparty.DefaultCategory == "" {
		return false, nil
	}
	category, ok := tree.Lookup(counterparty.DefaultCategory)
	if !ok {
		slog.Debug("counterparty default category not in tree",
			"counterparty", counterparty.AccountNumber,
			"category", counterparty.DefaultCategory)
		return false, nil
	}
	txn.AssignCategory(category)
	return true, nil
}

func (e *Engine) treeFor(polarity model.Polarity) *model.Tree {
	if polarity == model.PolarityExpenses {
		return e.expenses
	}
	return e.revenue
}

// persistBatch saves all mutated transactions in one database transaction.
func (e *Engine) persistBatch(ctx context.Context, updated []model.Transaction) error {
	if len(updated) == 0 {
		return nil
	}

	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch commit: %w", err)
	}
	if err := tx.SaveTransactions(ctx, updated); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to persist batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (e *Engine) newProgressBar(total int) *progressbar.ProgressBar {
	if !e.progress {
		return nil
	}
	return progressbar.Default(int64(total), "categorizing")
}
