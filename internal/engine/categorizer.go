// Package engine implements the categorization core: the post-order tree
// traverser and the orchestrator that drives it over batches of transactions.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/rule"
)

// ErrNoTransaction is returned by Traverse when no transaction is supplied.
var ErrNoTransaction = errors.New("transaction not set")

// Wrappers maps, per polarity, category qualified names to their rule set
// wrappers.
type Wrappers map[model.Polarity]map[string]*rule.RuleSetWrapper

// Categorizer walks a category tree in post-order and evaluates each node's
// bound rule set against a transaction. The post-order sequence guarantees a
// child's rules are always tested before its parent's, so the most specific
// matching category wins over a more general ancestor.
//
// The traverser is pure with respect to the transaction: it is passed as a
// parameter, never held as state, so one Categorizer is safe to share across
// concurrent batches.
type Categorizer struct {
	trees    map[model.Polarity]*model.Tree
	order    map[model.Polarity][]int
	wrappers Wrappers
}

// NewCategorizer builds a categorizer over both trees and the wrappers
// visible to the current user, precomputing the post-order node sequence for
// each tree.
func NewCategorizer(expenses, revenue *model.Tree, wrappers Wrappers) *Categorizer {
	c := &Categorizer{
		trees:    make(map[model.Polarity]*model.Tree, 2),
		order:    make(map[model.Polarity][]int, 2),
		wrappers: wrappers,
	}
	if expenses != nil {
		c.trees[model.PolarityExpenses] = expenses
		c.order[model.PolarityExpenses] = expenses.PostOrder()
	}
	if revenue != nil {
		c.trees[model.PolarityRevenue] = revenue
		c.order[model.PolarityRevenue] = revenue.PostOrder()
	}
	return c
}

// SelectTree picks the tree matching the transaction's amount sign: expenses
// for negative amounts, revenue otherwise. Zero classifies as revenue.
func (c *Categorizer) SelectTree(txn *model.Transaction) *model.Tree {
	return c.trees[txn.Polarity()]
}

// Traverse walks the selected tree's post-order sequence and returns the
// first category whose rule set matches the transaction, assigning it onto
// the transaction and clearing its manual flags. It returns nil when nothing
// matches, leaving the transaction untouched. Calling it without a
// transaction is a programming error.
func (c *Categorizer) Traverse(txn *model.Transaction) (*model.Category, error) {
	if txn == nil {
		return nil, ErrNoTransaction
	}

	polarity := txn.Polarity()
	tree := c.SelectTree(txn)
	if tree == nil {
		return nil, nil
	}

	wrappers := c.wrappers[polarity]
	for _, id := range c.order[polarity] {
		node := tree.Node(id)
		if node.IsSentinel() {
			continue
		}
		wrapper := wrappers[node.QualifiedName]
		if wrapper == nil {
			continue
		}
		rs := wrapper.RuleSet()
		if rs == nil {
			continue
		}

		matched, err := rs.Evaluate(txn)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate rules for %s: %w", node.QualifiedName, err)
		}
		if matched {
			txn.AssignCategory(node)
			slog.Debug("matched transaction",
				"transaction", txn.ID,
				"category", node.QualifiedName)
			return node, nil
		}
	}
	return nil, nil
}
