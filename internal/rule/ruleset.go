package rule

import (
	"errors"

	"github.com/coinsort/coinsort/internal/model"
)

// Condition is the boolean combinator of a rule set.
type Condition string

// Rule set conditions.
const (
	ConditionAnd Condition = "AND"
	ConditionOr  Condition = "OR"
)

// ErrInvalidCondition marks a rule set with an unknown combinator.
var ErrInvalidCondition = errors.New("invalid rule set condition")

// NodeKind tags the variants of the Rule/RuleSet sum type.
type NodeKind int

// Node kinds.
const (
	KindRule NodeKind = iota
	KindSet
)

// Node is one child of a rule set: either a leaf rule or a nested rule set,
// distinguished by Kind.
type Node struct {
	Rule *Rule
	Set  *RuleSet
	Kind NodeKind
}

// Evaluate dispatches over the node's kind.
func (n Node) Evaluate(txn *model.Transaction) (bool, error) {
	if n.Kind == KindSet {
		return n.Set.Evaluate(txn)
	}
	return n.Rule.Evaluate(txn)
}

// RuleSet is an AND/OR combination of rules and nested rule sets. IsChild
// distinguishes a nested sub-expression from the category-bound root
// expression. Polarity is propagated to every descendant set when the
// expression is (re)bound to a category.
type RuleSet struct {
	Condition Condition
	Children  []Node
	Polarity  model.Polarity
	IsChild   bool
}

// NewRuleSet creates an empty rule set with the given combinator.
func NewRuleSet(condition Condition) (*RuleSet, error) {
	switch condition {
	case ConditionAnd, ConditionOr:
	default:
		return nil, ErrInvalidCondition
	}
	return &RuleSet{Condition: condition}, nil
}

// AddRule appends a leaf rule.
func (rs *RuleSet) AddRule(r *Rule) {
	rs.Children = append(rs.Children, Node{Kind: KindRule, Rule: r})
}

// AddSet appends a nested rule set, marking it as a child expression.
func (rs *RuleSet) AddSet(child *RuleSet) {
	child.IsChild = true
	rs.Children = append(rs.Children, Node{Kind: KindSet, Set: child})
}

// Evaluate reports whether the expression matches the transaction. An empty
// rule set never matches. AND requires every child to match, OR at least one;
// children are evaluated left to right.
func (rs *RuleSet) Evaluate(txn *model.Transaction) (bool, error) {
	if len(rs.Children) == 0 {
		return false, nil
	}
	if rs.Condition == ConditionAnd {
		for _, child := range rs.Children {
			ok, err := child.Evaluate(txn)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	for _, child := range rs.Children {
		ok, err := child.Evaluate(txn)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// PropagatePolarity sets the polarity on this set and recursively on every
// descendant set. Persisted expressions may not carry polarity on every node,
// so rehydration runs this from the binding category's polarity.
func (rs *RuleSet) PropagatePolarity(p model.Polarity) {
	rs.Polarity = p
	for _, child := range rs.Children {
		if child.Kind == KindSet {
			child.Set.PropagatePolarity(p)
		}
	}
}
