// Package model defines the core data structures for the coinsort application.
package model

// Polarity indicates which side of the ledger a category tree (and the
// transactions it classifies) belongs to.
type Polarity string

const (
	// PolarityExpenses covers transactions with a negative amount.
	PolarityExpenses Polarity = "EXPENSES"
	// PolarityRevenue covers transactions with a zero or positive amount.
	PolarityRevenue Polarity = "REVENUE"
)

// QualifiedNameSeparator joins ancestor names into a qualified name.
const QualifiedNameSeparator = "."

// Sentinel category names. They exist as leaves in every tree but are never
// targets of rule matching; assigning one marks a transaction as deliberately
// uncategorized.
const (
	NoCategoryName    = "NO_CATEGORY"
	DummyCategoryName = "DUMMY_CATEGORY"
)

// Category is one node of a category tree. Nodes live in the tree's arena;
// Parent and Children are indices into it. Identity, equality and ordering
// are defined purely by QualifiedName.
type Category struct {
	Name          string
	QualifiedName string
	Polarity      Polarity
	Children      []int
	ID            int
	Parent        int
	IsRoot        bool
}

// IsSentinel reports whether the category is one of the non-matchable
// placeholder leaves.
func (c *Category) IsSentinel() bool {
	return c.Name == NoCategoryName || c.Name == DummyCategoryName
}
