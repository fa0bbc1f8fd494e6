package model

import (
	"fmt"
	"sort"
)

// Tree is an arena-backed category hierarchy for one polarity. Nodes are held
// in a flat slice and linked by index; a qualified-name map provides lookup.
// At most one tree per polarity exists in the system.
type Tree struct {
	byName   map[string]int
	Polarity Polarity
	nodes    []Category
	root     int
}

// NewTree creates a tree containing only the root category for the given
// polarity. The root's name is the polarity's display form.
func NewTree(polarity Polarity, rootName string) *Tree {
	t := &Tree{
		Polarity: polarity,
		byName:   make(map[string]int),
		root:     0,
	}
	t.nodes = append(t.nodes, Category{
		ID:            0,
		Name:          rootName,
		QualifiedName: rootName,
		Polarity:      polarity,
		Parent:        -1,
		IsRoot:        true,
	})
	t.byName[rootName] = 0
	return t
}

// Root returns the root category.
func (t *Tree) Root() *Category {
	return &t.nodes[t.root]
}

// Node returns the category at the given arena index.
func (t *Tree) Node(id int) *Category {
	return &t.nodes[id]
}

// Len returns the number of categories in the tree, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Add appends a child category under the given parent and returns its index.
// Qualified names must stay unique across the tree.
func (t *Tree) Add(parent int, name string) (int, error) {
	if parent < 0 || parent >= len(t.nodes) {
		return 0, fmt.Errorf("invalid parent index %d", parent)
	}
	qualified := t.nodes[parent].QualifiedName + QualifiedNameSeparator + name
	if _, exists := t.byName[qualified]; exists {
		return 0, fmt.Errorf("duplicate category %q", qualified)
	}
	id := len(t.nodes)
	t.nodes = append(t.nodes, Category{
		ID:            id,
		Name:          name,
		QualifiedName: qualified,
		Polarity:      t.Polarity,
		Parent:        parent,
	})
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	t.byName[qualified] = id
	return id, nil
}

// Lookup finds a category by its qualified name.
func (t *Tree) Lookup(qualifiedName string) (*Category, bool) {
	id, ok := t.byName[qualifiedName]
	if !ok {
		return nil, false
	}
	return &t.nodes[id], true
}

// EnsureSentinels adds the NO_CATEGORY and DUMMY_CATEGORY leaves under the
// root if they are not already present.
func (t *Tree) EnsureSentinels() error {
	for _, name := range []string{NoCategoryName, DummyCategoryName} {
		qualified := t.nodes[t.root].QualifiedName + QualifiedNameSeparator + name
		if _, ok := t.byName[qualified]; ok {
			continue
		}
		if _, err := t.Add(t.root, name); err != nil {
			return err
		}
	}
	return nil
}

// PostOrder returns the node indices in post-order: every node's descendants
// appear strictly before the node itself. Children are visited in qualified-
// name order so the sequence is stable regardless of insertion order.
func (t *Tree) PostOrder() []int {
	order := make([]int, 0, len(t.nodes))
	t.postOrder(t.root, &order)
	return order
}

func (t *Tree) postOrder(id int, order *[]int) {
	children := make([]int, len(t.nodes[id].Children))
	copy(children, t.nodes[id].Children)
	sort.Slice(children, func(i, j int) bool {
		return t.nodes[children[i]].QualifiedName < t.nodes[children[j]].QualifiedName
	})
	for _, child := range children {
		t.postOrder(child, order)
	}
	*order = append(*order, id)
}

// Walk visits every category depth-first, parents before children, calling fn
// with the node and its depth below the root. Used for display.
func (t *Tree) Walk(fn func(c *Category, depth int)) {
	t.walk(t.root, 0, fn)
}

func (t *Tree) walk(id, depth int, fn func(c *Category, depth int)) {
	fn(&t.nodes[id], depth)
	for _, child := range t.nodes[id].Children {
		t.walk(child, depth+1, fn)
	}
}
