// Package taxonomy builds category trees from the tab-indented text resource
// the application ships and accepts as user configuration.
package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/coinsort/coinsort/internal/model"
)

// Parse reads a tab-indented hierarchy into a category tree for the given
// polarity. Each line is one category name; its depth is the number of
// leading tabs, and every line nests under the nearest shallower line above
// it. Blank lines and lines starting with '#' are skipped. The sentinel
// leaves are appended automatically.
func Parse(r io.Reader, polarity model.Polarity, rootName string) (*model.Tree, error) {
	tree := model.NewTree(polarity, rootName)

	// stack[d] is the arena index of the most recent category at depth d;
	// stack[0] is the root.
	stack := []int{tree.Root().ID}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		name := strings.TrimLeft(line, "\t")
		if strings.TrimSpace(name) == "" || strings.HasPrefix(name, "#") {
			continue
		}
		name = strings.TrimSpace(name)

		depth := len(line) - len(strings.TrimLeft(line, "\t"))
		if depth+1 > len(stack) {
			return nil, fmt.Errorf("line %d: indentation jumps more than one level", lineNo)
		}
		stack = stack[:depth+1]

		id, err := tree.Add(stack[depth], name)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		stack = append(stack, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read taxonomy: %w", err)
	}

	if err := tree.EnsureSentinels(); err != nil {
		return nil, err
	}
	return tree, nil
}

// LoadDefault builds the shipped default trees for both polarities.
func LoadDefault() (expenses, revenue *model.Tree, err error) {
	expenses, err = Parse(strings.NewReader(DefaultExpenses), model.PolarityExpenses, "Expenses")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse default expense taxonomy: %w", err)
	}
	revenue, err = Parse(strings.NewReader(DefaultRevenue), model.PolarityRevenue, "Revenue")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse default revenue taxonomy: %w", err)
	}
	return expenses, revenue, nil
}
