package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coinsort/coinsort/internal/cli"
	"github.com/coinsort/coinsort/internal/model"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show the category taxonomy",
		Long:  `Display both category trees with their qualified names.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			expenses, revenue, err := loadTrees()
			if err != nil {
				return err
			}

			printTree(expenses)
			fmt.Println()
			printTree(revenue)
			return nil
		},
	}
}

func printTree(tree *model.Tree) {
	fmt.Println(cli.TitleStyle.Render(tree.Root().Name))
	tree.Walk(func(c *model.Category, depth int) {
		if c.IsRoot {
			return
		}
		indent := strings.Repeat("  ", depth)
		name := c.Name
		if c.IsSentinel() {
			fmt.Printf("%s%s\n", indent, cli.SubtleStyle.Render(name))
			return
		}
		fmt.Printf("%s%s %s\n", indent, name,
			cli.SubtleStyle.Render("("+c.QualifiedName+")"))
	})
}
