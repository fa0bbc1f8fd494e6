package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coinsort/coinsort/internal/cli"
	"github.com/coinsort/coinsort/internal/common"
	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/rule"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage per-category rule sets",
		Long:  `List, show, set and test the rule sets bound to categories.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(showRuleCmd())
	cmd.AddCommand(setRuleCmd())
	cmd.AddCommand(testRuleCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with a non-empty rule set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			wrappers, err := store.GetAllRuleSetWrappers(ctx)
			if err != nil {
				return fmt.Errorf("failed to load rule sets: %w", err)
			}

			count := 0
			for i := range wrappers {
				if wrappers[i].RuleSet() == nil {
					continue
				}
				count++
				fmt.Printf("%s %s\n",
					wrappers[i].CategoryQualifiedName,
					cli.SubtleStyle.Render(string(wrappers[i].Polarity)))
			}
			if count == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rule sets defined. Use 'coinsort rules set' to add one."))
			}
			return nil
		},
	}
}

func showRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show CATEGORY",
		Short: "Print a category's rule set payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			wrapper, err := store.GetRuleSetWrapper(ctx, args[0])
			if err != nil {
				return err
			}
			if wrapper == nil || wrapper.Payload == "" {
				fmt.Println(cli.SubtleStyle.Render("(no rule set)"))
				return nil
			}

			var pretty json.RawMessage = []byte(wrapper.Payload)
			out, err := json.MarshalIndent(pretty, "", "  ")
			if err != nil {
				return fmt.Errorf("stored payload is not valid JSON: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func setRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set CATEGORY FILE",
		Short: "Bind a rule set (JSON file) to a category",
		Long: `Read a rule set in the wire schema from FILE, validate it and store it on
the category's wrapper. The category must exist in the taxonomy.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			qualifiedName, path := args[0], args[1]

			expenses, revenue, err := loadTrees()
			if err != nil {
				return err
			}
			category, ok := expenses.Lookup(qualifiedName)
			if !ok {
				category, ok = revenue.Lookup(qualifiedName)
			}
			if !ok {
				return fmt.Errorf("category %q: %w", qualifiedName, common.ErrNotFound)
			}
			if category.IsSentinel() || category.IsRoot {
				return fmt.Errorf("category %q cannot carry rules", qualifiedName)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read rule set file: %w", err)
			}
			rs := &rule.RuleSet{}
			if err := json.Unmarshal(data, rs); err != nil {
				return fmt.Errorf("invalid rule set: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			wrapper, err := store.GetOrCreateRuleSetWrapper(ctx, qualifiedName, category.Polarity)
			if err != nil {
				return err
			}
			if err := wrapper.SetRuleSet(rs); err != nil {
				return err
			}
			if err := store.UpdateRuleSetWrapper(ctx, wrapper); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render("Rule set saved for " + qualifiedName))
			return nil
		},
	}
}

func testRuleCmd() *cobra.Command {
	var (
		description    string
		communications string
		counterparty   string
		amount         float64
	)

	cmd := &cobra.Command{
		Use:   "test CATEGORY",
		Short: "Evaluate a category's rule set against an ad-hoc transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			wrapper, err := store.GetRuleSetWrapper(ctx, args[0])
			if err != nil {
				return err
			}
			if wrapper == nil {
				return fmt.Errorf("no rule set wrapper for %q", args[0])
			}
			rs := wrapper.RuleSet()
			if rs == nil {
				fmt.Println(cli.SubtleStyle.Render("(empty rule set, never matches)"))
				return nil
			}

			txn := model.Transaction{
				Description:      description,
				Communications:   communications,
				CounterpartyName: counterparty,
				Amount:           amount,
			}
			matched, err := rs.Evaluate(&txn)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}
			if matched {
				fmt.Println(cli.SuccessStyle.Render("MATCH"))
			} else {
				fmt.Println(cli.WarningStyle.Render("NO MATCH"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "transaction description")
	cmd.Flags().StringVar(&communications, "communications", "", "transaction communications text")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "counterparty name")
	cmd.Flags().Float64Var(&amount, "amount", 0, "signed amount")

	return cmd
}
