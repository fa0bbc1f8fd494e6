package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/coinsort/coinsort/internal/common"
	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/storage"
	"github.com/coinsort/coinsort/internal/taxonomy"
)

// initStorage opens the configured database and applies pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "coinsort", "coinsort.db")
	}

	store, err := storage.NewSQLiteStorage(os.ExpandEnv(dbPath))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadTrees builds the category trees, from configured taxonomy files when
// present and from the shipped defaults otherwise.
func loadTrees() (expenses, revenue *model.Tree, err error) {
	expensesPath := viper.GetString("taxonomy.expenses")
	revenuePath := viper.GetString("taxonomy.revenue")
	if expensesPath == "" && revenuePath == "" {
		return taxonomy.LoadDefault()
	}

	expenses, err = loadTree(expensesPath, model.PolarityExpenses, "Expenses", taxonomy.DefaultExpenses)
	if err != nil {
		return nil, nil, err
	}
	revenue, err = loadTree(revenuePath, model.PolarityRevenue, "Revenue", taxonomy.DefaultRevenue)
	if err != nil {
		return nil, nil, err
	}
	return expenses, revenue, nil
}

func loadTree(path string, polarity model.Polarity, rootName, fallback string) (*model.Tree, error) {
	if path == "" {
		return taxonomy.Parse(strings.NewReader(fallback), polarity, rootName)
	}
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, common.NewUserError("failed to open taxonomy file", err)
	}
	defer f.Close()
	tree, err := taxonomy.Parse(f, polarity, rootName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return tree, nil
}

// parsePolarity converts the --polarity flag value. Empty means both.
func parsePolarity(value string) (*model.Polarity, error) {
	switch value {
	case "":
		return nil, nil
	case "expenses":
		p := model.PolarityExpenses
		return &p, nil
	case "revenue":
		p := model.PolarityRevenue
		return &p, nil
	default:
		return nil, fmt.Errorf("%w: polarity %q (want expenses or revenue)", common.ErrInvalidConfig, value)
	}
}
