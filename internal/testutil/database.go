// Package testutil provides test utilities for the coinsort project.
package testutil

import (
	"context"
	"testing"

	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/storage"
	"github.com/coinsort/coinsort/internal/taxonomy"
)

// TestDB bundles an in-memory storage with the default category trees.
type TestDB struct {
	Storage  *storage.SQLiteStorage
	Expenses *model.Tree
	Revenue  *model.Tree
	t        *testing.T
}

// SetupTestDB creates a new in-memory test database with migrations applied
// and the default taxonomy loaded. Cleanup is registered automatically.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	expenses, revenue, err := taxonomy.LoadDefault()
	if err != nil {
		t.Fatalf("failed to load default taxonomy: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage:  store,
		Expenses: expenses,
		Revenue:  revenue,
		t:        t,
	}
}
