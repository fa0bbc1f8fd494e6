package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsort/coinsort/internal/engine"
	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/rule"
	"github.com/coinsort/coinsort/internal/testutil"
)

func seedRule(t *testing.T, db *testutil.TestDB, qualifiedName string, polarity model.Polarity, field, value string) {
	t.Helper()
	ctx := context.Background()

	wrapper, err := db.Storage.GetOrCreateRuleSetWrapper(ctx, qualifiedName, polarity)
	require.NoError(t, err)

	r, err := rule.New([]string{field}, rule.FieldTypeString, []string{value}, rule.MatchAnyOf, rule.OperatorContains)
	require.NoError(t, err)
	rs, err := rule.NewRuleSet(rule.ConditionOr)
	require.NoError(t, err)
	rs.AddRule(r)

	require.NoError(t, wrapper.SetRuleSet(rs))
	require.NoError(t, db.Storage.UpdateRuleSetWrapper(ctx, wrapper))
}

func seedTransactions(t *testing.T, db *testutil.TestDB, transactions []model.Transaction) {
	t.Helper()
	require.NoError(t, db.Storage.SaveTransactions(context.Background(), transactions))
}

func testTxn(id, userID, description string, amount float64) model.Transaction {
	return model.Transaction{
		ID:            id,
		Date:          time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:   description,
		Amount:        amount,
		Currency:      "EUR",
		AccountNumber: "BE68539007547034",
		UserID:        userID,
	}
}

func TestEngine_CategorizeBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	seedRule(t, db, "Expenses.Groceries", model.PolarityExpenses, "description", "delhaize")
	seedRule(t, db, "Revenue.Salary", model.PolarityRevenue, "description", "salary")
	seedTransactions(t, db, []model.Transaction{
		testTxn("t1", "alice", "DELHAIZE BRUSSELS", -42.50),
		testTxn("t2", "alice", "Monthly salary March", 2500.00),
		testTxn("t3", "alice", "Unknown merchant", -10.00),
	})

	eng := engine.New(db.Storage, db.Expenses, db.Revenue)
	stats, err := eng.CategorizeBatch(ctx, "alice", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)

	// Assignments are persisted.
	txn, err := db.Storage.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Expenses.Groceries", txn.Category)

	txn, err = db.Storage.GetTransactionByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "Revenue.Salary", txn.Category)

	// Unmatched transactions stay untouched.
	txn, err = db.Storage.GetTransactionByID(ctx, "t3")
	require.NoError(t, err)
	assert.Empty(t, txn.Category)
}

func TestEngine_CategorizeBatchSpecificityAcrossPersistence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	// Transport and its child Fuel both match; the child must win.
	seedRule(t, db, "Expenses.Transport", model.PolarityExpenses, "description", "shell")
	seedRule(t, db, "Expenses.Transport.Fuel", model.PolarityExpenses, "description", "shell")
	seedTransactions(t, db, []model.Transaction{
		testTxn("t1", "alice", "SHELL STATION 42", -54.30),
	})

	eng := engine.New(db.Storage, db.Expenses, db.Revenue)
	stats, err := eng.CategorizeBatch(ctx, "alice", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	txn, err := db.Storage.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Expenses.Transport.Fuel", txn.Category)
}

func TestEngine_CategorizeBatchPolarityFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	seedRule(t, db, "Revenue.Salary", model.PolarityRevenue, "description", "salary")
	seedTransactions(t, db, []model.Transaction{
		testTxn("t1", "alice", "salary", 2500.00),
		testTxn("t2", "alice", "salary refund thing", -20.00),
	})

	expensesOnly := model.PolarityExpenses
	eng := engine.New(db.Storage, db.Expenses, db.Revenue)
	stats, err := eng.CategorizeBatch(ctx, "alice", "", &expensesOnly)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)

	// The revenue transaction was out of scope and remains uncategorized.
	txn, err := db.Storage.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, txn.Category)
}

func TestEngine_GetOrCreateAllWrappersIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	eng := engine.New(db.Storage, db.Expenses, db.Revenue)

	first, err := eng.GetOrCreateAllWrappers(ctx, "alice")
	require.NoError(t, err)
	second, err := eng.GetOrCreateAllWrappers(ctx, "bob")
	require.NoError(t, err)

	require.Equal(t, len(first[model.PolarityExpenses]), len(second[model.PolarityExpenses]))
	for name, wrapper := range first[model.PolarityExpenses] {
		other, ok := second[model.PolarityExpenses][name]
		require.True(t, ok, "missing wrapper for %s", name)
		assert.Equal(t, wrapper.ID, other.ID, "wrapper for %s duplicated", name)
	}

	// Sentinels never get wrappers.
	_, ok := first[model.PolarityExpenses]["Expenses."+model.NoCategoryName]
	assert.False(t, ok)
}

func TestEngine_CategorizeSimpleFallsBackToCounterpartyDefault(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Storage.SaveCounterparty(ctx, &model.Counterparty{
		AccountNumber:   "NL91ABNA0417164300",
		Name:            "Landlord BV",
		DefaultCategory: "Expenses.Housing.Rent",
	}))

	rent := testTxn("t1", "alice", "no rule matches this", -800.00)
	rent.CounterpartyAccount = "NL91ABNA0417164300"
	unknown := testTxn("t2", "alice", "no rule matches this either", -15.00)
	seedTransactions(t, db, []model.Transaction{rent, unknown})

	eng := engine.New(db.Storage, db.Expenses, db.Revenue)
	stats, err := eng.CategorizeSimple(ctx, "alice", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)

	txn, err := db.Storage.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Expenses.Housing.Rent", txn.Category)

	txn, err = db.Storage.GetTransactionByID(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, txn.Category)
}

func TestEngine_CategorizeSimpleWithoutRevenueTree(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Storage.SaveCounterparty(ctx, &model.Counterparty{
		AccountNumber:   "NL91ABNA0417164300",
		Name:            "Employer BV",
		DefaultCategory: "Revenue.Salary",
	}))

	salary := testTxn("t1", "alice", "no rule matches this", 2500.00)
	salary.CounterpartyAccount = "NL91ABNA0417164300"
	seedTransactions(t, db, []model.Transaction{salary})

	// A missing tree means nothing can match, fallback included.
	eng := engine.New(db.Storage, db.Expenses, nil)
	stats, err := eng.CategorizeSimple(ctx, "alice", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)
}

func TestEngine_TraverserPathHasNoFallback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Storage.SaveCounterparty(ctx, &model.Counterparty{
		AccountNumber:   "NL91ABNA0417164300",
		Name:            "Landlord BV",
		DefaultCategory: "Expenses.Housing.Rent",
	}))

	rent := testTxn("t1", "alice", "no rule matches this", -800.00)
	rent.CounterpartyAccount = "NL91ABNA0417164300"
	seedTransactions(t, db, []model.Transaction{rent})

	eng := engine.New(db.Storage, db.Expenses, db.Revenue)
	stats, err := eng.CategorizeBatch(ctx, "alice", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)

	txn, err := db.Storage.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, txn.Category)
}
