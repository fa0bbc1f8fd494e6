package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsort/coinsort/internal/model"
)

func mustRule(t *testing.T, field, value string) *Rule {
	t.Helper()
	r, err := New([]string{field}, FieldTypeString, []string{value}, MatchAnyOf, OperatorContains)
	require.NoError(t, err)
	return r
}

func TestRuleSet_Evaluate(t *testing.T) {
	txn := model.Transaction{
		Description:    "Shell station 42",
		Communications: "fuel receipt",
	}

	t.Run("empty rule set never matches", func(t *testing.T) {
		rs, err := NewRuleSet(ConditionAnd)
		require.NoError(t, err)

		got, err := rs.Evaluate(&txn)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("and requires every child", func(t *testing.T) {
		rs, err := NewRuleSet(ConditionAnd)
		require.NoError(t, err)
		rs.AddRule(mustRule(t, "description", "shell"))
		rs.AddRule(mustRule(t, "communications", "fuel"))

		got, err := rs.Evaluate(&txn)
		require.NoError(t, err)
		assert.True(t, got)

		rs.AddRule(mustRule(t, "description", "airport"))
		got, err = rs.Evaluate(&txn)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("or requires at least one child", func(t *testing.T) {
		rs, err := NewRuleSet(ConditionOr)
		require.NoError(t, err)
		rs.AddRule(mustRule(t, "description", "airport"))
		rs.AddRule(mustRule(t, "communications", "fuel"))

		got, err := rs.Evaluate(&txn)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("nested rule sets recurse", func(t *testing.T) {
		inner, err := NewRuleSet(ConditionAnd)
		require.NoError(t, err)
		inner.AddRule(mustRule(t, "description", "shell"))
		inner.AddRule(mustRule(t, "description", "station"))

		outer, err := NewRuleSet(ConditionOr)
		require.NoError(t, err)
		outer.AddRule(mustRule(t, "description", "airport"))
		outer.AddSet(inner)

		got, err := outer.Evaluate(&txn)
		require.NoError(t, err)
		assert.True(t, got)
		assert.True(t, inner.IsChild)
		assert.False(t, outer.IsChild)
	})

	t.Run("evaluation error propagates", func(t *testing.T) {
		numberRule := &Rule{
			Fields:    []string{"amount"},
			FieldType: FieldTypeNumber,
			Values:    []string{"10"},
			MatchType: MatchAnyOf,
			Operator:  OperatorContains,
		}
		require.NoError(t, numberRule.compile())

		rs, err := NewRuleSet(ConditionOr)
		require.NoError(t, err)
		rs.AddRule(numberRule)

		_, err = rs.Evaluate(&txn)
		assert.ErrorIs(t, err, ErrNumberFieldUnsupported)
	})
}

func TestRuleSet_PropagatePolarity(t *testing.T) {
	inner, err := NewRuleSet(ConditionAnd)
	require.NoError(t, err)
	innermost, err := NewRuleSet(ConditionOr)
	require.NoError(t, err)
	inner.AddSet(innermost)

	outer, err := NewRuleSet(ConditionOr)
	require.NoError(t, err)
	outer.AddSet(inner)

	outer.PropagatePolarity(model.PolarityExpenses)

	assert.Equal(t, model.PolarityExpenses, outer.Polarity)
	assert.Equal(t, model.PolarityExpenses, inner.Polarity)
	assert.Equal(t, model.PolarityExpenses, innermost.Polarity)
}
