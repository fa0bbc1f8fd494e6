package rule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsort/coinsort/internal/model"
)

const wirePayload = `{
	"condition": "OR",
	"rules": [
		{
			"field": ["communications", "description"],
			"field_type": "string",
			"value": ["groceries", "super market"],
			"value_match_type": {"name": "ANY_OF"},
			"operator": {"name": "CONTAINS", "type": "string"}
		},
		{
			"condition": "AND",
			"rules": [
				{
					"field": ["counterparty.name"],
					"field_type": "string",
					"value": ["acme"],
					"value_match_type": {"name": "ANY_OF"},
					"operator": {"name": "CONTAINS", "type": "string"}
				},
				{
					"field": ["currency"],
					"field_type": "categorical",
					"value": ["EUR"],
					"value_match_type": {"name": "ANY_OF"},
					"operator": {"name": "EXACT_MATCH", "type": "string"}
				}
			],
			"is_child": true
		}
	],
	"is_child": false,
	"type": "EXPENSES"
}`

func TestRuleSet_WireRoundTrip(t *testing.T) {
	rs := &RuleSet{}
	require.NoError(t, json.Unmarshal([]byte(wirePayload), rs))

	assert.Equal(t, ConditionOr, rs.Condition)
	assert.False(t, rs.IsChild)
	assert.Equal(t, model.PolarityExpenses, rs.Polarity)
	require.Len(t, rs.Children, 2)
	assert.Equal(t, KindRule, rs.Children[0].Kind)
	assert.Equal(t, KindSet, rs.Children[1].Kind)
	assert.True(t, rs.Children[1].Set.IsChild)
	require.Len(t, rs.Children[1].Set.Children, 2)

	// serialize -> deserialize must yield a semantically identical payload.
	data, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.JSONEq(t, wirePayload, string(data))

	// ...and an expression that evaluates identically.
	again := &RuleSet{}
	require.NoError(t, json.Unmarshal(data, again))

	transactions := []model.Transaction{
		{Communications: "Payment for groceries"},
		{Description: "SUPERMARKET DELHAIZE"},
		{CounterpartyName: "ACME Corp", Currency: "EUR"},
		{CounterpartyName: "ACME Corp", Currency: "USD"},
		{Description: "Payment for utilities"},
	}
	for i := range transactions {
		wantMatch, err := rs.Evaluate(&transactions[i])
		require.NoError(t, err)
		gotMatch, err := again.Evaluate(&transactions[i])
		require.NoError(t, err)
		assert.Equal(t, wantMatch, gotMatch, "transaction %d", i)
	}
}

func TestRuleSet_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "not JSON",
			payload: `{{{`,
		},
		{
			name:    "unknown condition",
			payload: `{"condition": "XOR", "rules": [], "is_child": false}`,
		},
		{
			name: "exact match with all of",
			payload: `{"condition": "AND", "is_child": false, "rules": [
				{"field": ["description"], "field_type": "string", "value": ["a"],
				 "value_match_type": {"name": "ALL_OF"},
				 "operator": {"name": "EXACT_MATCH", "type": "string"}}
			]}`,
		},
		{
			name: "selector with two separators",
			payload: `{"condition": "AND", "is_child": false, "rules": [
				{"field": ["a.b.c"], "field_type": "string", "value": ["a"],
				 "value_match_type": {"name": "ANY_OF"},
				 "operator": {"name": "CONTAINS", "type": "string"}}
			]}`,
		},
		{
			name: "empty candidate value",
			payload: `{"condition": "AND", "is_child": false, "rules": [
				{"field": ["description"], "field_type": "string", "value": [""],
				 "value_match_type": {"name": "ANY_OF"},
				 "operator": {"name": "CONTAINS", "type": "string"}}
			]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := &RuleSet{}
			assert.Error(t, json.Unmarshal([]byte(tt.payload), rs))
		})
	}
}

func TestRuleSet_NumberRuleDecodesButFailsEvaluation(t *testing.T) {
	payload := `{"condition": "AND", "is_child": false, "rules": [
		{"field": ["amount"], "field_type": "number", "value": ["100"],
		 "value_match_type": {"name": "ANY_OF"},
		 "operator": {"name": "CONTAINS", "type": "string"}}
	]}`

	rs := &RuleSet{}
	require.NoError(t, json.Unmarshal([]byte(payload), rs))

	_, err := rs.Evaluate(&model.Transaction{Amount: 100})
	assert.ErrorIs(t, err, ErrNumberFieldUnsupported)
}
