package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParser_ParseFile(t *testing.T) {
	input := strings.Join([]string{
		"id,date,amount,currency,description,counterparty_name,counterparty_account",
		"t1,2024-03-15,-42.50,EUR,DELHAIZE BRUSSELS,Delhaize,BE01",
		",2024-03-16,2500.00,EUR,Monthly salary,,",
	}, "\n")

	parser := NewCSVParser()
	transactions, err := parser.ParseFile(strings.NewReader(input), "alice", "BE68539007547034")
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	first := transactions[0]
	assert.Equal(t, "t1", first.ID)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, -42.50, first.Amount)
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, "DELHAIZE BRUSSELS", first.Description)
	assert.Equal(t, "Delhaize", first.CounterpartyName)
	assert.Equal(t, "BE01", first.CounterpartyAccount)
	assert.Equal(t, "alice", first.UserID)
	assert.Equal(t, "BE68539007547034", first.AccountNumber)
	assert.NotEmpty(t, first.Hash)

	// Rows without an id get a generated one.
	second := transactions[1]
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCSVParser_MissingRequiredColumn(t *testing.T) {
	input := "id,date,description\nt1,2024-03-15,something\n"

	parser := NewCSVParser()
	_, err := parser.ParseFile(strings.NewReader(input), "alice", "ACC-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestCSVParser_ReportsBadRows(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		wants string
	}{
		{"bad date", "t1,15 March 2024,-10.00,x", "line 2"},
		{"bad amount", "t1,2024-03-15,ten,x", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "id,date,amount,description\n" + tt.row + "\n"
			parser := NewCSVParser()
			_, err := parser.ParseFile(strings.NewReader(input), "alice", "ACC-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wants)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15-03-2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := parseDate(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := parseDate("yesterday")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"-42.50", -42.50},
		{"1,234.56", 1234.56},
		{"1234,56", 1234.56},
		{"-1 234,56", -1234.56},
		{"0", 0},
	}

	for _, tt := range tests {
		got, err := parseAmount(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := parseAmount("ten euro")
	assert.Error(t, err)
}
