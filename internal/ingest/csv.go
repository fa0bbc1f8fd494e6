// Package ingest converts uploaded bank-statement rows into transactions.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coinsort/coinsort/internal/model"
)

// dateLayouts are tried in order when parsing statement dates.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
}

// CSVParser reads bank-statement CSV exports. The first row must be a header;
// recognized columns (case-insensitive): id, date, amount, currency,
// description, communications, country_code, counterparty_name,
// counterparty_account. Unrecognized columns are ignored.
type CSVParser struct{}

// NewCSVParser creates a CSV statement parser.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// ParseFile parses statement rows for one user and bank account. Rows without
// an id column get a generated UUID.
func (p *CSVParser) ParseFile(r io.Reader, userID, accountNumber string) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "amount", "description"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required CSV column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var transactions []model.Transaction
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(field(record, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := parseAmount(field(record, "amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		txn := model.Transaction{
			ID:                  field(record, "id"),
			Date:                date,
			Amount:              amount,
			Currency:            field(record, "currency"),
			Description:         field(record, "description"),
			Communications:      field(record, "communications"),
			CountryCode:         field(record, "country_code"),
			CounterpartyName:    field(record, "counterparty_name"),
			CounterpartyAccount: field(record, "counterparty_account"),
			AccountNumber:       accountNumber,
			UserID:              userID,
		}
		if txn.ID == "" {
			txn.ID = uuid.NewString()
		}
		txn.Hash = txn.GenerateHash()
		transactions = append(transactions, txn)
	}

	return transactions, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func parseAmount(value string) (float64, error) {
	cleaned := strings.ReplaceAll(value, " ", "")
	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			// 1,234.56 style: comma is a thousands separator.
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			// 1234,56 style: comma is the decimal separator.
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized amount %q", value)
	}
	return amount, nil
}
