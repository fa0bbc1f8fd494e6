package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single bank-statement row from any source.
type Transaction struct {
	Date                time.Time
	ID                  string
	Description         string // Raw statement description
	Communications      string // Free-text communication / remittance info
	Currency            string
	CountryCode         string
	CounterpartyName    string
	CounterpartyAccount string
	AccountNumber       string // Owning bank account
	UserID              string
	Hash                string
	Category            string // Qualified category name, empty when uncategorized
	Amount              float64
	ManuallyAssigned    bool
	NeedsReview         bool
}

// Polarity derives the transaction's polarity from its amount sign.
// Zero amounts classify as revenue.
func (t *Transaction) Polarity() Polarity {
	if t.Amount < 0 {
		return PolarityExpenses
	}
	return PolarityRevenue
}

// AssignCategory records an automatic categorization result, clearing the
// manual-assignment and review flags.
func (t *Transaction) AssignCategory(c *Category) {
	t.Category = c.QualifiedName
	t.ManuallyAssigned = false
	t.NeedsReview = false
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description,
		t.AccountNumber)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Counterparty is a known transaction counterparty, keyed by account number.
// DefaultCategory, when set, is used by the simple categorization path as a
// fallback when no rule matches.
type Counterparty struct {
	CreatedAt       time.Time
	AccountNumber   string
	Name            string
	DefaultCategory string
}
