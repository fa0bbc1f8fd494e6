package rule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coinsort/coinsort/internal/model"
)

// RuleSetWrapper binds a serialized rule set to exactly one category,
// identified by qualified name. Wrappers are created lazily on first access
// for a category and reused for every user that references it; they are never
// deleted while the category exists.
type RuleSetWrapper struct {
	CreatedAt             time.Time
	UpdatedAt             time.Time
	CategoryQualifiedName string
	Payload               string
	Polarity              model.Polarity
	ID                    int64
}

// RuleSet deserializes the stored expression. A malformed or empty payload
// yields nil rather than an error; callers must treat nil as "never matches".
// The binding category's polarity is propagated to every node, since a
// persisted expression may not carry it everywhere.
func (w *RuleSetWrapper) RuleSet() *RuleSet {
	if w.Payload == "" {
		return nil
	}
	rs := &RuleSet{}
	if err := json.Unmarshal([]byte(w.Payload), rs); err != nil {
		slog.Debug("discarding malformed rule set payload",
			"category", w.CategoryQualifiedName,
			"error", err)
		return nil
	}
	rs.PropagatePolarity(w.Polarity)
	return rs
}

// SetRuleSet re-serializes the expression into the wrapper, stamping the
// wrapper's polarity onto every node first.
func (w *RuleSetWrapper) SetRuleSet(rs *RuleSet) error {
	rs.PropagatePolarity(w.Polarity)
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("failed to serialize rule set: %w", err)
	}
	w.Payload = string(data)
	return nil
}
