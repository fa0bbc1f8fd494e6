package rule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coinsort/coinsort/internal/model"
)

// The wire schema below is the contract a rule-authoring surface reads and
// writes verbatim; it must round-trip exactly.
//
//	{
//	  "condition": "AND",
//	  "is_child": false,
//	  "type": "EXPENSES",
//	  "rules": [
//	    {
//	      "field": ["communications"],
//	      "field_type": "string",
//	      "value": ["groceries"],
//	      "value_match_type": {"name": "ANY_OF"},
//	      "operator": {"name": "CONTAINS", "type": "string"}
//	    }
//	  ]
//	}
//
// A child entry is a nested rule set when it carries a "condition" key,
// otherwise it is a leaf rule.

type matchTypeJSON struct {
	Name string `json:"name"`
}

type operatorJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ruleJSON struct {
	Field          []string      `json:"field"`
	FieldType      string        `json:"field_type"`
	Value          []string      `json:"value"`
	ValueMatchType matchTypeJSON `json:"value_match_type"`
	Operator       operatorJSON  `json:"operator"`
}

type ruleSetJSON struct {
	Condition string            `json:"condition"`
	Rules     []json.RawMessage `json:"rules"`
	IsChild   bool              `json:"is_child"`
	Type      string            `json:"type,omitempty"`
}

// operatorScope is the value class an operator applies to, serialized as
// operator.type. Both supported operators are string-scoped.
func operatorScope(op Operator) string {
	switch op {
	case OperatorContains, OperatorExactMatch:
		return "string"
	default:
		return ""
	}
}

// MarshalJSON encodes the rule in its wire form.
func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleJSON{
		Field:          r.Fields,
		FieldType:      string(r.FieldType),
		Value:          r.Values,
		ValueMatchType: matchTypeJSON{Name: string(r.MatchType)},
		Operator: operatorJSON{
			Name: string(r.Operator),
			Type: operatorScope(r.Operator),
		},
	})
}

// UnmarshalJSON decodes and compiles a rule from its wire form. Schema-valid
// number rules decode successfully; they fail at evaluation instead.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var wire ruleJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Fields = wire.Field
	r.FieldType = FieldType(wire.FieldType)
	r.Values = wire.Value
	r.MatchType = MatchType(wire.ValueMatchType.Name)
	r.Operator = Operator(wire.Operator.Name)

	if err := r.validateWire(); err != nil {
		return err
	}
	return r.compile()
}

// validateWire is decode-time validation: it enforces the structural
// invariants but, unlike validate, admits the number field type so persisted
// number rules remain representable.
func (r *Rule) validateWire() error {
	if len(r.Fields) == 0 {
		return ErrNoFields
	}
	if len(r.Values) == 0 {
		return ErrNoValues
	}
	for _, field := range r.Fields {
		if strings.Count(field, ".") > 1 {
			return fmt.Errorf("%w: %q", ErrTooManySeparators, field)
		}
	}
	switch r.FieldType {
	case FieldTypeString, FieldTypeCategorical, FieldTypeNumber:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFieldType, r.FieldType)
	}
	switch r.MatchType {
	case MatchAnyOf, MatchAllOf:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMatchType, r.MatchType)
	}
	switch r.Operator {
	case OperatorContains, OperatorExactMatch:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOperator, r.Operator)
	}
	if r.Operator == OperatorExactMatch && r.MatchType == MatchAllOf {
		return ErrExactMatchAllOf
	}
	// An empty candidate compiles to a pattern that matches everything, so a
	// payload carrying one must be rejected, not degraded to match-all.
	for _, value := range r.Values {
		if value == "" {
			return fmt.Errorf("%w: empty value", ErrValueTypeMismatch)
		}
	}
	return nil
}

// MarshalJSON encodes the rule set and its children in wire form.
func (rs *RuleSet) MarshalJSON() ([]byte, error) {
	wire := ruleSetJSON{
		Condition: string(rs.Condition),
		Rules:     make([]json.RawMessage, 0, len(rs.Children)),
		IsChild:   rs.IsChild,
		Type:      string(rs.Polarity),
	}
	for _, child := range rs.Children {
		var (
			data []byte
			err  error
		)
		if child.Kind == KindSet {
			data, err = json.Marshal(child.Set)
		} else {
			data, err = json.Marshal(child.Rule)
		}
		if err != nil {
			return nil, err
		}
		wire.Rules = append(wire.Rules, data)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a rule set, recursing into nested sets. An entry in
// rules[] is treated as a nested set when it carries a "condition" key.
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var wire ruleSetJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch Condition(wire.Condition) {
	case ConditionAnd, ConditionOr:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCondition, wire.Condition)
	}

	rs.Condition = Condition(wire.Condition)
	rs.IsChild = wire.IsChild
	rs.Polarity = model.Polarity(wire.Type)
	rs.Children = make([]Node, 0, len(wire.Rules))

	for _, raw := range wire.Rules {
		var probe struct {
			Condition *string `json:"condition"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return err
		}
		if probe.Condition != nil {
			child := &RuleSet{}
			if err := json.Unmarshal(raw, child); err != nil {
				return err
			}
			child.IsChild = true
			rs.Children = append(rs.Children, Node{Kind: KindSet, Set: child})
			continue
		}
		leaf := &Rule{}
		if err := json.Unmarshal(raw, leaf); err != nil {
			return err
		}
		rs.Children = append(rs.Children, Node{Kind: KindRule, Rule: leaf})
	}
	return nil
}
