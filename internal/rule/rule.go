// Package rule implements the recursive predicate language used to
// categorize transactions: leaf Rules testing transaction fields, AND/OR
// RuleSets combining them, and the wrapper binding a serialized rule set to
// one category.
package rule

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/coinsort/coinsort/internal/model"
)

// FieldType describes the value domain a rule's selectors resolve to.
type FieldType string

// Supported field types. Number is representable but its evaluation is
// unimplemented; see ErrNumberFieldUnsupported.
const (
	FieldTypeString      FieldType = "string"
	FieldTypeCategorical FieldType = "categorical"
	FieldTypeNumber      FieldType = "number"
)

// MatchType controls whether one or all candidate values must match.
type MatchType string

// Value-match combinators.
const (
	MatchAnyOf MatchType = "ANY_OF"
	MatchAllOf MatchType = "ALL_OF"
)

// Operator is the comparison applied between a resolved field value and a
// candidate value.
type Operator string

// Supported operators. Both are scoped to string and categorical fields.
const (
	OperatorContains   Operator = "CONTAINS"
	OperatorExactMatch Operator = "EXACT_MATCH"
)

// Construction and evaluation errors.
var (
	ErrNoFields               = errors.New("rule requires at least one field selector")
	ErrNoValues               = errors.New("rule requires at least one candidate value")
	ErrTooManySeparators      = errors.New("field selector may contain at most one separator")
	ErrInvalidFieldType       = errors.New("invalid field type")
	ErrInvalidMatchType       = errors.New("invalid value match type")
	ErrInvalidOperator        = errors.New("invalid operator")
	ErrOperatorMismatch       = errors.New("operator is not legal for field type")
	ErrExactMatchAllOf        = errors.New("EXACT_MATCH is only compatible with ANY_OF")
	ErrValueTypeMismatch      = errors.New("candidate value does not agree with field type")
	ErrNumberFieldUnsupported = errors.New("evaluation of number fields is not implemented")
)

// fieldGetter resolves one selector against a transaction. The boolean is
// false when the field is absent on the record.
type fieldGetter func(*model.Transaction) (string, bool)

// fieldAccessors maps every known selector, including the one-level
// object.attribute forms, to a typed extraction function. Resolution happens
// once at rule-compile time, never via reflection.
var fieldAccessors = map[string]fieldGetter{
	"description": func(t *model.Transaction) (string, bool) {
		return t.Description, true
	},
	"communications": func(t *model.Transaction) (string, bool) {
		return t.Communications, true
	},
	"currency": func(t *model.Transaction) (string, bool) {
		return t.Currency, true
	},
	"country_code": func(t *model.Transaction) (string, bool) {
		return t.CountryCode, true
	},
	"counterparty.name": func(t *model.Transaction) (string, bool) {
		return t.CounterpartyName, true
	},
	"counterparty.account_number": func(t *model.Transaction) (string, bool) {
		return t.CounterpartyAccount, true
	},
	"bank_account.account_number": func(t *model.Transaction) (string, bool) {
		return t.AccountNumber, true
	},
}

// Rule is a leaf predicate: it tests one or more transaction fields against a
// list of candidate values. Selectors are OR'd together; the combinator only
// governs how the candidate values combine for a single resolved field value.
type Rule struct {
	Fields    []string
	FieldType FieldType
	Values    []string
	MatchType MatchType
	Operator  Operator

	getters  []fieldGetter
	patterns []*regexp.Regexp
}

// New constructs and validates a rule. Validation failures are returned
// immediately; they are never coerced or downgraded.
func New(fields []string, fieldType FieldType, values []string, matchType MatchType, operator Operator) (*Rule, error) {
	r := &Rule{
		Fields:    fields,
		FieldType: fieldType,
		Values:    values,
		MatchType: matchType,
		Operator:  operator,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rule) validate() error {
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

	// Both operators are string/categorical scoped, so a number rule has no
	// legal operator and cannot be constructed through this API.
	if r.FieldType == FieldTypeNumber {
		return fmt.Errorf("%w: %s on %s", ErrOperatorMismatch, r.Operator, r.FieldType)
	}
	if r.Operator == OperatorExactMatch && r.MatchType == MatchAllOf {
		return ErrExactMatchAllOf
	}
	for _, value := range r.Values {
		if value == "" {
			return fmt.Errorf("%w: empty value", ErrValueTypeMismatch)
		}
	}
	return nil
}

// compile resolves field accessors and precompiles one pattern per candidate
// value. A selector with no accessor contributes no match at evaluation time
// rather than failing here.
func (r *Rule) compile() error {
	r.getters = make([]fieldGetter, len(r.Fields))
	for i, field := range r.Fields {
		r.getters[i] = fieldAccessors[field]
	}

	r.patterns = make([]*regexp.Regexp, 0, len(r.Values))
	for _, value := range r.Values {
		re, err := compilePattern(value, r.Operator)
		if err != nil {
			return fmt.Errorf("failed to compile pattern for %q: %w", value, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return nil
}

// compilePattern turns a candidate value into a case-insensitive pattern
// where each literal space matches zero or more whitespace characters,
// tolerating the irregular spacing of real-world bank text.
func compilePattern(value string, operator Operator) (*regexp.Regexp, error) {
	parts := strings.Split(value, " ")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	expr := strings.Join(parts, `\s*`)
	if operator == OperatorExactMatch {
		expr = "^" + expr + "$"
	}
	return regexp.Compile("(?i)" + expr)
}

// Evaluate reports whether the rule matches the transaction. The rule matches
// when any selector's resolved value satisfies the combinator test over the
// candidate values.
func (r *Rule) Evaluate(txn *model.Transaction) (bool, error) {
	if r.FieldType == FieldTypeNumber {
		return false, ErrNumberFieldUnsupported
	}
	for _, getter := range r.getters {
		if getter == nil {
			// Unknown selector: no match for this selector, not a failure.
			continue
		}
		value, ok := getter(txn)
		if !ok {
			continue
		}
		if r.matchValue(value) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Rule) matchValue(value string) bool {
	switch r.MatchType {
	case MatchAllOf:
		for _, re := range r.patterns {
			if !re.MatchString(value) {
				return false
			}
		}
		return true
	default: // MatchAnyOf
		for _, re := range r.patterns {
			if re.MatchString(value) {
				return true
			}
		}
		return false
	}
}
