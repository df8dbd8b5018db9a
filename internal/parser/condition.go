package parser

import (
	"strings"

	"github.com/keaz/qtable/internal/qerrors"
)

// ConditionOp is the operator at one Condition node.
type ConditionOp int

const (
	OpEqual ConditionOp = iota
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpStartsWith
	OpEndsWith
	OpContains
	OpAnd
	OpOr
)

// Condition is the boolean filter tree a WHERE clause parses into.
// Leaf nodes carry Field/Value; And/Or nodes carry Left/Right. Grounded
// on original_source/src/parser.rs's Condition and WildCardOperations
// enums, folded into one Go type since Go has no sum types.
type Condition struct {
	Op    ConditionOp
	Field string
	Value string
	Left  *Condition
	Right *Condition
}

// String renders a Condition canonically, used both for human-readable
// logs and as the cache key table.Table uses to coalesce identical
// concurrent SELECTs (spec.md §4.3 query coalescing).
func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	switch c.Op {
	case OpAnd:
		return "(" + c.Left.String() + " AND " + c.Right.String() + ")"
	case OpOr:
		return "(" + c.Left.String() + " OR " + c.Right.String() + ")"
	default:
		return c.Field + " " + opSymbol(c.Op) + " " + c.Value
	}
}

func opSymbol(op ConditionOp) string {
	switch op {
	case OpEqual:
		return "="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpStartsWith:
		return "STARTS WITH"
	case OpEndsWith:
		return "ENDS WITH"
	case OpContains:
		return "LIKE"
	default:
		return "?"
	}
}

// parseCondition parses a full WHERE clause, left-associatively folding
// AND/OR over parseComplexCondition terms. Grounded on parser.rs's
// parse_condition.
func parseCondition(input string) (*Condition, string, error) {
	input = skipSpace(input)
	cond, rest, err := parseComplexCondition(input)
	if err != nil {
		return nil, "", err
	}

	for {
		trimmed := skipSpace(rest)
		op, after, ok := matchKeywordOp(trimmed)
		if !ok {
			rest = trimmed
			break
		}
		after = skipSpace(after)
		next, after2, err := parseComplexCondition(after)
		if err != nil {
			return nil, "", err
		}
		cond = &Condition{Op: op, Left: cond, Right: next}
		rest = after2
	}
	return cond, rest, nil
}

func matchKeywordOp(input string) (ConditionOp, string, bool) {
	if rest, ok := strings.CutPrefix(input, "AND"); ok {
		return OpAnd, rest, true
	}
	if rest, ok := strings.CutPrefix(input, "OR"); ok {
		return OpOr, rest, true
	}
	return 0, input, false
}

// parseComplexCondition implements the grouping spec.md §9 asks for: real
// recursive descent over '(' ... ')', not original_source's textual
// strip_prefix/strip_suffix hack in parse_complex_condition, which only
// works when the whole remaining input is wrapped in one matching pair.
func parseComplexCondition(input string) (*Condition, string, error) {
	input = skipSpace(input)
	if strings.HasPrefix(input, "(") {
		inner, rest, err := splitBalancedParen(input)
		if err != nil {
			return nil, "", err
		}
		cond, leftover, err := parseCondition(inner)
		if err != nil {
			return nil, "", err
		}
		leftover = skipSpace(leftover)
		if leftover != "" {
			return nil, "", qerrors.NewParseError("unexpected trailing input inside parentheses: " + leftover)
		}
		return cond, rest, nil
	}
	return parseSimpleCondition(input)
}

// splitBalancedParen expects input to start with '(' and returns the
// contents up to its matching ')' plus whatever follows it.
func splitBalancedParen(input string) (inner, rest string, err error) {
	depth := 0
	for i, r := range input {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return input[1:i], input[i+1:], nil
			}
		}
	}
	return "", "", qerrors.NewParseError("unbalanced parentheses in condition: " + input)
}

// simpleOps lists the operator tokens in the same try-order as
// original_source's parse_simple_condition alt(): equal before the
// longer-prefixed operators so "=" isn't mistaken for the start of ">="
// etc. (it can't be, but the order also governs LIKE vs STARTS WITH vs
// ENDS WITH).
var simpleOps = []struct {
	token string
	op    ConditionOp
}{
	{"=", OpEqual},
	{">=", OpGreaterThanOrEqual},
	{">", OpGreaterThan},
	{"<=", OpLessThanOrEqual},
	{"<", OpLessThan},
	{"LIKE", OpContains},
	{"STARTS WITH", OpStartsWith},
	{"ENDS WITH", OpEndsWith},
}

func parseSimpleCondition(input string) (*Condition, string, error) {
	field, afterField := takeWhile(input, isFieldChar)
	if field == "" {
		return nil, "", qerrors.NewSyntaxError(qerrors.InvalidValue, "expected a field name in condition: "+input)
	}
	for _, cand := range simpleOps {
		rest := skipSpace(afterField)
		after, ok := strings.CutPrefix(rest, cand.token)
		if !ok {
			continue
		}
		after = skipSpace(after)
		value, rest2, err := parseValue(after)
		if err != nil {
			continue
		}
		return &Condition{Op: cand.op, Field: field, Value: value}, rest2, nil
	}
	return nil, "", qerrors.NewSyntaxError(qerrors.UnknownOperator, "no operator recognized after field "+field+" in: "+input)
}

// parseValue parses either a '...'-quoted literal or a bare
// alphanumeric/_/- token, grounded on parser.rs's parse_value.
func parseValue(input string) (string, string, error) {
	if strings.HasPrefix(input, "'") {
		rest := input[1:]
		value, after := takeWhile(rest, isValueChar)
		if !strings.HasPrefix(after, "'") {
			return "", "", qerrors.NewSyntaxError(qerrors.InvalidValue, "unterminated quoted value: "+input)
		}
		return value, after[1:], nil
	}
	value, rest := takeWhile(input, isValueChar)
	if value == "" {
		return "", "", qerrors.NewSyntaxError(qerrors.InvalidValue, "expected a value: "+input)
	}
	return value, rest, nil
}

func isFieldChar(r rune) bool {
	return isAlnum(r) || r == '_'
}

func isValueChar(r rune) bool {
	return isAlnum(r) || r == '_' || r == '-'
}
