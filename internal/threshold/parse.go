// Package threshold parses and evaluates the run's pass/fail thresholds
// (§4.7) against a Metrics Engine snapshot.
package threshold

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nogcio/wrkr/internal/value"
)

// Aggregation is the left-hand aggregation function applied to a matched
// series before comparison.
type Aggregation struct {
	Kind AggKind
	P    int // percentile argument, only meaningful when Kind == AggP
}

// AggKind enumerates the grammar's AGG production.
type AggKind uint8

const (
	AggAvg AggKind = iota
	AggMin
	AggMax
	AggCount
	AggRate
	AggP
)

// Op is the comparison operator.
type Op uint8

const (
	OpLT Op = iota
	OpLE
	OpGT
	OpGE
	OpEQ
)

// Expr is the parsed EXPR production: AGG OP NUMBER.
type Expr struct {
	Agg Aggregation
	Op  Op
	RHS float64
}

// Threshold is one fully parsed threshold: a metric key, optional tag
// selector and a comparison expression.
type Threshold struct {
	Raw      string
	Metric   string
	Selector value.Tags
	Expr     Expr
}

// Parse parses one threshold string of the form `metric{tag=val,...} agg OP
// number`, e.g. `http_req_duration{group=login} p(95) < 300`. The selector
// braces are optional; the expression may also be supplied separately (some
// callers pass KEY and EXPR as two strings from YAML's
// `metric: ["p(95)<300"]` shorthand) via ParseKeyAndExpr.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	key := s
	exprStr := ""
	if i := splitKeyExpr(s); i >= 0 {
		key = strings.TrimSpace(s[:i])
		exprStr = strings.TrimSpace(s[i:])
	}
	return ParseKeyAndExpr(key, exprStr)
}

// splitKeyExpr finds the boundary between KEY and EXPR: the start of the
// aggregation token that precedes the first operator rune occurring after
// any selector braces have closed.
func splitKeyExpr(s string) int {
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		case '<', '>', '=':
			if depth == 0 {
				head := strings.TrimRight(s[:i], " \t")
				return strings.LastIndexAny(head, " \t}") + 1
			}
		}
	}
	return -1
}

// ParseKeyAndExpr parses the KEY (`metric` or `metric{sel}`) and EXPR
// (`agg OP number`) independently.
func ParseKeyAndExpr(key, expr string) (Threshold, error) {
	metric, selector, err := parseKey(key)
	if err != nil {
		return Threshold{}, err
	}
	e, err := parseExpr(expr)
	if err != nil {
		return Threshold{}, err
	}
	return Threshold{Raw: key + " " + expr, Metric: metric, Selector: selector, Expr: e}, nil
}

func parseKey(key string) (string, value.Tags, error) {
	key = strings.TrimSpace(key)
	open := strings.IndexByte(key, '{')
	if open < 0 {
		if key == "" {
			return "", value.Tags{}, fmt.Errorf("threshold: empty metric name")
		}
		return key, value.NewTags(), nil
	}
	if !strings.HasSuffix(key, "}") {
		return "", value.Tags{}, fmt.Errorf("threshold: unterminated selector in %q", key)
	}
	metric := strings.TrimSpace(key[:open])
	if metric == "" {
		return "", value.Tags{}, fmt.Errorf("threshold: empty metric name in %q", key)
	}
	body := key[open+1 : len(key)-1]
	tags := value.NewTags()
	if strings.TrimSpace(body) != "" {
		for _, pair := range strings.Split(body, ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				return "", value.Tags{}, fmt.Errorf("threshold: malformed selector pair %q", pair)
			}
			name := strings.TrimSpace(kv[0])
			val := strings.TrimSpace(kv[1])
			if name == "" || val == "" {
				return "", value.Tags{}, fmt.Errorf("threshold: malformed selector pair %q", pair)
			}
			tags = tags.With(name, value.TagString(val))
		}
	}
	return metric, tags, nil
}

func parseExpr(expr string) (Expr, error) {
	expr = strings.TrimSpace(expr)
	op, opLen, opIdx, err := findOp(expr)
	if err != nil {
		return Expr{}, err
	}
	aggStr := strings.TrimSpace(expr[:opIdx])
	rhsStr := strings.TrimSpace(expr[opIdx+opLen:])

	agg, err := parseAgg(aggStr)
	if err != nil {
		return Expr{}, err
	}
	rhs, err := strconv.ParseFloat(rhsStr, 64)
	if err != nil {
		return Expr{}, fmt.Errorf("threshold: invalid rhs number %q: %w", rhsStr, err)
	}
	return Expr{Agg: agg, Op: op, RHS: rhs}, nil
}

// findOp locates the comparison operator, preferring the two-rune forms so
// "<=" isn't mistaken for "<" followed by a stray "=".
func findOp(expr string) (Op, int, int, error) {
	for i := 0; i < len(expr); i++ {
		switch {
		case strings.HasPrefix(expr[i:], "<="):
			return OpLE, 2, i, nil
		case strings.HasPrefix(expr[i:], ">="):
			return OpGE, 2, i, nil
		case strings.HasPrefix(expr[i:], "=="):
			return OpEQ, 2, i, nil
		case expr[i] == '<':
			return OpLT, 1, i, nil
		case expr[i] == '>':
			return OpGT, 1, i, nil
		}
	}
	return 0, 0, 0, fmt.Errorf("threshold: missing comparison operator in %q", expr)
}

func parseAgg(s string) (Aggregation, error) {
	switch s {
	case "avg":
		return Aggregation{Kind: AggAvg}, nil
	case "min":
		return Aggregation{Kind: AggMin}, nil
	case "max":
		return Aggregation{Kind: AggMax}, nil
	case "count":
		return Aggregation{Kind: AggCount}, nil
	case "rate":
		return Aggregation{Kind: AggRate}, nil
	}
	if strings.HasPrefix(s, "p(") && strings.HasSuffix(s, ")") {
		n, err := strconv.Atoi(s[2 : len(s)-1])
		if err != nil || n < 1 || n > 100 {
			return Aggregation{}, fmt.Errorf("threshold: invalid percentile aggregation %q", s)
		}
		return Aggregation{Kind: AggP, P: n}, nil
	}
	return Aggregation{}, fmt.Errorf("threshold: unknown aggregation %q", s)
}
