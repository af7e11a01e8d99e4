package assistant

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var arithmeticPattern = regexp.MustCompile(`(-?\d+(?:[.,]\d+)?)\s*(\+|-|\*|/|más|mas|menos|por|entre)\s*(-?\d+(?:[.,]\d+)?)`)

// ErrDivisionByZero is reported for "x / 0" expressions.
var ErrDivisionByZero = errors.New("división por cero")

var operatorSymbols = map[string]string{
	"+": "+", "más": "+", "mas": "+",
	"-": "-", "menos": "-",
	"*": "*", "por": "*",
	"/": "/", "entre": "/",
}

// Expression is one parsed two-operand arithmetic expression.
type Expression struct {
	Left     float64
	Right    float64
	Operator string
}

// ParseExpression finds the first arithmetic expression in text.
func ParseExpression(text string) (Expression, bool) {
	m := arithmeticPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return Expression{}, false
	}
	left, err := parseNumber(m[1])
	if err != nil {
		return Expression{}, false
	}
	right, err := parseNumber(m[3])
	if err != nil {
		return Expression{}, false
	}
	return Expression{Left: left, Right: right, Operator: operatorSymbols[m[2]]}, true
}

func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}

// Eval computes the expression.
func (e Expression) Eval() (float64, error) {
	switch e.Operator {
	case "+":
		return e.Left + e.Right, nil
	case "-":
		return e.Left - e.Right, nil
	case "*":
		return e.Left * e.Right, nil
	case "/":
		if e.Right == 0 {
			return 0, ErrDivisionByZero
		}
		return e.Left / e.Right, nil
	}
	return 0, fmt.Errorf("unsupported operator %q", e.Operator)
}

// String renders the expression with symbolic operators, e.g. "2 + 2".
func (e Expression) String() string {
	return fmt.Sprintf("%s %s %s", formatNumber(e.Left), e.Operator, formatNumber(e.Right))
}

func formatNumber(v float64) string {
	v = math.Round(v*10000) / 10000
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
