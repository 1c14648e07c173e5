package fraction

import (
	"strconv"
	"strings"
)

// Expression is the raw textual form of one input line.
type Expression struct {
	Operand1 string
	Operator string
	Operand2 string
}

// SplitExpression collapses whitespace runs in line and takes the first three
// tokens as operand, operator, operand. Tokens past the third are ignored.
func SplitExpression(line string) (Expression, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 3 {
		return Expression{}, ErrMalformedExpression
	}
	return Expression{
		Operand1: tokens[0],
		Operator: tokens[1],
		Operand2: tokens[2],
	}, nil
}

// ParseOperand converts an operand token into an Operand. Accepted forms are
// "W_N/D", "N/D" and "W"; a whole number without a fraction becomes N/1.
func ParseOperand(token string) Operand {
	if whole, rest, ok := strings.Cut(token, "_"); ok {
		op := Operand{Whole: atoiOr(whole, 0)}
		if strings.Contains(rest, "/") {
			op.Numerator, op.Denominator = parseFraction(rest)
		}
		return op
	}

	if strings.Contains(token, "/") {
		num, den := parseFraction(token)
		return Operand{Numerator: num, Denominator: den}
	}

	return Operand{Numerator: atoiOr(token, 0), Denominator: 1}
}

// parseFraction splits "N/D" and ignores anything after a second slash.
func parseFraction(s string) (int, int) {
	parts := strings.Split(s, "/")
	num := atoiOr(parts[0], 0)
	den := 1
	if len(parts) > 1 {
		den = atoiOr(parts[1], 1)
	}
	return num, den
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
