package fraction

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedExpression is returned when a line has fewer than three tokens.
	ErrMalformedExpression = errors.New("Failed to get operands and operators")

	// ErrZeroDenominator is returned when an operand, or the result of a
	// division, has a zero denominator.
	ErrZeroDenominator = errors.New("Cannot have denominators equal to 0")
)

// IllegalOperatorError reports an operator token outside + - * /.
type IllegalOperatorError struct {
	Operator string
}

func (e *IllegalOperatorError) Error() string {
	return fmt.Sprintf("Illegal operator %s", e.Operator)
}

// Error kinds used in metrics, history records and API payloads.
const (
	KindMalformedExpression = "malformed_expression"
	KindZeroDenominator     = "zero_denominator"
	KindIllegalOperator     = "illegal_operator"
)

// KindOf classifies an evaluation error. It returns "" for nil and for errors
// that did not come from this package.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var opErr *IllegalOperatorError
	switch {
	case errors.Is(err, ErrMalformedExpression):
		return KindMalformedExpression
	case errors.Is(err, ErrZeroDenominator):
		return KindZeroDenominator
	case errors.As(err, &opErr):
		return KindIllegalOperator
	default:
		return ""
	}
}
