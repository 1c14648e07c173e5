package fraction

// Operator is one of the four supported arithmetic operators.
type Operator string

const (
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
	OpMultiply Operator = "*"
	OpDivide   Operator = "/"
)

// Operators lists the legal operators in the order help text presents them.
var Operators = []Operator{OpMultiply, OpDivide, OpAdd, OpSubtract}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return true
	}
	return false
}

// Apply dispatches to the operation named by op.
func Apply(op Operator, a, b Operand) (Result, error) {
	switch op {
	case OpAdd:
		return Add(a, b)
	case OpSubtract:
		return Subtract(a, b)
	case OpMultiply:
		return Multiply(a, b)
	case OpDivide:
		return Divide(a, b)
	default:
		return Result{}, &IllegalOperatorError{Operator: string(op)}
	}
}

// Add sums the whole parts directly and the fractions over a common denominator.
func Add(a, b Operand) (Result, error) {
	common, m1, m2 := CommonDenominator(a.Denominator, b.Denominator)
	if common == 0 {
		return Result{}, ErrZeroDenominator
	}
	return carry(a.Whole+b.Whole, a.Numerator*m1+b.Numerator*m2, common)
}

// Subtract is Add with the second operand's parts negated.
func Subtract(a, b Operand) (Result, error) {
	common, m1, m2 := CommonDenominator(a.Denominator, b.Denominator)
	if common == 0 {
		return Result{}, ErrZeroDenominator
	}
	return carry(a.Whole-b.Whole, a.Numerator*m1-b.Numerator*m2, common)
}

// Multiply cross-multiplies the improper forms of both operands.
func Multiply(a, b Operand) (Result, error) {
	if a.Denominator == 0 || b.Denominator == 0 {
		return Result{}, ErrZeroDenominator
	}
	return carry(0, a.Improper()*b.Improper(), a.Denominator*b.Denominator)
}

// Divide multiplies the first operand by the reciprocal of the second.
func Divide(a, b Operand) (Result, error) {
	if a.Denominator == 0 || b.Denominator == 0 {
		return Result{}, ErrZeroDenominator
	}
	return carry(0, a.Improper()*b.Denominator, a.Denominator*b.Improper())
}

// carry folds whole units out of numerator/denominator and adds them on top of
// the already combined whole part.
func carry(whole, numerator, denominator int) (Result, error) {
	// Dividing by a zero-valued operand, or overflowing the product, leaves
	// nothing to divide by.
	if denominator == 0 {
		return Result{}, ErrZeroDenominator
	}
	w, rem := ExtractWhole(numerator, denominator)
	return Result{
		Whole:       whole + w,
		Numerator:   rem,
		Denominator: denominator,
	}, nil
}
