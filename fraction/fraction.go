// Package fraction evaluates single binary expressions over mixed numbers,
// improper fractions and whole numbers, e.g. "3_1/2 + 2_3/5".
//
// Results are never reduced to lowest terms: "4_3/2 / 6_5/4" evaluates to
// "= 44/58". Integer components that fail to parse silently default to 0
// (whole, numerator) or 1 (denominator).
package fraction

import "fmt"

// Operand is a parsed mixed number: Whole + Numerator/Denominator.
// A zero Denominator marks a malformed operand, such as "3_" with no fraction.
type Operand struct {
	Whole       int
	Numerator   int
	Denominator int
}

// Improper returns the operand's numerator with the whole part folded in.
// Operands without a whole part keep their numerator unchanged.
func (o Operand) Improper() int {
	if o.Whole == 0 {
		return o.Numerator
	}
	return o.Numerator + o.Denominator*o.Whole
}

// Result is the outcome of an evaluation before it is rendered as text.
type Result struct {
	Whole       int
	Numerator   int
	Denominator int
}

// String renders the result in its canonical form: "= W_N/D", "= N/D" or "= W".
// A zero whole part always prints the fraction, even "= 0/D".
func (r Result) String() string {
	switch {
	case r.Numerator != 0 && r.Whole != 0:
		return fmt.Sprintf("= %d_%d/%d", r.Whole, r.Numerator, r.Denominator)
	case r.Whole == 0:
		return fmt.Sprintf("= %d/%d", r.Numerator, r.Denominator)
	default:
		return fmt.Sprintf("= %d", r.Whole)
	}
}

// Value returns the result text without the leading "= ", which is itself a
// valid operand.
func (r Result) Value() string {
	return r.String()[2:]
}
