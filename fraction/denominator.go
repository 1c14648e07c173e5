package fraction

// CommonDenominator returns a denominator shared by d1 and d2 together with the
// multipliers to apply to each numerator. Both denominators zero yields
// (0, 0, 0), which callers treat as ErrZeroDenominator.
func CommonDenominator(d1, d2 int) (common, m1, m2 int) {
	// A single zero denominator normally means a malformed operand ("3_").
	// It still resolves against the other side so that "3_ + 1/2" keeps
	// evaluating as it always has; see DESIGN.md.
	switch {
	case d1 == 0 && d2 != 0:
		return d2, d2, 1
	case d2 == 0 && d1 != 0:
		return d1, 1, d1
	case d1 == 0 && d2 == 0:
		return 0, 0, 0
	}

	switch {
	case d1%d2 == 0:
		return d1, 1, d1 / d2
	case d2%d1 == 0:
		return d2, d2 / d1, 1
	default:
		return d1 * d2, d2, d1
	}
}

// ExtractWhole moves whole units out of numerator/denominator. Only a
// numerator strictly greater than the denominator carries, so 4/4 stays 4/4.
func ExtractWhole(numerator, denominator int) (whole, remainder int) {
	if numerator > denominator {
		return numerator / denominator, numerator % denominator
	}
	return 0, numerator
}
