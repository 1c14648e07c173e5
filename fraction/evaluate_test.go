package fraction

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
)

func TestEvaluate_Operations(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"addition", "3_1/2 + 2_3/5", "= 6_1/10"},
		{"subtraction", "4_5/4 - 2_1/2", "= 2_3/4"},
		{"multiplication", "3_1/2 * 1_3/4", "= 6_1/8"},
		{"division unreduced", "4_3/2 / 6_5/4", "= 44/58"},
		{"improper sum carries", "1/2 + 3/4", "= 1_1/4"},
		{"equal numerator and denominator not carried", "1/2 + 1/2", "= 2/2"},
		{"whole numbers", "5 + 3", "= 8"},
		{"whole product", "2 * 3", "= 6"},
		{"zero difference", "1 - 1", "= 0/1"},
		{"negative difference", "1/2 - 3/4", "= -1/4"},
		{"negative numerator with whole", "2_1/4 - 1_1/2", "= 1_-1/4"},
		{"unparseable operand defaults", "abc + 1/2", "= 1/2"},
		{"unparseable denominator defaults to one", "1/x + 1/2", "= 1_1/2"},
		{"extra tokens ignored", "1/2 + 1/3 * 9", "= 5/6"},
		{"one zero denominator resolves against the other", "3_ + 1/2", "= 3_1/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.in); got != tt.want {
				t.Errorf("Evaluate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "Failed to get operands and operators"},
		{"1/2 +", "Failed to get operands and operators"},
		{"   \n  ", "Failed to get operands and operators"},
		{"3_ + 4_", "Cannot have denominators equal to 0"},
		{"3_ - 4_", "Cannot have denominators equal to 0"},
		{"3_ * 1/2", "Cannot have denominators equal to 0"},
		{"1/2 / 4_", "Cannot have denominators equal to 0"},
		{"1/2 / 0", "Cannot have denominators equal to 0"},
		{"1/2 % 1/3", "Illegal operator %"},
		{"1/2 x 1/3", "Illegal operator x"},
	}

	for _, tt := range tests {
		if got := Evaluate(tt.in); got != tt.want {
			t.Errorf("Evaluate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEvaluate_WhitespaceNormalization(t *testing.T) {
	want := Evaluate("1/2 + 3/4")
	for _, in := range []string{
		"1/2\n\n +   3/4",
		"  1/2 + 3/4  ",
		"1/2\t+\t3/4",
		"1/2\r\n+ 3/4\n",
	} {
		if got := Evaluate(in); got != want {
			t.Errorf("Evaluate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve_ErrorKinds(t *testing.T) {
	_, err := Resolve("1/2")
	if !errors.Is(err, ErrMalformedExpression) {
		t.Fatalf("got %v, want ErrMalformedExpression", err)
	}

	_, err = Resolve("3_ + 3_")
	if !errors.Is(err, ErrZeroDenominator) {
		t.Fatalf("got %v, want ErrZeroDenominator", err)
	}

	_, err = Resolve("1 ^ 2")
	var opErr *IllegalOperatorError
	if !errors.As(err, &opErr) {
		t.Fatalf("got %v, want *IllegalOperatorError", err)
	}
	if opErr.Operator != "^" {
		t.Errorf("Operator = %q, want %q", opErr.Operator, "^")
	}
}

func TestResolve_Result(t *testing.T) {
	res, err := Resolve("3_1/2 + 2_3/5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := Result{Whole: 6, Numerator: 1, Denominator: 10}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrMalformedExpression, KindMalformedExpression},
		{fmt.Errorf("evaluating: %w", ErrZeroDenominator), KindZeroDenominator},
		{&IllegalOperatorError{Operator: "%"}, KindIllegalOperator},
		{errors.New("other"), ""},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// value returns w + n/d as an exact rational.
func value(w, n, d int) *big.Rat {
	r := big.NewRat(int64(n), int64(d))
	return r.Add(r, big.NewRat(int64(w), 1))
}

func TestAddThenSubtract_RoundTrips(t *testing.T) {
	operands := []string{"3_1/2", "2_3/5", "1/3", "7/4", "5", "1_5/6", "9/8", "2_3/8"}

	for _, a := range operands {
		for _, b := range operands {
			sum, err := Resolve(a + " + " + b)
			if err != nil {
				t.Fatalf("%s + %s: %v", a, b, err)
			}
			back, err := Resolve(sum.Value() + " - " + b)
			if err != nil {
				t.Fatalf("%s - %s: %v", sum.Value(), b, err)
			}

			orig := ParseOperand(a)
			want := value(orig.Whole, orig.Numerator, orig.Denominator)
			got := value(back.Whole, back.Numerator, back.Denominator)
			if got.Cmp(want) != 0 {
				t.Errorf("(%s + %s) - %s = %s (%s), want %s",
					a, b, b, strings.TrimPrefix(back.String(), "= "), got, want)
			}
		}
	}
}
