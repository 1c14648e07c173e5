package fraction

import "testing"

func TestParseOperand(t *testing.T) {
	tests := []struct {
		in   string
		want Operand
	}{
		{"3_1/2", Operand{3, 1, 2}},
		{"4_5/4", Operand{4, 5, 4}},
		{"3_", Operand{3, 0, 0}},
		{"3_1", Operand{3, 0, 0}},
		{"_1/2", Operand{0, 1, 2}},
		{"x_1/2", Operand{0, 1, 2}},
		{"3_a/2", Operand{3, 0, 2}},
		{"3_1/y", Operand{3, 1, 1}},
		{"7/3", Operand{0, 7, 3}},
		{"-1/2", Operand{0, -1, 2}},
		{"1/2/3", Operand{0, 1, 2}},
		{"/5", Operand{0, 0, 5}},
		{"5/", Operand{0, 5, 1}},
		{"7", Operand{0, 7, 1}},
		{"+7", Operand{0, 7, 1}},
		{"abc", Operand{0, 0, 1}},
	}

	for _, tt := range tests {
		if got := ParseOperand(tt.in); got != tt.want {
			t.Errorf("ParseOperand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSplitExpression(t *testing.T) {
	expr, err := SplitExpression("  3_1/2 \n\t*   1_3/4 trailing")
	if err != nil {
		t.Fatalf("SplitExpression: %v", err)
	}
	want := Expression{Operand1: "3_1/2", Operator: "*", Operand2: "1_3/4"}
	if expr != want {
		t.Errorf("got %+v, want %+v", expr, want)
	}

	if _, err := SplitExpression("1/2 +"); err != ErrMalformedExpression {
		t.Errorf("got %v, want ErrMalformedExpression", err)
	}
}

func TestOperand_Improper(t *testing.T) {
	tests := []struct {
		op   Operand
		want int
	}{
		{Operand{3, 1, 2}, 7},
		{Operand{0, 5, 4}, 5},
		{Operand{6, 5, 4}, 29},
	}
	for _, tt := range tests {
		if got := tt.op.Improper(); got != tt.want {
			t.Errorf("%+v.Improper() = %d, want %d", tt.op, got, tt.want)
		}
	}
}
