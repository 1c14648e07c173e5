package fraction

// Resolve parses and evaluates one expression line.
func Resolve(line string) (Result, error) {
	expr, err := SplitExpression(line)
	if err != nil {
		return Result{}, err
	}
	return expr.Resolve()
}

// Resolve evaluates an already split expression. The operator is checked
// before either operand is parsed.
func (e Expression) Resolve() (Result, error) {
	op := Operator(e.Operator)
	if !op.Valid() {
		return Result{}, &IllegalOperatorError{Operator: e.Operator}
	}
	return Apply(op, ParseOperand(e.Operand1), ParseOperand(e.Operand2))
}

// Evaluate resolves line and renders the outcome as text: the canonical
// "= ..." result on success, or the error message on failure.
func Evaluate(line string) string {
	res, err := Resolve(line)
	if err != nil {
		return err.Error()
	}
	return res.String()
}
