package registry

import "github.com/petal-labs/fractions/fraction"

// builtinDefs holds the catalog text for each legal operator.
var builtinDefs = map[fraction.Operator]OperatorDef{
	fraction.OpMultiply: {
		Name:        "multiply",
		Description: "Multiply the improper forms of both operands",
		Example:     "3_1/2 * 1_3/4",
	},
	fraction.OpDivide: {
		Name:        "divide",
		Description: "Multiply the left operand by the reciprocal of the right one",
		Example:     "4_3/2 / 6_5/4",
	},
	fraction.OpAdd: {
		Name:        "add",
		Description: "Add whole parts and fractions over a common denominator",
		Example:     "3_1/2 + 2_3/5",
	},
	fraction.OpSubtract: {
		Name:        "subtract",
		Description: "Subtract whole parts and fractions over a common denominator",
		Example:     "4_5/4 - 2_1/2",
	},
}

// registerBuiltins registers fraction.Operators in help-text order.
// Called once by Global() during singleton initialization.
func registerBuiltins(r *Registry) {
	for _, op := range fraction.Operators {
		def, ok := builtinDefs[op]
		if !ok {
			def = OperatorDef{Name: string(op)}
		}
		def.Symbol = op
		r.Register(def)
	}
}
