package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/petal-labs/fractions/fraction"
	"github.com/petal-labs/fractions/runtime"
)

// outcomeJSON is the --format json shape of one evaluation.
type outcomeJSON struct {
	SessionID   string `json:"session_id"`
	EvalID      string `json:"eval_id"`
	Expression  string `json:"expression"`
	Output      string `json:"output"`
	Result      string `json:"result,omitempty"`
	Whole       *int   `json:"whole,omitempty"`
	Numerator   *int   `json:"numerator,omitempty"`
	Denominator *int   `json:"denominator,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	ElapsedNs   int64  `json:"elapsed_ns"`
}

func toOutcomeJSON(out runtime.Outcome) outcomeJSON {
	j := outcomeJSON{
		SessionID:  out.SessionID,
		EvalID:     out.EvalID,
		Expression: out.Expression,
		Output:     out.Output(),
		ElapsedNs:  out.Elapsed.Nanoseconds(),
	}
	if out.Failed() {
		j.Error = out.Err.Error()
		j.ErrorKind = fraction.KindOf(out.Err)
		return j
	}
	r := out.Result
	j.Result = r.Value()
	j.Whole, j.Numerator, j.Denominator = &r.Whole, &r.Numerator, &r.Denominator
	return j
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "marshaling output: %v", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
