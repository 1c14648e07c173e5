package history

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/petal-labs/fractions/runtime"
)

// Recorder turns finished evaluation events into history records.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		logger: logger,
	}
}

// Handle records eval.finished and eval.failed events and ignores the rest.
// It implements runtime.EventHandler semantics.
func (r *Recorder) Handle(e runtime.Event) {
	if e.Kind != runtime.EventEvalFinished && e.Kind != runtime.EventEvalFailed {
		return
	}
	rec := RecordFromEvent(e)
	if err := r.store.Append(context.Background(), rec); err != nil {
		r.logger.Error("failed to record evaluation",
			"session_id", e.SessionID,
			"eval_id", e.EvalID,
			"error", err,
		)
	}
}

// RecordFromEvent builds a Record from a finished evaluation event.
func RecordFromEvent(e runtime.Event) Record {
	id := e.EvalID
	if id == "" {
		id = uuid.New().String()
	}
	return Record{
		ID:         id,
		SessionID:  e.SessionID,
		Expression: e.PayloadString("expression"),
		Operator:   e.PayloadString("operator"),
		Output:     e.PayloadString("output"),
		Result:     e.PayloadString("result"),
		ErrorKind:  e.PayloadString("error_kind"),
		CreatedAt:  e.Time,
		Elapsed:    e.Elapsed,
		TraceID:    e.TraceID,
	}
}
