// Package history keeps a log of evaluated expressions so they can be
// listed from the CLI or the HTTP API.
package history

import (
	"context"
	"time"
)

// Record is one evaluated expression.
type Record struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	Expression string        `json:"expression"`
	Operator   string        `json:"operator,omitempty"`
	Output     string        `json:"output"`
	Result     string        `json:"result,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	TraceID    string        `json:"trace_id,omitempty"`
}

// Failed reports whether the record holds an error message instead of a result.
func (r Record) Failed() bool {
	return r.ErrorKind != ""
}

// ListOptions filters List results.
type ListOptions struct {
	// SessionID restricts results to one session (empty = all sessions).
	SessionID string

	// Limit caps the number of records returned (0 = no limit).
	Limit int

	// FailedOnly returns only records whose evaluation failed.
	FailedOnly bool
}

// Retention bounds how much history a store keeps. Zero values disable the
// corresponding rule.
type Retention struct {
	MaxAge   time.Duration
	MaxCount int
}

// Enabled reports whether any retention rule is set.
func (r Retention) Enabled() bool {
	return r.MaxAge > 0 || r.MaxCount > 0
}

// Store persists evaluation records.
type Store interface {
	// Append stores a record.
	Append(ctx context.Context, rec Record) error

	// List returns records newest first.
	List(ctx context.Context, opts ListOptions) ([]Record, error)

	// Clear deletes every record and returns how many were removed.
	Clear(ctx context.Context) (int64, error)

	// Prune applies the store's retention rules and returns how many
	// records were removed.
	Prune(ctx context.Context) (int64, error)

	// Close releases resources.
	Close() error
}
