package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/petal-labs/fractions/fraction"
	"github.com/petal-labs/fractions/history"
	"github.com/petal-labs/fractions/registry"
	"github.com/petal-labs/fractions/runtime"
)

const defaultHistoryLimit = 100

// EvaluateRequest is the body of POST /api/evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression"`
	SessionID  string `json:"session_id,omitempty"`
}

// EvaluateResponse describes one successful evaluation.
type EvaluateResponse struct {
	SessionID   string `json:"session_id"`
	EvalID      string `json:"eval_id"`
	Expression  string `json:"expression"`
	Result      string `json:"result"`
	Output      string `json:"output"`
	Whole       int    `json:"whole"`
	Numerator   int    `json:"numerator"`
	Denominator int    `json:"denominator"`
}

// BatchRequest is the body of POST /api/evaluate/batch.
type BatchRequest struct {
	Expressions []string `json:"expressions"`
	SessionID   string   `json:"session_id,omitempty"`
}

// BatchItem is one entry of a batch response. Error is set instead of the
// result fields when the expression failed.
type BatchItem struct {
	EvaluateResponse
	Error *apiErrorBody `json:"error,omitempty"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListOperators returns the legal operators with a worked example each.
func (s *Server) handleListOperators(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, registry.Global().All())
}

// handleEvaluate evaluates one expression. Expressions that evaluate to an
// error message are reported with 422 and the fixed message text.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	// A blank expression is the evaluator's own malformed-expression case.
	out := s.evaluate(req.SessionID, req.Expression)
	if out.Failed() {
		writeError(w, http.StatusUnprocessableEntity, errorCode(out.Err), out.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toEvaluateResponse(out))
}

// handleEvaluateBatch evaluates every expression in one session and returns
// the results in request order.
func (s *Server) handleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Expressions) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "expressions is required")
		return
	}
	if len(req.Expressions) > s.maxBatch {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("batch exceeds %d expressions", s.maxBatch))
		return
	}

	var session *runtime.Session
	if req.SessionID != "" {
		session = s.runtime.Session(req.SessionID, runtime.SessionHTTP)
	} else {
		session = s.runtime.NewSession(runtime.SessionBatch)
		defer session.Close()
	}

	items := make([]BatchItem, 0, len(req.Expressions))
	for _, expr := range req.Expressions {
		out := session.Evaluate(expr)
		item := BatchItem{EvaluateResponse: toEvaluateResponse(out)}
		if out.Failed() {
			item.Error = &apiErrorBody{Code: errorCode(out.Err), Message: out.Err.Error()}
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// handleListHistory returns stored evaluations, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "history not configured")
		return
	}

	q := r.URL.Query()
	opts := history.ListOptions{
		SessionID: strings.TrimSpace(q.Get("session_id")),
		Limit:     defaultHistoryLimit,
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
			return
		}
		opts.Limit = limit
	}
	if raw := q.Get("failed"); raw != "" {
		failed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed must be a boolean")
			return
		}
		opts.FailedOnly = failed
	}

	records, err := s.history.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleClearHistory deletes all stored evaluations.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "history not configured")
		return
	}
	n, err := s.history.Clear(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	s.logger.Info("history cleared", "removed", n)
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// handleSessionEvents streams a session's events as SSE.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "event bus not configured")
		return
	}
	s.events.ServeHTTP(w, r)
}

// handleCloseSession closes an open session, which ends its event streams.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	session, ok := s.runtime.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("session %q not found", id))
		return
	}
	session.Close()
	w.WriteHeader(http.StatusNoContent)
}

// evaluate runs expr in the named session, or in a throwaway session when
// sessionID is empty.
func (s *Server) evaluate(sessionID, expr string) runtime.Outcome {
	if sessionID == "" {
		return s.runtime.Evaluate(runtime.SessionHTTP, expr)
	}
	return s.runtime.Session(sessionID, runtime.SessionHTTP).Evaluate(expr)
}

func toEvaluateResponse(out runtime.Outcome) EvaluateResponse {
	resp := EvaluateResponse{
		SessionID:  out.SessionID,
		EvalID:     out.EvalID,
		Expression: out.Expression,
		Output:     out.Output(),
	}
	if !out.Failed() {
		resp.Result = out.Result.Value()
		resp.Whole = out.Result.Whole
		resp.Numerator = out.Result.Numerator
		resp.Denominator = out.Result.Denominator
	}
	return resp
}

// errorCode maps an evaluation error to its API error code.
func errorCode(err error) string {
	kind := fraction.KindOf(err)
	if kind == "" {
		return "EVALUATION_ERROR"
	}
	return strings.ToUpper(kind)
}

// decodeBody decodes a JSON request body into v, writing the error response
// and returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if isMaxBytesError(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds size limit")
			return false
		}
		writeError(w, http.StatusBadRequest, "READ_ERROR", err.Error())
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return false
	}
	return true
}

func isMaxBytesError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
