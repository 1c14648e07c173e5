package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func newTestServeCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	root := newTestRoot()
	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("finding serve command: %v", err)
	}
	if err := serve.ParseFlags(append(isolate(t), args...)); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	serve.SetContext(context.Background())
	return serve
}

func TestServeFlagsOverrideConfig(t *testing.T) {
	cmd := newTestServeCmd(t, "--port", "9191", "--cors-origin", "https://example.com", "--max-batch", "2")

	stack, err := newServeStack(cmd)
	if err != nil {
		t.Fatalf("newServeStack: %v", err)
	}
	defer stack.Close()

	cfg := stack.app.cfg.Server
	if cfg.Port != 9191 || cfg.CORSOrigin != "https://example.com" || cfg.MaxBatch != 2 {
		t.Errorf("unexpected server config: %+v", cfg)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want the config default", cfg.Host)
	}
	if stack.pruner == nil {
		t.Error("expected the history pruner to run with the default retention")
	}
}

func TestServeStack_EvaluateAndHistory(t *testing.T) {
	stack, err := newServeStack(newTestServeCmd(t))
	if err != nil {
		t.Fatalf("newServeStack: %v", err)
	}
	defer stack.Close()

	ts := httptest.NewServer(stack.handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/evaluate", "application/json",
		strings.NewReader(`{"expression": "3_1/2 * 1_3/4"}`))
	if err != nil {
		t.Fatalf("POST /api/evaluate: %v", err)
	}
	var evalResp map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&evalResp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || evalResp["output"] != "= 6_1/8" {
		t.Fatalf("status = %d body = %v", resp.StatusCode, evalResp)
	}
	sessionID, _ := evalResp["session_id"].(string)

	resp, err = http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET /api/history: %v", err)
	}
	var records []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	resp.Body.Close()
	if len(records) != 1 || records[0]["session_id"] != sessionID {
		t.Fatalf("unexpected history: %v", records)
	}

	// Events reach the replay store through the bus subscriber.
	deadline := time.Now().Add(2 * time.Second)
	for {
		events, _ := stack.events.List(context.Background(), sessionID, 0, 0)
		if len(events) == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 4 stored events, got %d", len(events))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServeInvalidPortFlag(t *testing.T) {
	_, err := newServeStack(newTestServeCmd(t, "--port", "70000"))
	if code := exitCode(t, err); code != exitInputParse {
		t.Fatalf("exit code = %d, want %d", code, exitInputParse)
	}
}
