// Package internal contains integration tests that run a /math request through
// the HTTP service, the adaptive controller and a real HTTP engine client
// against a stub clustering engine.
package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zkorum/agora/internal/api"
	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/logging"
)

// stubEngine answers /cluster with groups sized by the requested constraint.
type stubEngine struct {
	mu       sync.Mutex
	requests []map[string]json.RawMessage
	sizes    map[string][]int
}

func (s *stubEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, body)
	s.mu.Unlock()

	key := "max=" + string(body["max_group_count"])
	if v, ok := body["force_group_count"]; ok {
		key = "force=" + string(v)
	}
	sizes, ok := s.sizes[key]
	if !ok {
		http.Error(w, "not enough data", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, clusterResponse(sizes))
}

func (s *stubEngine) calls() []map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]json.RawMessage(nil), s.requests...)
}

func clusterResponse(sizes []int) string {
	var index, rows, statIndex, statRows []string
	pid := 1
	for group, n := range sizes {
		for i := 0; i < n; i++ {
			index = append(index, fmt.Sprint(pid))
			rows = append(rows, fmt.Sprintf("[%d]", group))
			pid++
		}
		statIndex = append(statIndex, fmt.Sprintf("[%d, 1]", group))
		statRows = append(statRows, fmt.Sprintf("[%d]", n))
	}
	return fmt.Sprintf(`{
  "statements": {"index_names": ["statement_id"], "index": [1], "columns": ["n_votes"], "data": [[%d]]},
  "participants": {"index_names": ["participant_id"], "index": [%s], "columns": ["cluster_id"], "data": [%s]},
  "group_comment_stats": {"index_names": ["group_id", "statement_id"], "index": [%s], "columns": ["na"], "data": [%s]},
  "repness": {"0": [{"comment_id": 1, "repness": 2.5}]},
  "consensus": {"agree": [{"comment_id": 1}], "disagree": []}
}`, pid-1, strings.Join(index, ", "), strings.Join(rows, ", "), strings.Join(statIndex, ", "), strings.Join(statRows, ", "))
}

func postMath(t *testing.T, url string) (int, map[string]json.RawMessage) {
	t.Helper()
	body := `{"conversation_slug_id": "abc", "conversation_id": 7, "votes": [
		{"participant_id": 1, "statement_id": 1, "vote": 1},
		{"participant_id": "p-2", "statement_id": 1, "vote": -1}
	]}`
	resp, err := http.Post(url+"/math", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /math failed: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func newService(t *testing.T, stub *stubEngine) *httptest.Server {
	t.Helper()
	engineSrv := httptest.NewServer(stub)
	t.Cleanup(engineSrv.Close)

	srv := api.NewServer(
		engine.NewHTTPEngine(engineSrv.URL, engine.WithTimeout(5*time.Second)),
		api.Config{
			Workers:          2,
			RequestTimeout:   10 * time.Second,
			ShutdownTimeout:  time.Second,
			MinVoteThreshold: 4,
			MaxGroupCount:    6,
			GroupField:       "cluster_id",
		},
		api.WithLogger(logging.NopLogger()),
	)
	svc := httptest.NewServer(srv.Handler())
	t.Cleanup(svc.Close)
	return svc
}

// TestScaleUpRetryKeepsBalancedResult covers a lopsided first clustering of
// 28 participants that triggers a forced retry with one more group.
func TestScaleUpRetryKeepsBalancedResult(t *testing.T) {
	stub := &stubEngine{sizes: map[string][]int{
		"max=6":   {25, 3},
		"force=3": {10, 9, 9},
	}}
	svc := newService(t, stub)

	status, body := postMath(t, svc.URL)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}

	calls := stub.calls()
	if len(calls) != 2 {
		t.Fatalf("engine called %d times, want 2", len(calls))
	}
	if _, ok := calls[1]["max_group_count"]; ok {
		t.Error("retry should not send max_group_count")
	}
	if string(calls[1]["force_group_count"]) != "3" {
		t.Errorf("retry force_group_count = %s, want 3", calls[1]["force_group_count"])
	}
	if string(calls[0]["min_user_vote_threshold"]) != "4" {
		t.Errorf("min_user_vote_threshold = %s", calls[0]["min_user_vote_threshold"])
	}

	var participants []map[string]any
	if err := json.Unmarshal(body["participants_df"], &participants); err != nil {
		t.Fatal(err)
	}
	groups := map[float64]int{}
	for _, p := range participants {
		groups[p["cluster_id"].(float64)]++
	}
	if len(participants) != 28 || len(groups) != 3 {
		t.Errorf("kept result has %d participants in %d groups, want 28 in 3", len(participants), len(groups))
	}

	var stats map[string][]map[string]any
	if err := json.Unmarshal(body["group_comment_stats"], &stats); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"0", "1", "2"} {
		if len(stats[k]) != 1 {
			t.Errorf("group_comment_stats[%s] = %v", k, stats[k])
		}
	}

	resp, err := http.Get(svc.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	metrics, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`agora_math_engine_calls_total{constraint="force"} 1`,
		`agora_math_solves_total{outcome="retried_kept_retry"} 1`,
		`agora_math_scaling_decisions_total{action="scale_up",rule="8"} 1`,
	} {
		if !strings.Contains(string(metrics), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

// TestRetryRollsBackToMoreBalancedFirst covers a retry that comes back worse.
func TestRetryRollsBackToMoreBalancedFirst(t *testing.T) {
	stub := &stubEngine{sizes: map[string][]int{
		"max=6":   {25, 3},
		"force=3": {26, 1, 1},
	}}
	svc := newService(t, stub)

	status, body := postMath(t, svc.URL)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	var participants []map[string]any
	if err := json.Unmarshal(body["participants_df"], &participants); err != nil {
		t.Fatal(err)
	}
	groups := map[float64]int{}
	for _, p := range participants {
		groups[p["cluster_id"].(float64)]++
	}
	if len(groups) != 2 || groups[0] != 25 || groups[1] != 3 {
		t.Errorf("expected the first clustering to be kept, got %v", groups)
	}
}

// TestInsufficientDataReturnsEmptyResult covers an engine that cannot cluster.
func TestInsufficientDataReturnsEmptyResult(t *testing.T) {
	svc := newService(t, &stubEngine{})

	status, body := postMath(t, svc.URL)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	for key, want := range map[string]string{
		"statements_df":       "[]",
		"participants_df":     "[]",
		"repness":             "{}",
		"group_comment_stats": "{}",
	} {
		if string(body[key]) != want {
			t.Errorf("%s = %s, want %s", key, body[key], want)
		}
	}
}
