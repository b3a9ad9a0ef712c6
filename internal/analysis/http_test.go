package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientAnalyze(t *testing.T) {
	var gotReq analyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(analyzeResponse{
			Decisions: map[string]Decision{
				"CBA": {Action: "buy", Quantity: 5, Confidence: 80, Reasoning: "momentum"},
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)

	snap := Snapshot{
		Cash: 200,
		Positions: map[string]PositionView{
			"BHP": {Short: 10, ShortCostBasis: 40},
		},
		RealizedGains: map[string]GainView{"BHP": {}},
	}
	window := Window{
		Start: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
	}

	decisions, err := client.Analyze(context.Background(), snap, []string{"CBA", "BHP"}, window)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	d, ok := decisions["CBA"]
	if !ok || d.Action != "buy" || d.Quantity != 5 {
		t.Errorf("decisions = %+v, want buy 5 CBA", decisions)
	}

	if gotReq.Snapshot.Cash != 200 {
		t.Errorf("request cash = %f, want 200", gotReq.Snapshot.Cash)
	}
	if len(gotReq.Symbols) != 2 {
		t.Errorf("request tickers = %v, want two symbols", gotReq.Symbols)
	}
	if view := gotReq.Snapshot.Positions["BHP"]; view.Short != 10 {
		t.Errorf("request position view = %+v, want short 10", view)
	}
}

func TestHTTPClientNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	if _, err := client.Analyze(context.Background(), Snapshot{}, nil, Window{}); err == nil {
		t.Fatal("non-200 response should be an error")
	}
}

func TestHTTPClientContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect and
		// cancel the request context; otherwise Close deadlocks on Go 1.21.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewHTTPClient(srv.URL, time.Minute)
	if _, err := client.Analyze(ctx, Snapshot{}, nil, Window{}); err == nil {
		t.Fatal("cancelled context should abort the request")
	}
}
