package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jelly-fpga/fpgaload/adapter"
	"github.com/jelly-fpga/fpgaload/iox"
)

func testEvent() *adapter.WorkflowCompletedEvent {
	return &adapter.WorkflowCompletedEvent{
		EventType:    adapter.EventType,
		Version:      "0.3.0",
		InvocationID: "0123456789abcdef",
		Command:      "register-accel",
		Target:       "127.0.0.1:8051",
		Platform:     "zynqmp",
		Outcome:      "success",
		Accel:        "myaccel",
		Staged:       []string{"design.bit", "design.bit.bin", "overlay.dtbo"},
		Timestamp:    "2026-02-07T12:00:00Z",
		DurationMs:   1500,
	}
}

func TestPublish_Success(t *testing.T) {
	var received adapter.WorkflowCompletedEvent
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(testContext(t), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if received.InvocationID != "0123456789abcdef" {
		t.Errorf("invocation_id = %s", received.InvocationID)
	}
	if received.EventType != "workflow_completed" {
		t.Errorf("event_type = %s", received.EventType)
	}
	if received.Accel != "myaccel" || len(received.Staged) != 3 {
		t.Errorf("received = %+v", received)
	}
}

func TestPublish_CustomHeaders(t *testing.T) {
	var authHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Headers: map[string]string{"Authorization": "Bearer test-token"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(testContext(t), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if authHeader != "Bearer test-token" {
		t.Errorf("expected Bearer test-token, got %s", authHeader)
	}
}

func TestPublish_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		codes     []int // response per attempt; the last repeats
		retries   int
		wantErr   bool
		wantCalls int32
	}{
		{name: "2xx", codes: []int{http.StatusAccepted}, retries: 3, wantCalls: 1},
		{name: "5xx then ok", codes: []int{500, 502, 200}, retries: 3, wantCalls: 3},
		{name: "5xx exhausted", codes: []int{503}, retries: 2, wantErr: true, wantCalls: 3},
		{name: "4xx not retried", codes: []int{404}, retries: 3, wantErr: true, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := int(attempts.Add(1)) - 1
				w.WriteHeader(tt.codes[min(n, len(tt.codes)-1)])
			}))
			defer ts.Close()

			a, err := New(Config{URL: ts.URL, Retries: tt.retries, Backoff: time.Millisecond})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer iox.DiscardClose(a)

			err = a.Publish(testContext(t), testEvent())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := attempts.Load(); got != tt.wantCalls {
				t.Errorf("attempts = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	a, err := New(Config{URL: ts.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	ctx, cancel := context.WithTimeout(testContext(t), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://example.com", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}

	a, err := New(Config{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
	}
	if a.config.Backoff != adapter.DefaultBackoff {
		t.Errorf("backoff = %v", a.config.Backoff)
	}
}
