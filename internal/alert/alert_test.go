package alert_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazz-dev/urlmedic/internal/alert"
	"github.com/hazz-dev/urlmedic/internal/checker"
)

func makeChange(url string, prev, cur int) checker.CompareEntry {
	e := checker.CompareEntry{
		Previous: checker.Result{URL: url, StatusCode: prev},
		Current:  checker.Result{URL: url, StatusCode: cur},
	}
	if prev == 0 {
		e.Previous.Error = "connection refused"
	}
	if cur == 0 {
		e.Current.Error = "connection refused"
	}
	return e
}

// countingServer returns a webhook receiver and a channel signalled on every call.
func countingServer(t *testing.T) (*httptest.Server, *int32, chan struct{}) {
	t.Helper()
	var count int32
	calls := make(chan struct{}, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusOK)
		calls <- struct{}{}
	}))
	t.Cleanup(srv.Close)
	return srv, &count, calls
}

func waitCall(t *testing.T, calls chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook call")
	}
}

func TestAlerter_Changes_SendsWebhook(t *testing.T) {
	srv, count, calls := countingServer(t)

	a := alert.New(srv.URL, time.Hour, nil)
	a.Notify("site", []checker.CompareEntry{makeChange("https://example.com/", 200, 404)}, time.Now())

	waitCall(t, calls)
	if atomic.LoadInt32(count) != 1 {
		t.Errorf("expected 1 webhook call, got %d", atomic.LoadInt32(count))
	}
}

func TestAlerter_NoChanges_NoWebhook(t *testing.T) {
	srv, count, _ := countingServer(t)

	a := alert.New(srv.URL, time.Hour, nil)
	a.Notify("site", nil, time.Now())
	a.Notify("site", []checker.CompareEntry{}, time.Now())

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(count) != 0 {
		t.Errorf("expected 0 webhook calls without changes, got %d", atomic.LoadInt32(count))
	}
}

func TestAlerter_Cooldown_SuppressesAlerts(t *testing.T) {
	srv, count, calls := countingServer(t)

	cooldown := time.Hour // long cooldown
	a := alert.New(srv.URL, cooldown, nil)

	// First run with changes, should send
	a.Notify("site", []checker.CompareEntry{makeChange("https://example.com/", 200, 500)}, time.Now())
	waitCall(t, calls)

	// Second run, within cooldown, should suppress
	a.Notify("site", []checker.CompareEntry{makeChange("https://example.com/", 500, 200)}, time.Now())
	time.Sleep(50 * time.Millisecond)

	if atomic.LoadInt32(count) != 1 {
		t.Errorf("expected 1 webhook call (cooldown suppressed second), got %d", atomic.LoadInt32(count))
	}
}

func TestAlerter_Cooldown_Expires(t *testing.T) {
	srv, count, calls := countingServer(t)

	a := alert.New(srv.URL, 10*time.Millisecond, nil)
	a.Notify("site", []checker.CompareEntry{makeChange("https://example.com/", 200, 500)}, time.Now())
	waitCall(t, calls)

	time.Sleep(20 * time.Millisecond)
	a.Notify("site", []checker.CompareEntry{makeChange("https://example.com/", 500, 200)}, time.Now())
	waitCall(t, calls)

	if atomic.LoadInt32(count) != 2 {
		t.Errorf("expected 2 webhook calls after cooldown expired, got %d", atomic.LoadInt32(count))
	}
}

func TestAlerter_Cooldown_PerTarget(t *testing.T) {
	srv, count, calls := countingServer(t)

	a := alert.New(srv.URL, time.Hour, nil)

	// Alert for site, triggers cooldown for site only
	a.Notify("site", []checker.CompareEntry{makeChange("https://example.com/", 200, 404)}, time.Now())
	waitCall(t, calls)

	a.Notify("shop", []checker.CompareEntry{makeChange("https://shop.example.com/", 200, 404)}, time.Now())
	waitCall(t, calls)

	if atomic.LoadInt32(count) != 2 {
		t.Errorf("expected 2 webhook calls (one per target), got %d", atomic.LoadInt32(count))
	}
}

func TestAlerter_WebhookPayload(t *testing.T) {
	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		json.Unmarshal(body, &payload)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		w.WriteHeader(http.StatusOK)
		received <- payload
	}))
	defer srv.Close()

	checkedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := alert.New(srv.URL, time.Hour, nil)
	a.Notify("site", []checker.CompareEntry{
		makeChange("https://example.com/1/", 404, 200),
		makeChange("https://example.com/2/", 200, 0),
	}, checkedAt)

	var payload map[string]any
	select {
	case payload = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook")
	}

	if payload["target"] != "site" {
		t.Errorf("expected target 'site', got %v", payload["target"])
	}
	if payload["source"] != "urlmedic" {
		t.Errorf("expected source 'urlmedic', got %v", payload["source"])
	}
	if payload["checked_at"] != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected checked_at %v", payload["checked_at"])
	}

	changes, ok := payload["changes"].([]any)
	if !ok || len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %v", payload["changes"])
	}
	first := changes[0].(map[string]any)
	if first["url"] != "https://example.com/1/" || first["previous"] != "404" || first["current"] != "200" {
		t.Errorf("unexpected first change: %v", first)
	}
	second := changes[1].(map[string]any)
	if second["current"] != "err" || second["error"] != "connection refused" {
		t.Errorf("unexpected second change: %v", second)
	}
}

func TestAlerter_HTTPError_DoesNotCrash(t *testing.T) {
	done := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		done <- struct{}{}
	}))
	defer srv.Close()

	a := alert.New(srv.URL, time.Hour, nil)
	// Should not panic even on HTTP error
	a.Notify("site", []checker.CompareEntry{makeChange("https://example.com/", 200, 404)}, time.Now())
	waitCall(t, done)
}
