package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// readSSE parses the stream into data events and the name of the last
// named event.
func readSSE(t *testing.T, resp *http.Response) (events []string, last string) {
	t.Helper()
	scanner := bufio.NewScanner(resp.Body)
	var current []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			last = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current = append(current, strings.TrimPrefix(line, "data: "))
		case line == "":
			if len(current) > 0 && last == "" {
				events = append(events, strings.Join(current, "\n"))
			}
			current = nil
		}
	}
	return events, last
}

func TestStreamReportReceivesEvents(t *testing.T) {
	e := newTestEngine(t, 1)
	srv := newTestServerWithEngine(t, e)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/v1/report", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	broker := e.Broker()
	broker.Publish(e.RunID(), "hello world")
	broker.Publish(e.RunID(), "goodbye")
	e.Close()

	events, last := readSSE(t, resp)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(events), events)
	}
	if events[0] != "hello world" || events[1] != "goodbye" {
		t.Errorf("events = %v", events)
	}
	if last != "done" {
		t.Errorf("last event = %q, want done", last)
	}
}

func TestStreamReportAfterRun(t *testing.T) {
	e := newTestEngine(t, 1)
	if _, err := e.WarmupAndAccumulate(context.Background(), 2, 2, 1, nil); err != nil {
		t.Fatalf("WarmupAndAccumulate: %v", err)
	}
	e.Close()

	srv := newTestServerWithEngine(t, e)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/report")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	events, last := readSSE(t, resp)
	if last != "done" {
		t.Errorf("last event = %q, want done", last)
	}
	joined := strings.Join(events, "\n")
	for _, want := range []string{"Warming up ...", "Accumulating ..."} {
		if !strings.Contains(joined, want) {
			t.Errorf("replayed report missing %q: %v", want, events)
		}
	}
}

func TestStreamReportMultiLineData(t *testing.T) {
	e := newTestEngine(t, 1)
	srv := newTestServerWithEngine(t, e)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/v1/report", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	e.Broker().Publish(e.RunID(), "[Rank 0] Timings for all measures:\n  energy : 0.1000 s")
	e.Close()

	events, _ := readSSE(t, resp)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(events), events)
	}
	if want := "[Rank 0] Timings for all measures:\n  energy : 0.1000 s"; events[0] != want {
		t.Errorf("event = %q, want %q", events[0], want)
	}
}
