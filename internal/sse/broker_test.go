package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg := <-c.C:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func next(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.C:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	c := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(c)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublish_FrameHasSequenceID(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	c := b.Subscribe("")
	defer b.Unsubscribe(c)

	b.Publish(Event{Type: TypeChartCreated, Data: map[string]string{"path": "a.yaml"}})
	b.Publish(Event{Type: TypeChartUpdated, Data: map[string]string{"path": "a.yaml"}})

	first, second := next(t, c), next(t, c)
	if !strings.HasPrefix(first, "id: 1\nevent: chart.created\n") || !strings.Contains(first, `"path":"a.yaml"`) {
		t.Errorf("first frame = %q", first)
	}
	if !strings.HasPrefix(second, "id: 2\nevent: chart.updated\n") {
		t.Errorf("second frame = %q", second)
	}
}

func TestPublishChartEvent_ListThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	c := b.Subscribe("")
	defer b.Unsubscribe(c)

	b.PublishChartEvent("created", "a.yaml", "a")
	b.PublishChartEvent("updated", "b.yaml", "")

	time.Sleep(50 * time.Millisecond)
	listCount, chartCount := 0, 0
	for _, s := range drain(c) {
		if strings.Contains(s, "event: "+TypeChartsUpdated) {
			listCount++
		} else {
			chartCount++
		}
	}
	if chartCount != 2 {
		t.Errorf("chart events = %d, want 2", chartCount)
	}
	if listCount != 1 {
		t.Errorf("charts.updated events = %d, want 1 (throttled)", listCount)
	}
}

func TestPublishChartEvent_Payload(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	c := b.Subscribe("")
	defer b.Unsubscribe(c)

	b.PublishChartEvent("deleted", "plans/x.yaml", "x")

	s := next(t, c)
	if !strings.Contains(s, "event: chart.deleted") || !strings.Contains(s, `"id":"x"`) {
		t.Errorf("unexpected message %q", s)
	}
}

func TestPublishChartEvent_ChartFilter(t *testing.T) {
	b := NewBroker(time.Nanosecond)
	defer b.Close()
	plan := b.Subscribe("plan")
	defer b.Unsubscribe(plan)
	all := b.Subscribe("")
	defer b.Unsubscribe(all)

	b.PublishChartEvent("updated", "plan.yaml", "plan")
	b.PublishChartEvent("updated", "other.yaml", "other")
	b.PublishChartEvent("updated", "anon.yaml", "")
	time.Sleep(50 * time.Millisecond)

	got := drain(plan)
	if len(got) != 1 || !strings.Contains(got[0], `"id":"plan"`) {
		t.Errorf("filtered client got %q, want only the plan event", got)
	}
	// Three chart events plus a list refresh after each.
	if n := len(drain(all)); n != 6 {
		t.Errorf("unfiltered client got %d frames, want 6", n)
	}
}

func TestPublishChartEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	c := b.Subscribe("")
	defer b.Unsubscribe(c)

	b.PublishChartEvent("renamed", "a.yaml", "")
	time.Sleep(50 * time.Millisecond)
	if got := drain(c); len(got) != 0 {
		t.Errorf("messages = %q, want none", got)
	}
}

// syncRecorder guards the recorder body, which the handler writes from its
// own goroutine.
type syncRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func serve(t *testing.T, b *Broker, target string) (*syncRecorder, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	return w, func() {
		cancel()
		<-done
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	w, stop := serve(t, b, "/api/events")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeChartUpdated, Data: map[string]string{"path": "x.yaml"}})
	time.Sleep(50 * time.Millisecond)
	stop()

	if body := w.body(); !strings.Contains(body, "event: chart.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSSEHandler_ChartQueryAndKeepAlive(t *testing.T) {
	b := NewBroker(time.Minute)
	b.keepAlive = 20 * time.Millisecond
	defer b.Close()

	w, stop := serve(t, b, "/api/events?chart=plan")
	b.PublishChartEvent("updated", "other.yaml", "other")
	b.PublishChartEvent("updated", "plan.yaml", "plan")
	time.Sleep(60 * time.Millisecond)
	stop()

	body := w.body()
	if strings.Contains(body, `"id":"other"`) {
		t.Errorf("filtered stream leaked another chart: %q", body)
	}
	if !strings.Contains(body, `"id":"plan"`) {
		t.Errorf("filtered stream missing plan event: %q", body)
	}
	if !strings.Contains(body, ": ping\n\n") {
		t.Errorf("no keep-alive comment in %q", body)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	c := b.Subscribe("")
	defer b.Unsubscribe(c)

	for i := 0; i < clientBuffer+6; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// Publish is buffered; wait for the loop to work through it.
	deadline := time.Now().Add(time.Second)
	for b.Dropped() < 6 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := b.Dropped(); got != 6 {
		t.Errorf("dropped = %d, want 6", got)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	c := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-c.C:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeChartUpdated, Data: map[string]string{"path": "x.yaml"}})
	b.PublishChartEvent("updated", "x.yaml", "")
	if c := b.Subscribe(""); c == nil {
		t.Fatal("Subscribe after close returned nil")
	}
}
