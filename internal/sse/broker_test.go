package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return ""
	}
}

func expectNone(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected event: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe("s1")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", b.ClientCount())
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", b.ClientCount())
	}
}

func TestSessionEventsReachOnlyTheirSession(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	a := b.Subscribe("a")
	defer b.Unsubscribe(a)
	other := b.Subscribe("b")
	defer b.Unsubscribe(other)

	b.Publish(Event{Type: TypeSearchResults, Session: "a", Data: map[string]string{"query": "rcp"}})

	msg := receive(t, a)
	if !strings.HasPrefix(msg, "event: search.results\n") || !strings.Contains(msg, `"query":"rcp"`) {
		t.Errorf("unexpected frame %q", msg)
	}
	expectNone(t, other)
}

func TestBroadcastReachesEveryone(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	a := b.Subscribe("a")
	defer b.Unsubscribe(a)
	anon := b.Subscribe("")
	defer b.Unsubscribe(anon)

	b.Publish(Event{Type: TypeCatalogReloaded, Data: map[string]int{"records": 8}})

	for _, ch := range []chan []byte{a, anon} {
		if msg := receive(t, ch); !strings.Contains(msg, "event: catalog.reloaded") {
			t.Errorf("unexpected frame %q", msg)
		}
	}
}

func TestClientGauge(t *testing.T) {
	var last atomic.Int64
	b := NewBroker(WithClientGauge(func(n int) { last.Store(int64(n)) }))
	defer b.Close()

	ch := b.Subscribe("x")
	_ = b.ClientCount()
	if last.Load() != 1 {
		t.Errorf("gauge = %d, want 1", last.Load())
	}
	b.Unsubscribe(ch)
	_ = b.ClientCount()
	if last.Load() != 0 {
		t.Errorf("gauge = %d, want 0", last.Load())
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?session=s1", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeSearchHidden, Session: "s1", Data: map[string]string{"query": "r"}})
	b.Publish(Event{Type: TypeSearchResults, Session: "s2", Data: map[string]string{"query": "other"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: search.hidden") {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, "other") {
		t.Errorf("handler received another session's event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe("s")
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Session: "s", Data: i})
	}
	if b.ClientCount() != 1 {
		t.Fatal("broker loop blocked")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeCatalogReloaded, Data: nil})
	b.Close()
}
