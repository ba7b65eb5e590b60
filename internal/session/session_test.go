package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/bomberos/internal/apperr"
	"github.com/starford/bomberos/internal/debounce"
	"github.com/starford/bomberos/internal/observability"
	"github.com/starford/bomberos/internal/sse"
	tu "github.com/starford/bomberos/internal/testutil"
	"github.com/starford/bomberos/internal/toolkit"
)

type chanPublisher chan sse.Event

func (p chanPublisher) Publish(e sse.Event) { p <- e }

func (p chanPublisher) next(t *testing.T) sse.Event {
	t.Helper()
	select {
	case e := <-p:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for published event")
		return sse.Event{}
	}
}

func (p chanPublisher) none(t *testing.T) {
	t.Helper()
	select {
	case e := <-p:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

// blockingSearcher holds every search until release is closed.
type blockingSearcher struct {
	started chan string
	release chan struct{}
}

func (b *blockingSearcher) Search(_ context.Context, query, _ string) toolkit.SearchOutcome {
	b.started <- query
	<-b.release
	return toolkit.SearchOutcome{Query: query, Results: []toolkit.Hit{}}
}

func newManager(t *testing.T, searcher Searcher) (*Manager, *clockwork.FakeClock, chanPublisher) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	pub := make(chanPublisher, 16)
	m := NewManager(searcher, pub, WithClock(clock))
	t.Cleanup(m.Shutdown)
	return m, clock, pub
}

func TestInput_DebouncesToLastQuery(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	m, clock, pub := newManager(t, svc)

	for _, q := range []string{"r", "rc", "rcp"} {
		_, err := m.Input("s1", q, false)
		require.NoError(t, err)
		clock.Advance(100 * time.Millisecond)
	}
	pub.none(t)

	clock.Advance(200 * time.Millisecond)
	e := pub.next(t)
	assert.Equal(t, sse.TypeSearchResults, e.Type)
	assert.Equal(t, "s1", e.Session)

	out, ok := e.Data.(toolkit.SearchOutcome)
	require.True(t, ok)
	assert.Equal(t, "rcp", out.Query)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Timer <strong>RCP</strong>", out.Results[0].TitleHTML)

	pub.none(t)
}

func TestInput_ShortQueryPublishesHidden(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	m, clock, pub := newManager(t, svc)

	_, err := m.Input("s1", "a", true)
	require.NoError(t, err)
	clock.Advance(debounce.DefaultDelay)

	e := pub.next(t)
	assert.Equal(t, sse.TypeSearchHidden, e.Type)
	assert.Equal(t, HiddenPayload{Query: "a"}, e.Data)

	st, err := m.State("s1")
	require.NoError(t, err)
	assert.Equal(t, State{Query: "a", IsMobile: true}, st)
}

func TestSessionsAreIndependent(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	m, clock, pub := newManager(t, svc)

	_, err := m.Input("a", "fuego", false)
	require.NoError(t, err)
	_, err = m.Input("b", "rcp", false)
	require.NoError(t, err)
	clock.Advance(debounce.DefaultDelay)

	got := map[string]string{}
	for range 2 {
		e := pub.next(t)
		got[e.Session] = e.Data.(toolkit.SearchOutcome).Query
	}
	assert.Equal(t, map[string]string{"a": "fuego", "b": "rcp"}, got)
}

func TestState_IsLoadingWhileSearching(t *testing.T) {
	searcher := &blockingSearcher{started: make(chan string, 1), release: make(chan struct{})}
	m, clock, pub := newManager(t, searcher)

	_, err := m.Input("s1", "claves", false)
	require.NoError(t, err)
	clock.Advance(debounce.DefaultDelay)

	select {
	case q := <-searcher.started:
		assert.Equal(t, "claves", q)
	case <-time.After(time.Second):
		t.Fatal("search did not start")
	}

	st, err := m.State("s1")
	require.NoError(t, err)
	assert.True(t, st.IsLoading)

	close(searcher.release)
	pub.next(t)

	st, err = m.State("s1")
	require.NoError(t, err)
	assert.False(t, st.IsLoading)
}

func TestClose_CancelsPendingSearch(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	m, clock, pub := newManager(t, svc)

	_, err := m.Input("s1", "rcp", false)
	require.NoError(t, err)
	require.NoError(t, m.Close("s1"))

	clock.Advance(time.Second)
	pub.none(t)

	_, err = m.State("s1")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.True(t, errors.Is(m.Close("s1"), apperr.ErrNotFound))
}

func TestInput_RejectsBadID(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	m, _, _ := newManager(t, svc)

	_, err := m.Input("", "rcp", false)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestShutdown(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	metrics := observability.NewMetrics(nil)
	pub := make(chanPublisher, 4)
	clock := clockwork.NewFakeClock()
	m := NewManager(svc, pub, WithClock(clock), WithMetrics(metrics))

	_, err := m.Input("s1", "rcp", false)
	require.NoError(t, err)
	_, err = m.Input("s2", "fuego", false)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Sessions))

	m.Shutdown()
	clock.Advance(time.Second)
	pub.none(t)

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Sessions))
	_, err = m.Input("s1", "rcp", false)
	assert.Error(t, err)
	m.Shutdown()
}

func TestInput_RateLimited(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	clock := clockwork.NewFakeClock()
	m := NewManager(svc, make(chanPublisher, 4), WithClock(clock), WithInputRate(1, 2))
	t.Cleanup(m.Shutdown)

	for _, q := range []string{"r", "rc"} {
		_, err := m.Input("s1", q, false)
		require.NoError(t, err)
	}
	st, err := m.Input("s1", "rcp", false)
	assert.True(t, errors.Is(err, apperr.ErrRateLimited))
	assert.Equal(t, "rc", st.Query, "rejected input must not change the state")

	clock.Advance(time.Second)
	_, err = m.Input("s1", "rcp", false)
	assert.NoError(t, err)
}

func TestCreate_AssignsID(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	m, _, _ := newManager(t, svc)

	id, st, err := m.Create(true)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.True(t, st.IsMobile)

	other, _, err := m.Create(false)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, m.Len())
}

func TestEvictIdle(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	metrics := observability.NewMetrics(nil)
	clock := clockwork.NewFakeClock()
	pub := make(chanPublisher, 4)
	m := NewManager(svc, pub, WithClock(clock), WithIdleTTL(time.Minute), WithMetrics(metrics))
	t.Cleanup(m.Shutdown)

	_, err := m.Input("stale", "a", false)
	require.NoError(t, err)
	_, err = m.Input("active", "a", false)
	require.NoError(t, err)
	clock.Advance(time.Second)
	pub.next(t)
	pub.next(t)

	clock.Advance(40 * time.Second)
	_, err = m.Input("active", "b", false)
	require.NoError(t, err)
	assert.Equal(t, 0, m.EvictIdle(), "nothing is idle for a full minute yet")

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, m.EvictIdle())
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Sessions))

	_, err = m.State("stale")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = m.State("active")
	assert.NoError(t, err)
}

func TestEvictIdle_CycledIDsDoNotAccumulate(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	clock := clockwork.NewFakeClock()
	m := NewManager(svc, make(chanPublisher, 256), WithClock(clock), WithIdleTTL(time.Minute))
	t.Cleanup(m.Shutdown)

	for i := 0; i < 100; i++ {
		_, err := m.Input(fmt.Sprintf("id-%d", i), "x", false)
		require.NoError(t, err)
	}
	assert.Equal(t, 100, m.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 100, m.EvictIdle())
	assert.Equal(t, 0, m.Len())
}

func TestInput_MaxSessions(t *testing.T) {
	svc, _, _ := tu.TestService(t)
	clock := clockwork.NewFakeClock()
	m := NewManager(svc, make(chanPublisher, 4), WithClock(clock), WithMaxSessions(2))
	t.Cleanup(m.Shutdown)

	_, err := m.Input("s1", "rcp", false)
	require.NoError(t, err)
	_, _, err = m.Create(false)
	require.NoError(t, err)

	_, err = m.Input("s3", "rcp", false)
	assert.True(t, errors.Is(err, apperr.ErrRateLimited))
	_, _, err = m.Create(false)
	assert.True(t, errors.Is(err, apperr.ErrRateLimited))
	assert.Equal(t, 2, m.Len())

	_, err = m.Input("s1", "fuego", false)
	assert.NoError(t, err, "existing sessions keep working at the cap")

	require.NoError(t, m.Close("s1"))
	_, err = m.Input("s3", "rcp", false)
	assert.NoError(t, err)
}
