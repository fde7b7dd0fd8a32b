package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type countingRefresher struct {
	calls int32
	err   error
}

func (r *countingRefresher) Refresh(_ context.Context) (*oauth2.Token, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.err != nil {
		return nil, r.err
	}
	return &oauth2.Token{AccessToken: "fresh"}, nil
}

func (r *countingRefresher) count() int32 { return atomic.LoadInt32(&r.calls) }

func TestAutoRefresh_StartWithoutExpiryDoesNotRun(t *testing.T) {
	store := memStore(t)
	a := NewAutoRefresh(store, &countingRefresher{}, testLogger(), nil)

	a.Start()
	if a.Running() {
		t.Error("Running() = true with no stored expiry")
	}
}

func TestAutoRefresh_RefreshesOnTick(t *testing.T) {
	store := memStore(t)
	store.SetToken("access-1")
	// Expiry effectively now: the interval clamps to the (shrunk) minimum.
	store.SetExpiresAtTime(time.Now())
	ref := &countingRefresher{}

	a := NewAutoRefresh(store, ref, testLogger(), nil)
	a.lead = 0
	a.minInterval = 10 * time.Millisecond
	a.Start()
	defer a.Stop()

	waitFor(t, func() bool { return ref.count() >= 1 }, "scheduler never refreshed")
}

func TestAutoRefresh_TickWithoutTokenSkips(t *testing.T) {
	store := memStore(t)
	store.SetExpiresAtTime(time.Now()) // expiry but no token
	ref := &countingRefresher{}

	a := NewAutoRefresh(store, ref, testLogger(), nil)
	a.lead = 0
	a.minInterval = 10 * time.Millisecond
	a.Start()
	defer a.Stop()

	time.Sleep(60 * time.Millisecond)
	if got := ref.count(); got != 0 {
		t.Errorf("refresh called %d times with no token stored, want 0", got)
	}
	if !a.Running() {
		t.Error("timer should keep running while the session is logged out")
	}
}

func TestAutoRefresh_StartReplacesTimer(t *testing.T) {
	store := memStore(t)
	store.SetToken("access-1")
	store.SetExpiresAtTime(time.Now())
	ref := &countingRefresher{}

	a := NewAutoRefresh(store, ref, testLogger(), nil)
	a.lead = 0
	a.minInterval = 10 * time.Millisecond

	a.Start()
	a.Start()
	if !a.Running() {
		t.Fatal("Running() = false after Start")
	}

	// One Stop must be enough: the second Start replaced the first timer
	// rather than stacking a second one.
	a.Stop()
	if a.Running() {
		t.Error("Running() = true after Stop")
	}

	settled := ref.count()
	time.Sleep(60 * time.Millisecond)
	if got := ref.count(); got != settled {
		t.Errorf("refresh count moved from %d to %d after Stop, a timer leaked", settled, got)
	}
}

func TestAutoRefresh_StopIsIdempotent(t *testing.T) {
	store := memStore(t)
	a := NewAutoRefresh(store, &countingRefresher{}, testLogger(), nil)

	a.Stop()
	a.Stop()

	store.SetToken("access-1")
	store.SetExpiresAtTime(time.Now().Add(time.Hour))
	a.Start()
	a.Stop()
	a.Stop()
	if a.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestAutoRefresh_GivesUpAfterRepeatedFailures(t *testing.T) {
	store := memStore(t)
	store.SetToken("access-1")
	store.SetExpiresAtTime(time.Now())
	ref := &countingRefresher{err: errors.New("upstream down")}

	exhausted := make(chan struct{})
	a := NewAutoRefresh(store, ref, testLogger(), func() { close(exhausted) })
	a.lead = 0
	a.minInterval = 10 * time.Millisecond
	a.maxFailures = 3
	a.Start()

	select {
	case <-exhausted:
	case <-time.After(2 * time.Second):
		t.Fatal("onExhausted never fired")
	}

	if got := ref.count(); got != 3 {
		t.Errorf("refresh attempted %d times, want exactly 3 before giving up", got)
	}
	if a.Running() {
		t.Error("Running() = true after the scheduler gave up")
	}
}

func TestAutoRefresh_SuccessResetsFailureCount(t *testing.T) {
	store := memStore(t)
	store.SetToken("access-1")
	store.SetExpiresAtTime(time.Now())

	// Fails twice, then recovers. The scheduler must not give up.
	var calls int32
	exhausted := make(chan struct{})
	ref := &flakyRefresher{failFirst: 2, calls: &calls}

	a := NewAutoRefresh(store, ref, testLogger(), func() { close(exhausted) })
	a.lead = 0
	a.minInterval = 10 * time.Millisecond
	a.maxFailures = 3
	a.Start()
	defer a.Stop()

	waitFor(t, func() bool { return atomic.LoadInt32(&calls) >= 4 }, "scheduler stopped ticking")

	select {
	case <-exhausted:
		t.Error("onExhausted fired despite a successful refresh resetting the count")
	default:
	}
}

type flakyRefresher struct {
	failFirst int32
	calls     *int32
}

func (r *flakyRefresher) Refresh(_ context.Context) (*oauth2.Token, error) {
	n := atomic.AddInt32(r.calls, 1)
	if n <= r.failFirst {
		return nil, errors.New("transient failure")
	}
	return &oauth2.Token{AccessToken: "fresh"}, nil
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
