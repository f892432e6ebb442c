package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
	"github.com/BearBump/ScanDesk/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	mu      sync.Mutex
	calls   int
	res     orderlookup.ScanResult
	err     error
	block   chan struct{} // если задан, Scan ждёт закрытия
}

func (l *fakeLookup) Scan(ctx context.Context, trackingNumber string) (orderlookup.ScanResult, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.block != nil {
		<-l.block
	}
	return l.res, l.err
}

func (l *fakeLookup) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type fakeToasts struct {
	mu      sync.Mutex
	loading []uint64
	tokens  []string
}

func (t *fakeToasts) AddLoading(id uint64, token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loading = append(t.loading, id)
	t.tokens = append(t.tokens, token)
}

func (t *fakeToasts) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.loading)
}

func waitResolution(t *testing.T, out <-chan models.Resolution) models.Resolution {
	t.Helper()
	select {
	case r := <-out:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting resolution")
		return models.Resolution{}
	}
}

func TestDispatcher_SubmitResolvesReturned(t *testing.T) {
	out := make(chan models.Resolution, 4)
	lk := &fakeLookup{res: orderlookup.ScanResult{
		Result:  orderlookup.ResultMarkedReturned,
		Message: "marked as returned",
		Order: &orderlookup.Order{
			ExternalOrderID: "SO-55", CustomerName: "A. Khan", RiskScore: 82, RiskLevel: "HIGH",
		},
	}}
	ts := &fakeToasts{}
	d := New(lk, ts, out)

	d.Submit(context.Background(), "  trk-000123 ")

	r := waitResolution(t, out)
	require.Equal(t, "TRK-000123", r.Token)
	require.Equal(t, models.OutcomeReturned, r.Outcome)
	require.NotNil(t, r.Order)
	require.Equal(t, "SO-55", r.Order.ExternalOrderID)
	require.Equal(t, 1, ts.count())
	require.Equal(t, r.ID, ts.loading[0]) // тост и резолюция про один id
}

func TestDispatcher_DuplicateInFlightIgnored(t *testing.T) {
	out := make(chan models.Resolution, 4)
	block := make(chan struct{})
	lk := &fakeLookup{block: block, res: orderlookup.ScanResult{Result: orderlookup.ResultMarkedReturned}}
	ts := &fakeToasts{}
	d := New(lk, ts, out)

	d.Submit(context.Background(), "TRK-000123")
	d.Submit(context.Background(), "trk-000123") // тот же токен, другой регистр

	require.Eventually(t, func() bool { return lk.callCount() == 1 }, time.Second, 5*time.Millisecond)
	close(block)

	r := waitResolution(t, out)
	require.Equal(t, "TRK-000123", r.Token)

	select {
	case extra := <-out:
		t.Fatalf("unexpected second resolution: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}

	require.Equal(t, 1, lk.callCount())
	require.Equal(t, 1, ts.count())
	require.Equal(t, int64(1), d.Stats().TotalDuplicates)
}

func TestDispatcher_ResubmitAfterResolutionAllowed(t *testing.T) {
	out := make(chan models.Resolution, 4)
	lk := &fakeLookup{res: orderlookup.ScanResult{Result: orderlookup.ResultAlreadyProcessed, Message: "already"}}
	d := New(lk, &fakeToasts{}, out)

	d.Submit(context.Background(), "TRK-000123")
	first := waitResolution(t, out)

	d.Submit(context.Background(), "TRK-000123")
	second := waitResolution(t, out)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, models.OutcomeAlreadyDone, second.Outcome)
	require.Equal(t, 2, lk.callCount())
}

func TestDispatcher_LookupErrorMapsToNotFound(t *testing.T) {
	out := make(chan models.Resolution, 4)
	lk := &fakeLookup{err: errors.New("connection refused")}
	d := New(lk, &fakeToasts{}, out)

	d.Submit(context.Background(), "TRK-999999")
	r := waitResolution(t, out)
	require.Equal(t, models.OutcomeNotFound, r.Outcome)
	require.NotEmpty(t, r.Message)
	require.Equal(t, int64(1), d.Stats().LookupErrors)
}

func TestDispatcher_NotFoundResult(t *testing.T) {
	out := make(chan models.Resolution, 4)
	lk := &fakeLookup{res: orderlookup.ScanResult{Result: orderlookup.ResultNotFound}}
	d := New(lk, &fakeToasts{}, out)

	d.Submit(context.Background(), "TRK-999999")
	r := waitResolution(t, out)
	require.Equal(t, models.OutcomeNotFound, r.Outcome)
	require.Nil(t, r.Order)
}

func TestDispatcher_EmptyTokenIgnored(t *testing.T) {
	out := make(chan models.Resolution, 4)
	lk := &fakeLookup{}
	ts := &fakeToasts{}
	d := New(lk, ts, out)

	d.Submit(context.Background(), "   ")
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, lk.callCount())
	require.Zero(t, ts.count())
}

func TestDispatcher_MonotonicIDs(t *testing.T) {
	d := New(&fakeLookup{}, &fakeToasts{}, make(chan models.Resolution, 1))
	var prev uint64
	for i := 0; i < 1000; i++ {
		id := d.nextID()
		require.Greater(t, id, prev)
		prev = id
	}
}

type slowLookup struct {
	delay time.Duration
	res   orderlookup.ScanResult
}

func (l *slowLookup) Scan(ctx context.Context, trackingNumber string) (orderlookup.ScanResult, error) {
	select {
	case <-time.After(l.delay):
		return l.res, nil
	case <-ctx.Done():
		return orderlookup.ScanResult{}, ctx.Err()
	}
}

func TestDispatcher_LookupOutlivesCallerContext(t *testing.T) {
	out := make(chan models.Resolution, 4)
	lk := &slowLookup{delay: 100 * time.Millisecond, res: orderlookup.ScanResult{
		Result:  orderlookup.ResultMarkedReturned,
		Message: "marked as returned",
	}}
	d := New(lk, &fakeToasts{}, out)

	// Контекст вызова гаснет сразу после Submit — как у HTTP-запроса,
	// который получил 202 и завершился до конца lookup'а.
	ctx, cancel := context.WithCancel(context.Background())
	d.Submit(ctx, "TRK-000123")
	cancel()

	r := waitResolution(t, out)
	require.Equal(t, models.OutcomeReturned, r.Outcome)
	require.Zero(t, d.Stats().LookupErrors)
}

func TestDispatcher_DeliversOnAlreadyCanceledContext(t *testing.T) {
	out := make(chan models.Resolution, 4)
	lk := &slowLookup{res: orderlookup.ScanResult{Result: orderlookup.ResultAlreadyProcessed, Message: "already"}}
	ts := &fakeToasts{}
	d := New(lk, ts, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Submit(ctx, "TRK-000123")

	// Резолюция обязана дойти даже на погасшем контексте: тост из LOADING
	// всегда переходит в терминальное состояние.
	r := waitResolution(t, out)
	require.Equal(t, models.OutcomeAlreadyDone, r.Outcome)
	require.Equal(t, 1, ts.count())
	require.Equal(t, int64(1), d.Stats().TotalResolved)
}

type countingRL struct {
	calls atomic.Int64
}

func (rl *countingRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	rl.calls.Add(1)
	return true, 1, nil
}

func TestDispatcher_RateLimiterConsulted(t *testing.T) {
	out := make(chan models.Resolution, 4)
	rl := &countingRL{}
	d := New(&fakeLookup{res: orderlookup.ScanResult{Result: orderlookup.ResultNotFound}}, &fakeToasts{}, out).
		WithSettings(4, 100).
		WithRateLimiter(rl)

	d.Submit(context.Background(), "TRK-000123")
	waitResolution(t, out)
	require.Equal(t, int64(1), rl.calls.Load())
}
