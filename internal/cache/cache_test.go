package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_RoundTrip(t *testing.T) {
	c := New[string]()

	c.Set("key", "value", time.Minute)

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("Get() miss immediately after Set()")
	}
	if got != "value" {
		t.Errorf("Get() = %q, want %q", got, "value")
	}
}

func TestCache_MissingKey(t *testing.T) {
	c := New[int]()

	if _, ok := c.Get("absent"); ok {
		t.Error("Get() hit for never-set key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New[string]()

	c.Set("key", "value", 20*time.Millisecond)

	if _, ok := c.Get("key"); !ok {
		t.Fatal("Get() miss before TTL elapsed")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Error("Get() hit after TTL elapsed")
	}
}

func TestCache_SetReplaces(t *testing.T) {
	c := New[int]()

	c.Set("key", 1, time.Minute)
	c.Set("key", 2, time.Minute)

	if got, _ := c.Get("key"); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

func TestGetOrCompute_CachesResult(t *testing.T) {
	c := New[string]()
	calls := 0

	compute := func(_ context.Context) (string, error) {
		calls++
		return "computed", nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrCompute(context.Background(), "key", time.Minute, compute)
		if err != nil {
			t.Fatalf("GetOrCompute() error = %v", err)
		}
		if got != "computed" {
			t.Errorf("GetOrCompute() = %q, want %q", got, "computed")
		}
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := New[string]()
	wantErr := errors.New("upstream down")
	calls := 0

	failing := func(_ context.Context) (string, error) {
		calls++
		return "", wantErr
	}

	if _, err := c.GetOrCompute(context.Background(), "key", time.Minute, failing); !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, wantErr)
	}

	// The failure must not be cached: a second call computes again and
	// can succeed.
	got, err := c.GetOrCompute(context.Background(), "key", time.Minute, func(_ context.Context) (string, error) {
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute() after failure error = %v", err)
	}
	if got != "recovered" {
		t.Errorf("GetOrCompute() = %q, want %q", got, "recovered")
	}
	if calls != 1 {
		t.Errorf("failing compute called %d times, want 1", calls)
	}
}

func TestGetOrCompute_DetachedFromCallerCancellation(t *testing.T) {
	c := New[string]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The flight's result is shared by every joiner and the cache itself,
	// so the initiating caller's cancellation must not reach compute.
	got, err := c.GetOrCompute(ctx, "key", time.Minute, func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "value", nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute() with cancelled caller error = %v", err)
	}
	if got != "value" {
		t.Errorf("GetOrCompute() = %q, want %q", got, "value")
	}

	if cached, ok := c.Get("key"); !ok || cached != "value" {
		t.Errorf("Get() after cancelled-caller compute = %q, %v; want %q, true", cached, ok, "value")
	}
}

func TestGetOrCompute_SingleFlight(t *testing.T) {
	c := New[int]()

	var calls atomic.Int32
	gate := make(chan struct{})

	compute := func(_ context.Context) (int, error) {
		calls.Add(1)
		<-gate // hold the flight open until all callers have queued
		return 42, nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "shared", time.Minute, compute)
		}(i)
	}

	// Give every goroutine a chance to reach the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute called %d times under concurrency, want 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error = %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Errorf("caller %d result = %d, want 42", i, results[i])
		}
	}
}

func TestGetOrCompute_DistinctKeysDoNotSerialise(t *testing.T) {
	c := New[string]()

	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})

	go func() {
		//nolint:errcheck // Result checked via channel ordering below
		c.GetOrCompute(context.Background(), "slow", time.Minute, func(_ context.Context) (string, error) {
			close(slowStarted)
			<-slowRelease
			return "slow", nil
		})
	}()

	<-slowStarted

	// A different key must compute while "slow" is still in flight.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.GetOrCompute(context.Background(), "fast", time.Minute, func(_ context.Context) (string, error) {
			return "fast", nil
		}); err != nil {
			t.Errorf("fast key error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct key blocked behind unrelated in-flight computation")
	}
	close(slowRelease)
}

func TestCache_Sweep(t *testing.T) {
	c := New[string]()
	c.Set("old", "v", 10*time.Millisecond)
	c.Set("new", "v", time.Minute)

	time.Sleep(20 * time.Millisecond)
	c.sweep()

	if c.Len() != 1 {
		t.Errorf("Len() after sweep = %d, want 1", c.Len())
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("sweep removed unexpired entry")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string]()
	c.Set("key", "v", time.Minute)
	c.Delete("key")

	if _, ok := c.Get("key"); ok {
		t.Error("Get() hit after Delete()")
	}
}
