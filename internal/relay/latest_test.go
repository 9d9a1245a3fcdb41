package relay

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestLatest_SubscribeSeedCountsAsSeen(t *testing.T) {
	l := NewLatest("seed")
	obs := l.Subscribe()

	if obs.Changed() {
		t.Fatal("fresh observer should not report a change")
	}
	if got := obs.Current(); got != "seed" {
		t.Fatalf("Current = %q, want seed", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := obs.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait without publish: err = %v, want deadline exceeded", err)
	}
}

func TestLatest_WaitCoalesces(t *testing.T) {
	l := NewLatest(0)
	obs := l.Subscribe()

	for i := 1; i <= 5; i++ {
		l.Publish(i)
	}
	if !obs.Changed() {
		t.Fatal("expected Changed after publishes")
	}

	got, err := obs.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != 5 {
		t.Fatalf("Wait = %d, want 5", got)
	}
	if obs.Changed() {
		t.Fatal("observer should be caught up")
	}
	if v := l.Version(); v != 5 {
		t.Fatalf("Version = %d, want 5", v)
	}
}

func TestLatest_WaitWakesOnPublish(t *testing.T) {
	l := NewLatest("")
	obs := l.Subscribe()

	done := make(chan string, 1)
	go func() {
		v, err := obs.Wait(context.Background())
		if err != nil {
			done <- "error: " + err.Error()
			return
		}
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	l.Publish("hello")

	select {
	case got := <-done:
		if got != "hello" {
			t.Fatalf("Wait = %q, want hello", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not wake on publish")
	}
}

func TestLatest_LockstepObserverSeesEveryValue(t *testing.T) {
	l := NewLatest(0)
	obs := l.Subscribe()

	var got []int
	for i := 1; i <= 3; i++ {
		l.Publish(i)
		v, err := obs.Wait(context.Background())
		if err != nil {
			t.Fatalf("Wait after publish %d: %v", i, err)
		}
		got = append(got, v)
	}

	want := []int{1, 2, 3}
	if !slices.Equal(got, want) {
		t.Fatalf("observed %v, want %v", got, want)
	}
}

func TestLatest_NeverObservesStaleValue(t *testing.T) {
	l := NewLatest(0)
	obs := l.Subscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			l.Publish(i)
		}
		l.Close()
	}()

	last := 0
	for {
		v, err := obs.Wait(context.Background())
		if errors.Is(err, ErrClosed) {
			break
		}
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if v <= last {
			t.Fatalf("observed %d after %d", v, last)
		}
		last = v
	}
	wg.Wait()

	if last != 1000 {
		t.Fatalf("last observed = %d, want 1000", last)
	}
}

func TestLatest_CloseUnblocksWaiters(t *testing.T) {
	l := NewLatest(0)

	const waiters = 4
	errs := make(chan error, waiters)
	for range waiters {
		obs := l.Subscribe()
		go func() {
			_, err := obs.Wait(context.Background())
			errs <- err
		}()
	}

	time.Sleep(10 * time.Millisecond)
	l.Close()
	l.Close() // idempotent

	for range waiters {
		select {
		case err := <-errs:
			if !errors.Is(err, ErrClosed) {
				t.Fatalf("err = %v, want ErrClosed", err)
			}
		case <-time.After(time.Second):
			t.Fatal("waiter not released by Close")
		}
	}
	if !l.Closed() {
		t.Fatal("Closed = false after Close")
	}
}

func TestLatest_UnseenValueDeliveredBeforeClose(t *testing.T) {
	l := NewLatest("a")
	obs := l.Subscribe()

	l.Publish("b")
	l.Close()
	l.Publish("c") // dropped

	got, err := obs.Wait(context.Background())
	if err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if got != "b" {
		t.Fatalf("first Wait = %q, want b", got)
	}
	if _, err := obs.Wait(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Wait err = %v, want ErrClosed", err)
	}
}

func TestLatest_WaitHonorsCancel(t *testing.T) {
	l := NewLatest(0)
	obs := l.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := obs.Wait(ctx)
		errs <- err
	}()

	cancel()
	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait ignored cancellation")
	}
}

func TestLatest_ObserversAreIndependent(t *testing.T) {
	l := NewLatest(0)
	fast := l.Subscribe()
	l.Publish(1)
	slow := l.Subscribe()

	if _, err := fast.Wait(context.Background()); err != nil {
		t.Fatalf("fast Wait: %v", err)
	}
	if slow.Changed() {
		t.Fatal("late subscriber should treat the current value as seen")
	}

	l.Publish(2)
	for name, obs := range map[string]*Observer[int]{"fast": fast, "slow": slow} {
		v, err := obs.Wait(context.Background())
		if err != nil {
			t.Fatalf("%s Wait: %v", name, err)
		}
		if v != 2 {
			t.Fatalf("%s Wait = %d, want 2", name, v)
		}
	}
}
