package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/media-relay/internal/types"
)

func TestClaimOrJoinCreatesOnce(t *testing.T) {
	r := New(nil)

	snap, created := r.ClaimOrJoin("abc123", "Song Title")
	if !created {
		t.Fatal("first claim should create the job")
	}
	if snap.State != types.StatePending {
		t.Fatalf("new job state = %s, want %s", snap.State, types.StatePending)
	}

	again, created := r.ClaimOrJoin("abc123", "ignored title")
	if created {
		t.Fatal("second claim should join, not create")
	}
	if again.Title != "Song Title" {
		t.Fatalf("joined job title = %q, want original title", again.Title)
	}
}

func TestClaimOrJoinConcurrent(t *testing.T) {
	r := New(nil)

	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, created := r.ClaimOrJoin("abc123", "Song Title"); created {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if claims != 1 {
		t.Fatalf("got %d claims for one id, want exactly 1", claims)
	}
}

func TestTransitionOrder(t *testing.T) {
	r := New(nil)
	r.ClaimOrJoin("abc123", "Song Title")

	steps := []struct {
		name string
		do   func() error
	}{
		{"downloading", func() error { return r.MarkDownloading("abc123") }},
		{"converting", func() error { return r.MarkConverting("abc123") }},
		{"ready", func() error { return r.Complete("abc123", "/site/abc123.mp3") }},
	}
	for _, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
	}

	snap, ok := r.Lookup("abc123")
	if !ok {
		t.Fatal("job disappeared")
	}
	if snap.State != types.StateReady {
		t.Fatalf("state = %s, want %s", snap.State, types.StateReady)
	}
	if snap.OutputRef != "/site/abc123.mp3" {
		t.Fatalf("outputRef = %q", snap.OutputRef)
	}
	if snap.Error != "" {
		t.Fatalf("ready job carries error %q", snap.Error)
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		prep func(r *Registry)
		do   func(r *Registry) error
	}{
		{
			name: "skip downloading",
			prep: func(r *Registry) {},
			do:   func(r *Registry) error { return r.MarkConverting("abc123") },
		},
		{
			name: "complete from pending",
			prep: func(r *Registry) {},
			do:   func(r *Registry) error { return r.Complete("abc123", "x") },
		},
		{
			name: "leave terminal ready",
			prep: func(r *Registry) {
				r.MarkDownloading("abc123")
				r.MarkConverting("abc123")
				r.Complete("abc123", "x")
			},
			do: func(r *Registry) error { return r.MarkDownloading("abc123") },
		},
		{
			name: "fail after ready",
			prep: func(r *Registry) {
				r.MarkDownloading("abc123")
				r.MarkConverting("abc123")
				r.Complete("abc123", "x")
			},
			do: func(r *Registry) error { return r.Fail("abc123", errors.New("late")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(nil)
			r.ClaimOrJoin("abc123", "Song Title")
			tt.prep(r)
			if err := tt.do(r); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("err = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestTransitionUnknownJob(t *testing.T) {
	r := New(nil)
	if err := r.MarkDownloading("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
}

func TestFailRecordsCause(t *testing.T) {
	r := New(nil)
	r.ClaimOrJoin("abc123", "Song Title")
	r.MarkDownloading("abc123")

	if err := r.Fail("abc123", errors.New("stream cut")); err != nil {
		t.Fatal(err)
	}

	snap, _ := r.Lookup("abc123")
	if snap.State != types.StateFailed {
		t.Fatalf("state = %s, want %s", snap.State, types.StateFailed)
	}
	if snap.Error != "stream cut" {
		t.Fatalf("error = %q", snap.Error)
	}
	if snap.OutputRef != "" {
		t.Fatalf("failed job carries outputRef %q", snap.OutputRef)
	}
}

func TestAwaitUnblocksOnTerminal(t *testing.T) {
	r := New(nil)
	r.ClaimOrJoin("abc123", "Song Title")
	r.MarkDownloading("abc123")

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.MarkConverting("abc123")
		r.Complete("abc123", "/site/abc123.mp3")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := r.Await(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Ready() {
		t.Fatalf("awaited job state = %s, want ready", snap.State)
	}
}

func TestAwaitHonorsContext(t *testing.T) {
	r := New(nil)
	r.ClaimOrJoin("abc123", "Song Title")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := r.Await(ctx, "abc123"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestLookupIdempotent(t *testing.T) {
	r := New(nil)
	r.ClaimOrJoin("abc123", "Song Title")
	r.MarkDownloading("abc123")

	first, _ := r.Lookup("abc123")
	second, _ := r.Lookup("abc123")
	if first != second {
		t.Fatalf("repeated lookups differ: %+v vs %+v", first, second)
	}
}

func TestRetrigger(t *testing.T) {
	r := New(nil)
	r.ClaimOrJoin("abc123", "Song Title")

	if err := r.Retrigger("abc123"); !errors.Is(err, ErrNotFailed) {
		t.Fatalf("retrigger of pending job: err = %v, want ErrNotFailed", err)
	}

	r.MarkDownloading("abc123")
	r.Fail("abc123", errors.New("stream cut"))

	if err := r.Retrigger("abc123"); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Lookup("abc123"); ok {
		t.Fatal("retriggered job still present")
	}

	if _, created := r.ClaimOrJoin("abc123", "Song Title"); !created {
		t.Fatal("fresh claim after retrigger should create")
	}
}

func TestNotifyObservesEveryTransition(t *testing.T) {
	var mu sync.Mutex
	var seen []types.State

	r := New(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})

	r.ClaimOrJoin("abc123", "Song Title")
	r.MarkDownloading("abc123")
	r.MarkConverting("abc123")
	r.Complete("abc123", "/site/abc123.mp3")

	want := []types.State{
		types.StatePending,
		types.StateDownloading,
		types.StateConverting,
		types.StateReady,
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("saw %d events, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, seen[i], want[i])
		}
	}
}
