package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunOnStart(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs int32
	err := s.Register(&Task{
		ID:         "sync",
		Interval:   time.Hour,
		RunOnStart: true,
		Handler: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	s.Start()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&runs) == 0 {
		select {
		case <-deadline:
			t.Fatal("task never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_IntervalRuns(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs int32
	s.Register(&Task{
		ID:       "tick",
		Interval: 20 * time.Millisecond,
		Handler: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})
	s.Start()

	time.Sleep(150 * time.Millisecond)
	if n := atomic.LoadInt32(&runs); n < 2 {
		t.Errorf("got %d runs, want at least 2", n)
	}
}

func TestScheduler_TracksErrors(t *testing.T) {
	s := New()
	defer s.Stop()

	s.Register(&Task{
		ID:         "failing",
		Interval:   time.Hour,
		RunOnStart: true,
		Handler: func(ctx context.Context) error {
			return errors.New("bank unavailable")
		},
	})
	s.Start()

	deadline := time.After(2 * time.Second)
	for {
		tasks := s.Tasks()
		if len(tasks) == 1 && tasks[0].RunCount > 0 {
			if tasks[0].ErrorCount != tasks[0].RunCount {
				t.Errorf("error count = %d, run count = %d", tasks[0].ErrorCount, tasks[0].RunCount)
			}
			if tasks[0].LastError != "bank unavailable" {
				t.Errorf("last error = %q", tasks[0].LastError)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("task never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s := New()
	defer s.Stop()

	noop := func(ctx context.Context) error { return nil }

	if err := s.Register(&Task{Interval: time.Hour, Handler: noop}); err == nil {
		t.Error("missing ID should be rejected")
	}
	if err := s.Register(&Task{ID: "x", Interval: time.Hour}); err == nil {
		t.Error("missing handler should be rejected")
	}
	if err := s.Register(&Task{ID: "x", Handler: noop}); err == nil {
		t.Error("zero interval should be rejected")
	}

	if err := s.Register(&Task{ID: "x", Interval: time.Hour, Handler: noop}); err != nil {
		t.Errorf("valid task rejected: %v", err)
	}
	if err := s.Register(&Task{ID: "x", Interval: time.Hour, Handler: noop}); err == nil {
		t.Error("duplicate ID should be rejected")
	}
}

func TestScheduler_StopWaitsForInflight(t *testing.T) {
	s := New()

	done := make(chan struct{})
	s.Register(&Task{
		ID:         "slow",
		Interval:   time.Hour,
		RunOnStart: true,
		Handler: func(ctx context.Context) error {
			time.Sleep(50 * time.Millisecond)
			close(done)
			return nil
		},
	})
	s.Start()

	time.Sleep(10 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	default:
		t.Error("Stop() returned before in-flight task finished")
	}
}
