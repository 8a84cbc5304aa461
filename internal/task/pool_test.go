package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(2, 8, 0, zap.NewNop())
	defer pool.Stop()

	var done atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := pool.Submit(Job{
			Name: "count",
			Run: func(ctx context.Context) error {
				defer wg.Done()
				done.Add(1)
				return nil
			},
		})
		if err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
	}
	wg.Wait()

	if got := done.Load(); got != 20 {
		t.Errorf("expected 20 jobs to run, got %d", got)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	pool := NewPool(workers, 32, 0, zap.NewNop())
	defer pool.Stop()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		_ = pool.Submit(Job{
			Name: "probe",
			Run: func(ctx context.Context) error {
				defer wg.Done()
				now := running.Add(1)
				for {
					p := peak.Load()
					if now <= p || peak.CompareAndSwap(p, now) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			},
		})
	}
	wg.Wait()

	if got := peak.Load(); got > workers {
		t.Errorf("observed %d concurrent jobs, want at most %d", got, workers)
	}
}

func TestPool_JobContextCarriesTimeout(t *testing.T) {
	pool := NewPool(1, 1, 50*time.Millisecond, zap.NewNop())
	defer pool.Stop()

	deadlineSet := make(chan bool, 1)
	_ = pool.Submit(Job{
		Name: "deadline",
		Run: func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			deadlineSet <- ok
			return nil
		},
	})

	select {
	case ok := <-deadlineSet:
		if !ok {
			t.Error("job context has no deadline despite pool timeout")
		}
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
}

func TestPool_StopWaitsForInFlightJobs(t *testing.T) {
	pool := NewPool(1, 1, 0, zap.NewNop())

	started := make(chan struct{})
	var finished atomic.Bool
	_ = pool.Submit(Job{
		Name: "slow",
		Run: func(ctx context.Context) error {
			close(started)
			time.Sleep(30 * time.Millisecond)
			finished.Store(true)
			return nil
		},
	})

	<-started
	pool.Stop()

	if !finished.Load() {
		t.Error("Stop returned before the in-flight job finished")
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, 0, zap.NewNop())
	pool.Stop()

	err := pool.Submit(Job{Name: "late", Run: func(ctx context.Context) error { return nil }})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_StopIsIdempotent(t *testing.T) {
	pool := NewPool(2, 4, 0, zap.NewNop())
	pool.Stop()
	pool.Stop()
}

func TestPool_FailedJobDoesNotStopWorkers(t *testing.T) {
	pool := NewPool(1, 4, 0, zap.NewNop())
	defer pool.Stop()

	_ = pool.Submit(Job{Name: "bad", Run: func(ctx context.Context) error {
		return errors.New("boom")
	}})

	ran := make(chan struct{})
	_ = pool.Submit(Job{Name: "good", Run: func(ctx context.Context) error {
		close(ran)
		return nil
	}})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker stopped processing after a failed job")
	}
}
