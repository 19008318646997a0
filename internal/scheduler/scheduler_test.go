package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(quietLogger())

	var onStart, periodic atomic.Int32
	s.Add(Job{Name: "startup", Interval: time.Hour, RunOnStart: true, Run: func(ctx context.Context) error {
		onStart.Add(1)
		return nil
	}})
	s.Add(Job{Name: "tick", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
		periodic.Add(1)
		return errors.New("failures are logged, not fatal")
	}})

	s.Start()
	assert.Eventually(t, func() bool { return periodic.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), onStart.Load())
}

func TestSchedulerRunsJobsSequentially(t *testing.T) {
	s := NewScheduler(quietLogger())

	var (
		mu      sync.Mutex
		running int
		overlap bool
		runs    atomic.Int32
	)
	job := func(ctx context.Context) error {
		mu.Lock()
		running++
		if running > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(2 * time.Millisecond)
		runs.Add(1)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}
	s.Add(Job{Name: "a", Interval: time.Millisecond, Run: job})
	s.Add(Job{Name: "b", Interval: time.Millisecond, Run: job})

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 10 }, time.Second, 5*time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, overlap)
}

func TestSchedulerIgnoresInvalidJobs(t *testing.T) {
	s := NewScheduler(quietLogger())
	s.Add(Job{Name: "no interval", Run: func(ctx context.Context) error { return nil }})
	s.Add(Job{Name: "no func", Interval: time.Second})
	assert.Empty(t, s.jobs)

	s.Start()
	s.Add(Job{Name: "late", Interval: time.Second, Run: func(ctx context.Context) error { return nil }})
	assert.Empty(t, s.jobs)
	s.Stop()
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(quietLogger())
	started := make(chan struct{})
	s.Add(Job{Name: "long", Interval: time.Hour, RunOnStart: true, Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}})

	s.Start()
	<-started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
