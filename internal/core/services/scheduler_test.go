package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// countingSync implements driving.LibrarySync and counts passes.
type countingSync struct {
	passes atomic.Int32
	status domain.SyncStatus
	err    error
}

func (c *countingSync) SyncOnce(context.Context) (*domain.SyncReport, error) {
	c.passes.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	status := c.status
	if status == "" {
		status = domain.SyncStatusOK
	}
	return &domain.SyncReport{Status: status, Scanned: 1, Ingested: 1}, nil
}

func (c *countingSync) BreakLock() error { return nil }

// startScheduler runs s in the background and stops it when the test ends.
func startScheduler(t *testing.T, s *Scheduler) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	t.Cleanup(func() { _ = s.Stop() })
	return done
}

func TestNewScheduler_DefaultDebounce(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, &countingSync{})
	assert.Equal(t, DefaultSyncDebounce, s.config.Debounce)
}

func TestScheduler_DebouncesTriggers(t *testing.T) {
	ls := &countingSync{}
	s := NewScheduler(SchedulerConfig{Debounce: 30 * time.Millisecond}, ls)
	startScheduler(t, s)

	for range 5 {
		s.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return ls.passes.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), ls.passes.Load())
}

func TestScheduler_RunOnStart(t *testing.T) {
	ls := &countingSync{}
	s := NewScheduler(SchedulerConfig{RunOnStart: true}, ls)
	startScheduler(t, s)

	assert.Eventually(t, func() bool { return ls.passes.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_Interval(t *testing.T) {
	ls := &countingSync{}
	s := NewScheduler(SchedulerConfig{Interval: 10 * time.Millisecond}, ls)
	startScheduler(t, s)

	assert.Eventually(t, func() bool { return ls.passes.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_ReportsEveryPass(t *testing.T) {
	boom := errors.New("walk failed")
	tests := []struct {
		name   string
		sync   *countingSync
		status domain.SyncStatus
		err    error
	}{
		{name: "ok", sync: &countingSync{}, status: domain.SyncStatusOK},
		{name: "locked", sync: &countingSync{status: domain.SyncStatusLocked}, status: domain.SyncStatusLocked},
		{name: "error", sync: &countingSync{err: boom}, err: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu     sync.Mutex
				report *domain.SyncReport
				got    error
				calls  int
			)
			s := NewScheduler(SchedulerConfig{RunOnStart: true}, tt.sync)
			s.OnReport(func(r *domain.SyncReport, err error) {
				mu.Lock()
				defer mu.Unlock()
				report, got = r, err
				calls++
			})
			startScheduler(t, s)

			assert.Eventually(t, func() bool {
				mu.Lock()
				defer mu.Unlock()
				return calls == 1
			}, time.Second, 5*time.Millisecond)

			mu.Lock()
			defer mu.Unlock()
			if tt.err != nil {
				assert.ErrorIs(t, got, tt.err)
				assert.Nil(t, report)
				return
			}
			require.NoError(t, got)
			assert.Equal(t, tt.status, report.Status)
		})
	}
}

func TestScheduler_StopEndsStart(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, &countingSync{})
	done := startScheduler(t, s)

	// Give Start a moment to mark the scheduler running.
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}

	// Stopping twice is harmless.
	assert.NoError(t, s.Stop())
}

func TestScheduler_ContextCancelEndsStart(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, &countingSync{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestScheduler_TriggerNeverBlocks(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, &countingSync{})
	for range 100 {
		s.Trigger()
	}
	assert.Len(t, s.triggers, 1)
}
