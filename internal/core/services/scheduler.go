package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Verify interface compliance.
var _ driving.SyncScheduler = (*Scheduler)(nil)

// DefaultSyncDebounce is the quiet period after a trigger before a pass runs.
const DefaultSyncDebounce = 2 * time.Second

// SchedulerConfig controls when library sync passes run.
type SchedulerConfig struct {
	// Interval runs a pass periodically. Zero disables the ticker.
	Interval time.Duration

	// Debounce delays triggered passes until triggers stop arriving.
	// Zero uses DefaultSyncDebounce.
	Debounce time.Duration

	// RunOnStart runs one pass before waiting for triggers.
	RunOnStart bool
}

// Scheduler serialises library sync passes on a single goroutine.
// Passes are started by Trigger (debounced) or by the optional interval ticker.
type Scheduler struct {
	config SchedulerConfig
	sync   driving.LibrarySync

	triggers chan struct{}
	onReport func(*domain.SyncReport, error)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler driving the given sync service.
func NewScheduler(config SchedulerConfig, librarySync driving.LibrarySync) *Scheduler {
	if config.Debounce <= 0 {
		config.Debounce = DefaultSyncDebounce
	}
	return &Scheduler{
		config:   config,
		sync:     librarySync,
		triggers: make(chan struct{}, 1),
	}
}

// OnReport registers a callback invoked after every pass.
// Must be called before Start.
func (s *Scheduler) OnReport(fn func(*domain.SyncReport, error)) {
	s.onReport = fn
}

// Trigger requests a pass. It never blocks; triggers arriving while one is
// pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.triggers <- struct{}{}:
	default:
	}
}

// Start runs the scheduler loop. It blocks until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()
	return s.run(ctx, stopCh)
}

// Stop shuts the loop down and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	if s.config.RunOnStart {
		s.runPass(ctx)
	}

	var tick <-chan time.Time
	if s.config.Interval > 0 {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-s.triggers:
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(s.config.Debounce)
			fire = debounce.C
		case <-fire:
			debounce, fire = nil, nil
			s.runPass(ctx)
		case <-tick:
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	if s.sync == nil {
		return
	}
	report, err := s.sync.SyncOnce(ctx)
	switch {
	case err != nil:
		logger.Warn("scheduler: sync failed: %v", err)
	case report.Status == domain.SyncStatusLocked:
		logger.Info("scheduler: sync skipped, another pass holds the lock")
	default:
		logger.Debug("scheduler: sync scanned=%d ingested=%d failed=%d deleted=%d",
			report.Scanned, report.Ingested, report.Failed, report.Deleted)
	}
	if s.onReport != nil {
		s.onReport(report, err)
	}
}
