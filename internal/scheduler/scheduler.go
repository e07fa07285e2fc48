package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"gyftr-sheet-sync/internal/config"
	"gyftr-sheet-sync/internal/model"
	"gyftr-sheet-sync/internal/service"
)

// SourceScheduled labels runs triggered by the periodic safety-net scan.
const SourceScheduled = "scheduled_scan"

// BatchRunner is the slice of the sync engine the scheduler drives.
type BatchRunner interface {
	ProcessNewEmails(ctx context.Context, opts service.BatchOptions) *model.RunResult
}

// Scheduler periodically runs an unread-only batch scan to catch voucher
// emails whose push notification was missed.
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    *config.SchedulerConfig
	runner    BatchRunner
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, runner BatchRunner) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		config: cfg,
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.runScan)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runScan executes one scheduled safety-net scan
func (s *Scheduler) runScan() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping scan")
		return
	}
	s.mu.RUnlock()

	logrus.Info("Starting scheduled voucher scan")
	result := s.runner.ProcessNewEmails(s.ctx, service.BatchOptions{
		Source: SourceScheduled,
	})

	if len(result.Errors) > 0 {
		logrus.Warnf("Scheduled scan finished with %d errors", len(result.Errors))
	}
}

// RunOnce runs the scan once (for manual triggering)
func (s *Scheduler) RunOnce() {
	logrus.Info("Running voucher scan once")
	s.runScan()
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Prev
}

// Wait waits for in-flight scans to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
