package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"scribe/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.runner == nil {
		m.mu.Unlock()
		return errors.New("workflow job runner not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.pollLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for running jobs to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Drain processes pending jobs until none remain, then returns. Jobs submitted
// after the queue was last seen empty are left for the next run.
func (m *Manager) Drain(ctx context.Context) error {
	if m.runner == nil {
		return errors.New("workflow job runner not configured")
	}
	var jobs sync.WaitGroup
	defer jobs.Wait()
	slots := make(chan struct{}, m.maxJobs)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case slots <- struct{}{}:
		}
		job, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			<-slots
			m.setLastError(err)
			return err
		}
		if job == nil {
			<-slots
			return nil
		}
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			defer func() { <-slots }()
			m.processJob(ctx, job)
		}()
	}
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()
	slots := make(chan struct{}, m.maxJobs)

	for {
		select {
		case <-ctx.Done():
			return
		case slots <- struct{}{}:
		}

		if err := m.heartbeat.ReclaimStale(ctx, m.logger); err != nil && ctx.Err() == nil {
			m.logger.Warn("reclaim stale processing failed; stuck jobs may remain",
				logging.Error(err),
				logging.Event("heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		job, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			<-slots
			m.handleClaimError(ctx, err)
			continue
		}
		if job == nil {
			<-slots
			m.waitOrShutdown(ctx, m.pollInterval)
			continue
		}

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer func() { <-slots }()
			m.processJob(ctx, job)
		}()
	}
}

func (m *Manager) handleClaimError(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	m.setLastError(err)
	m.logger.Error("failed to claim next job",
		logging.Error(err),
		logging.Event("queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.waitOrShutdown(ctx, m.retryDelay)
}

func (m *Manager) waitOrShutdown(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		delay = time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
