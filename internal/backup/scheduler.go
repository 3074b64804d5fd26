package backup

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AutoDescription labels scheduled backups.
const AutoDescription = "Automatic backup"

// Scheduler creates an automatic backup on a fixed interval.
type Scheduler struct {
	m        *Manager
	interval time.Duration
	log      zerolog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewScheduler returns a Scheduler; a non-positive interval makes Run
// return immediately.
func NewScheduler(m *Manager, interval time.Duration) *Scheduler {
	return &Scheduler{
		m:        m,
		interval: interval,
		log:      m.log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.doneCh)
	if s.interval <= 0 {
		return
	}
	s.log.Debug().Dur("interval", s.interval).Msg("backup scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.m.Create(ctx, TypeAuto, AutoDescription); err != nil {
		s.log.Warn().Err(err).Msg("automatic backup failed")
	}
}

// Stop ends Run and waits for it to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}
