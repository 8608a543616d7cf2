// Package maintenance runs periodic housekeeping jobs on a cron schedule.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/repo"
)

var purgedRecords = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "rentme_idempotency_purged_total",
	Help: "Expired idempotency records removed by the maintenance job.",
})

func init() {
	prometheus.MustRegister(purgedRecords)
}

// Scheduler purges expired idempotency records on a cron schedule.
type Scheduler struct {
	db       *gorm.DB
	schedule string
	timeout  time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New returns a stopped scheduler. schedule uses robfig/cron syntax,
// including descriptors such as "@every 1h" and "@daily".
func New(db *gorm.DB, schedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		schedule: schedule,
		timeout:  30 * time.Second,
		log:      log.With().Str("component", "maintenance").Logger(),
		now:      time.Now,
	}
}

// RunOnce performs a single purge pass and returns the number of rows removed.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	n, err := repo.PurgeExpiredIdempotency(ctx, s.db, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge idempotency: %w", err)
	}
	purgedRecords.Add(float64(n))
	return n, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("maintenance run failed")
		return
	}
	s.log.Debug().Int64("purged", n).Msg("maintenance run complete")
}

// Start registers the purge job and starts the cron loop. An empty schedule
// disables the scheduler. Calling Start twice is a no-op.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.log.Info().Msg("maintenance disabled")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, s.tick); err != nil {
		return fmt.Errorf("maintenance schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info().Str("schedule", s.schedule).Msg("maintenance started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish or for ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
