package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mentor-match/internal/model"
)

const (
	JobOptimize   = "db-optimize"
	JobMatchStats = "match-stats"

	jobTimeout = 5 * time.Minute
)

// Optimizer refreshes query planner statistics.
type Optimizer interface {
	Optimize(ctx context.Context) error
}

// StatusCounter reports match request totals per status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[model.MatchStatus]int64, error)
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

// Scheduler runs periodic database maintenance
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	jobs     []job
	entryMap map[string]cron.EntryID
	log      zerolog.Logger
	mu       sync.RWMutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates a scheduler that runs every maintenance job on spec.
// Both standard 5-field expressions and descriptors such as "@every 1h" are accepted.
func NewScheduler(spec string, db Optimizer, matches StatusCounter, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		cron:     cron.New(),
		spec:     spec,
		entryMap: make(map[string]cron.EntryID),
		log:      log.With().Str("component", "scheduler").Logger(),
	}
	s.jobs = []job{
		{name: JobOptimize, run: db.Optimize},
		{name: JobMatchStats, run: func(ctx context.Context) error {
			return s.logMatchStats(ctx, matches)
		}},
	}
	return s
}

// Start schedules all jobs and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, j := range s.jobs {
		entryID, err := s.cron.AddFunc(s.spec, func() {
			if err := s.Trigger(s.ctx, j.name); err != nil {
				s.log.Error().Err(err).Str("job", j.name).Msg("maintenance job failed")
			}
		})
		if err != nil {
			s.cancel()
			return fmt.Errorf("invalid cron expression '%s': %w", s.spec, err)
		}
		s.entryMap[j.name] = entryID
	}

	s.cron.Start()
	s.running = true

	s.log.Info().Str("spec", s.spec).Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()

	for name, entryID := range s.entryMap {
		s.cron.Remove(entryID)
		delete(s.entryMap, name)
	}
	s.running = false
	s.log.Info().Msg("Scheduler stopped")
}

// Trigger runs a job immediately
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	for _, j := range s.jobs {
		if j.name != name {
			continue
		}

		ctx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		if err := j.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.log.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("maintenance job finished")
		return nil
	}
	return fmt.Errorf("unknown job %q", name)
}

// NextRun returns the next run time of a job
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entryID, ok := s.entryMap[name]; ok {
		entry := s.cron.Entry(entryID)
		if !entry.Next.IsZero() {
			return &entry.Next
		}
	}
	return nil
}

// Jobs returns the scheduled job names
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entryMap))
	for name := range s.entryMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) logMatchStats(ctx context.Context, matches StatusCounter) error {
	counts, err := matches.CountByStatus(ctx)
	if err != nil {
		return err
	}

	event := s.log.Info()
	for _, status := range []model.MatchStatus{
		model.MatchStatusPending,
		model.MatchStatusAccepted,
		model.MatchStatusRejected,
		model.MatchStatusCancelled,
	} {
		event = event.Int64(string(status), counts[status])
	}
	event.Msg("match request totals")
	return nil
}
