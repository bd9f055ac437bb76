package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/sebuszqo/FinanceTracker/internal/logger"
	"github.com/sebuszqo/FinanceTracker/internal/metrics"
)

const DefaultSchedule = "@every 1h"

// SweepResult counts what one sweep did with the due templates.
type SweepResult struct {
	Due          int `json:"due"`
	Materialized int `json:"materialized"`
	Stopped      int `json:"stopped"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
}

// RecurrenceScheduler materializes due recurring templates on a cron schedule.
type RecurrenceScheduler struct {
	store      domain.Store
	reconciler *application.BalanceReconciler
	alerts     application.AlertTrigger
	metrics    *metrics.Metrics
	clock      application.Clock
	spec       string
	log        zerolog.Logger

	cron    *cron.Cron
	sweepMu sync.Mutex
	running sync.WaitGroup
}

func New(store domain.Store, reconciler *application.BalanceReconciler, alerts application.AlertTrigger, m *metrics.Metrics,
	clock application.Clock, spec string, log zerolog.Logger) *RecurrenceScheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	return &RecurrenceScheduler{
		store:      store,
		reconciler: reconciler,
		alerts:     alerts,
		metrics:    m,
		clock:      clock,
		spec:       spec,
		log:        log.With().Str("component", "recurrence_scheduler").Logger(),
	}
}

// Start registers the periodic sweep and runs one sweep right away in the background.
func (s *RecurrenceScheduler) Start() error {
	cronLogger := logger.CronLogger{Logger: s.log}
	s.cron = cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := s.cron.AddFunc(s.spec, s.scheduledSweep); err != nil {
		return fmt.Errorf("invalid recurrence schedule %q: %w", s.spec, err)
	}
	s.cron.Start()

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.scheduledSweep()
	}()
	s.log.Info().Str("schedule", s.spec).Msg("Recurrence scheduler started")
	return nil
}

// Stop waits for the running sweep to finish or for ctx to expire.
func (s *RecurrenceScheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	cronDone := s.cron.Stop()
	finished := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.running.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		s.log.Info().Msg("Recurrence scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RecurrenceScheduler) scheduledSweep() {
	result, err := s.Sweep(context.Background())
	if err != nil {
		s.log.Error().Err(err).Msg("Recurring sweep failed")
		return
	}
	if result.Due > 0 {
		s.log.Info().Int("due", result.Due).Int("materialized", result.Materialized).
			Int("stopped", result.Stopped).Int("failed", result.Failed).Msg("Recurring sweep finished")
	}
}

// Sweep processes every due template once. Sweeps never overlap; one template failing does
// not stop the others. Only listing the due templates can fail the sweep as a whole.
func (s *RecurrenceScheduler) Sweep(ctx context.Context) (SweepResult, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	started := time.Now()
	defer func() { s.metrics.ObserveSweep(time.Since(started).Seconds()) }()

	now := s.now()
	due, err := s.store.Repos().Recurring.ListDue(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Due: len(due)}
	touched := map[string]bool{}
	for _, rt := range due {
		processed, err := s.process(ctx, rt, now)
		if err != nil {
			result.Failed++
			s.metrics.RecurringFailed()
			s.log.Error().Err(err).Str("recurring_id", rt.ID.String()).Str("user_id", rt.UserID).
				Msg("Failed to process recurring transaction")
			continue
		}
		if processed.materialized {
			result.Materialized++
			touched[rt.UserID] = true
			s.metrics.RecurringMaterialized()
		}
		if processed.stopped {
			result.Stopped++
			s.metrics.RecurringStopped()
		}
		if processed.skipped {
			result.Skipped++
		}
	}

	if s.alerts != nil {
		for userID := range touched {
			s.alerts.Trigger(userID)
		}
	}
	return result, nil
}

type outcome struct {
	materialized bool
	stopped      bool
	skipped      bool
}

// process handles one template inside its own database transaction. The listed copy may be
// stale, so the template is read again under a row lock and skipped when it is no longer due.
func (s *RecurrenceScheduler) process(ctx context.Context, listed domain.RecurringTransaction, now time.Time) (out outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while processing recurring transaction: %v", p)
		}
	}()

	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		out = outcome{}
		rt, err := repos.Recurring.FindByIDForUpdate(ctx, listed.UserID, listed.ID)
		if err != nil {
			return err
		}
		if !rt.IsDue(now) {
			out.skipped = true
			return nil
		}
		if rt.Exhausted(now) {
			rt.IsActive = false
			out.stopped = true
			return repos.Recurring.Update(ctx, rt)
		}

		transaction := rt.Materialize(now)
		if err := repos.Transactions.Create(ctx, &transaction); err != nil {
			return err
		}
		if _, err := s.reconciler.ApplyCreate(ctx, repos.Accounts, transaction); err != nil {
			return err
		}
		rt.Advance(now)
		out.materialized = true
		out.stopped = !rt.IsActive
		return repos.Recurring.Update(ctx, rt)
	})
	if err != nil {
		return outcome{}, err
	}
	return out, nil
}

func (s *RecurrenceScheduler) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
