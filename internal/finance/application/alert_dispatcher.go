package application

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/metrics"
)

const evaluationTimeout = 30 * time.Second

type Evaluator interface {
	Evaluate(ctx context.Context, userID string) error
}

// AlertDispatcher runs budget evaluations on a background worker fed by a bounded queue.
// Trigger never blocks; a full queue drops the request since the next mutation re-triggers.
type AlertDispatcher struct {
	evaluator Evaluator
	queue     chan string
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewAlertDispatcher(evaluator Evaluator, queueSize int, m *metrics.Metrics, log zerolog.Logger) *AlertDispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &AlertDispatcher{
		evaluator: evaluator,
		queue:     make(chan string, queueSize),
		done:      make(chan struct{}),
		metrics:   m,
		log:       log,
	}
}

func (d *AlertDispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

func (d *AlertDispatcher) Trigger(userID string) {
	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.queue <- userID:
	default:
		d.metrics.EvaluationDropped()
		d.log.Warn().Str("user_id", userID).Msg("Budget evaluation queue full, dropping request")
	}
}

// Stop signals the worker and waits for the evaluation in flight, or for ctx to expire.
func (d *AlertDispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.done) })
	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AlertDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case userID := <-d.queue:
			d.evaluate(userID)
		}
	}
}

func (d *AlertDispatcher) evaluate(userID string) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error().Interface("panic", p).Str("user_id", userID).Msg("Budget evaluation panicked")
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), evaluationTimeout)
	defer cancel()
	if err := d.evaluator.Evaluate(ctx, userID); err != nil {
		d.log.Error().Err(err).Str("user_id", userID).Msg("Budget evaluation failed")
	}
}
