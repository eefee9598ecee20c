// Package worker drives the task queue: it polls the store for pending
// tasks in small batches, calls the lookup API for each one
// sequentially and paces itself to stay under the external rate
// ceiling of 3 calls per minute.
package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cnpj-workers/internal/common/config"
	apperrors "cnpj-workers/internal/common/errors"
	"cnpj-workers/internal/common/logger"
	"cnpj-workers/internal/common/metrics"
	"cnpj-workers/internal/common/observability"
	"cnpj-workers/internal/lookup"
	"cnpj-workers/internal/task"
)

// LookupClient is the single-call contract against the external API.
type LookupClient interface {
	Lookup(ctx context.Context, identifier string) *lookup.Result
}

// TaskStore is the store contract the worker drives the state machine
// through.
type TaskStore interface {
	PendingBatch(ctx context.Context, limit int) ([]task.Task, error)
	MarkInProgress(ctx context.Context, identifier string) (bool, error)
	Complete(ctx context.Context, identifier string, rawResult []byte, name, registrationStatus string) error
	Fail(ctx context.Context, identifier string, rawResult []byte) error
	PendingCount(ctx context.Context) (int, error)
}

// Notifier receives a signal when the queue drains after a batch.
type Notifier interface {
	QueueDrained(ctx context.Context, processed int)
}

// Clock abstracts time so tests can assert the exact call cadence.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

type Worker struct {
	cfg      config.WorkerConfig
	store    TaskStore
	client   LookupClient
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
	clock    Clock
}

// New creates a worker. notifier and obs may be nil.
func New(cfg config.WorkerConfig, store TaskStore, client LookupClient, notifier Notifier, obs *observability.Observability, log logger.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		store:    store,
		client:   client,
		notifier: notifier,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "worker"}),
		clock:    realClock{},
	}
}

// Run is the unbounded polling loop. The loop never terminates on a
// single task's failure; failures are confined to that task's ERROR
// state. A store error aborts only the current iteration: the loop
// logs, backs off and resumes. Suspension is a coarse sleep, so an
// interrupted process may leave a task stranded IN_PROGRESS.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", map[string]interface{}{
		"batchSize": w.cfg.BatchSize,
		"cooldown":  w.cfg.Cooldown().String(),
	})

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopping", nil)
			return
		}

		processed, err := w.iterate(ctx)
		if err != nil {
			w.logger.WithError(err).Error("iteration failed, backing off", nil)
			w.clock.Sleep(w.cfg.Backoff())
			continue
		}

		if processed == 0 {
			// Nothing pending: a short idle poll, no cooldown.
			w.clock.Sleep(w.cfg.IdleWait())
			continue
		}

		// A consumed batch always costs a cooldown, keeping the call
		// rate under the API ceiling.
		w.clock.Sleep(w.cfg.Cooldown())
	}
}

// iterate consumes at most one batch. Tasks are processed strictly
// sequentially because the API rate ceiling is global, not
// per-connection.
func (w *Worker) iterate(ctx context.Context) (int, error) {
	batch, err := w.store.PendingBatch(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	w.logger.Info("batch found", map[string]interface{}{"count": len(batch)})

	for _, t := range batch {
		if err := w.process(ctx, t); err != nil {
			return 0, err
		}
	}
	metrics.BatchesProcessed.Inc()

	if n, err := w.store.PendingCount(ctx); err != nil {
		w.logger.WithError(err).Warn("pending count failed, skipping queue depth update", nil)
	} else {
		metrics.QueueDepth.Set(float64(n))
		if n == 0 && w.notifier != nil {
			w.notifier.QueueDrained(ctx, len(batch))
		}
	}

	return len(batch), nil
}

// process drives one task through IN_PROGRESS to its terminal state.
// The returned error is always a store failure; lookup failures land in
// the task's ERROR state instead.
func (w *Worker) process(ctx context.Context, t task.Task) error {
	claimed, err := w.store.MarkInProgress(ctx, t.Identifier)
	if err != nil {
		return err
	}
	if !claimed {
		// Another worker instance got there first.
		w.logger.Debug("task already claimed, skipping", map[string]interface{}{
			"identifier": t.Identifier,
		})
		return nil
	}

	log := w.logger.WithFields(map[string]interface{}{"identifier": t.Identifier})
	log.Info("processing task", nil)

	start := w.clock.Now()
	res := w.client.Lookup(ctx, t.Identifier)
	elapsed := w.clock.Now().Sub(start)

	if res.OK() {
		// The lookup API reports known failures as a 200 whose body
		// carries status ERROR; the body status decides the terminal
		// state, not the HTTP code.
		if status, _ := res.Data["status"].(string); status == "ERROR" {
			message, _ := res.Data["message"].(string)
			return w.failTask(ctx, t.Identifier, apperrors.NewRemoteError(http.StatusOK, message), elapsed)
		}
		raw, merr := json.Marshal(res.Data)
		if merr != nil {
			return w.failTask(ctx, t.Identifier, apperrors.NewNormalizationError(t.Identifier, merr), elapsed)
		}
		name, _ := res.Data["nome"].(string)
		situacao, _ := res.Data["situacao"].(string)
		if err := w.store.Complete(ctx, t.Identifier, raw, name, situacao); err != nil {
			return err
		}
		metrics.TasksCompleted.Inc()
		if w.obs != nil {
			w.obs.RecordTaskProcessed(ctx, string(task.StatusDone))
			w.obs.RecordTaskDuration(ctx, elapsed, string(task.StatusDone))
		}
		log.Info("task done", nil)
		return nil
	}

	return w.failTask(ctx, t.Identifier, res.Failure, elapsed)
}

func (w *Worker) failTask(ctx context.Context, identifier string, failure *apperrors.StandardError, elapsed time.Duration) error {
	raw, merr := json.Marshal(failure)
	if merr != nil {
		raw = []byte(`{"code":"` + string(failure.Code) + `"}`)
	}
	if err := w.store.Fail(ctx, identifier, raw); err != nil {
		return err
	}
	metrics.TasksFailed.WithLabelValues(string(failure.Code)).Inc()
	if w.obs != nil {
		w.obs.RecordTaskProcessed(ctx, string(task.StatusError))
		w.obs.RecordTaskDuration(ctx, elapsed, string(task.StatusError))
	}
	w.logger.Warn("task failed", map[string]interface{}{
		"identifier": identifier,
		"errorCode":  string(failure.Code),
		"message":    failure.Message,
	})
	return nil
}
