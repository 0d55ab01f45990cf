package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"crypto-deposit-reconcile-go/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkerConfig contains configuration for the sweep worker.
type WorkerConfig struct {
	Engine        *Engine
	Store         store.DepositStore
	SweepInterval time.Duration
	SweepParallel int
}

// Worker periodically reconciles every registered user. Users are
// independent, so sweeps fan out with bounded concurrency; a sweep that is
// still running when the next tick fires is not doubled up, keeping
// per-user cycles from overlapping as a matter of scheduling (the ledger's
// uniqueness constraint stays the safety net).
type Worker struct {
	engine   *Engine
	store    store.DepositStore
	cron     *cron.Cron
	interval  time.Duration
	parallel  int
	sweeping  atomic.Bool
	bootstrap sync.WaitGroup
}

func NewWorker(cfg WorkerConfig) *Worker {
	parallel := cfg.SweepParallel
	if parallel <= 0 {
		parallel = 4
	}
	return &Worker{
		engine:   cfg.Engine,
		store:    cfg.Store,
		cron:     cron.New(),
		interval: cfg.SweepInterval,
		parallel: parallel,
	}
}

// Start runs one immediate sweep and schedules the periodic ones.
func (w *Worker) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", w.interval)
	if _, err := w.cron.AddFunc(spec, func() {
		w.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	// The immediate sweep is not a cron entry, so Stop tracks it separately.
	w.bootstrap.Add(1)
	go func() {
		defer w.bootstrap.Done()
		w.sweep(ctx)
	}()
	w.cron.Start()

	zap.L().Info("Reconciliation worker started",
		zap.Duration("sweep_interval", w.interval),
		zap.Int("sweep_parallel", w.parallel))
	return nil
}

// Stop halts scheduling and waits for any running sweep, including the
// bootstrap one, to end.
func (w *Worker) Stop() {
	zap.L().Info("Stopping reconciliation worker")
	<-w.cron.Stop().Done()
	w.bootstrap.Wait()
	zap.L().Info("Reconciliation worker stopped")
}

func (w *Worker) sweep(ctx context.Context) {
	if !w.sweeping.CompareAndSwap(false, true) {
		zap.L().Debug("Previous sweep still running, skipping tick")
		return
	}
	defer w.sweeping.Store(false)

	started := time.Now()
	users, err := w.store.GetUsers(ctx)
	if err != nil {
		zap.L().Error("Sweep aborted: failed to list users", zap.Error(err))
		return
	}

	var failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(w.parallel)
	for _, user := range users {
		userId := user.Id
		g.Go(func() error {
			if _, err := w.engine.ReconcileUser(ctx, userId); err != nil {
				// Cycle-fatal for this user only; the next sweep retries.
				failed.Add(1)
				zap.L().Error("Reconciliation cycle failed",
					zap.String("user_id", userId),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("Sweep complete",
		zap.Int("users", len(users)),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(started)))
}
