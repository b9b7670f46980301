package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/metrics"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/retry"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReconcileWorkerConfig holds configuration for the reconcile worker
type ReconcileWorkerConfig struct {
	Interval    time.Duration
	Concurrency int
	// Retry applies to listing the slot keys at the start of a pass
	Retry *retry.Config

	// Seeder and Schedule, when both set, create the slots Schedule(Now())
	// returns before each pass, so the bookable window rolls forward
	Seeder   SlotSeeder
	Schedule func(now time.Time) []*domain.TimeSlot
	Now      func() time.Time
}

// SlotSeeder creates missing slots
type SlotSeeder interface {
	Seed(ctx context.Context, slots []*domain.TimeSlot) (int, error)
}

// SlotLister lists every seeded slot
type SlotLister interface {
	ListKeys(ctx context.Context) ([]domain.SlotKey, error)
}

// SlotReconciler rederives the counters of one slot
type SlotReconciler interface {
	ReconcileSlot(ctx context.Context, key domain.SlotKey) (int, error)
}

// PassResult summarizes one reconcile pass
type PassResult struct {
	Seeded   int
	Slots    int
	Repaired int64
	Failed   int64
	Duration time.Duration
}

// ReconcileWorker periodically rebuilds availability counters from confirmed reservations
type ReconcileWorker struct {
	config     *ReconcileWorkerConfig
	slots      SlotLister
	reconciler SlotReconciler
	retrier    *retry.Retrier
	log        *logger.Logger
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(
	cfg *ReconcileWorkerConfig,
	slots SlotLister,
	reconciler SlotReconciler,
	log *logger.Logger,
) *ReconcileWorker {
	if cfg == nil {
		cfg = &ReconcileWorkerConfig{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Get()
	}

	return &ReconcileWorker{
		config:     cfg,
		slots:      slots,
		reconciler: reconciler,
		retrier:    retry.New(cfg.Retry),
		log:        log,
	}
}

// Start runs a pass immediately and then every Interval until ctx is done
func (w *ReconcileWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Reconcile worker stopped")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *ReconcileWorker) runLogged(ctx context.Context) {
	res, err := w.RunPass(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("Reconcile pass failed", zap.Error(err))
		}
		return
	}
	if res.Seeded > 0 || res.Repaired > 0 || res.Failed > 0 {
		w.log.Info("Reconcile pass finished",
			zap.Int("seeded", res.Seeded),
			zap.Int("slots", res.Slots),
			zap.Int64("repaired", res.Repaired),
			zap.Int64("failed", res.Failed),
			zap.Duration("duration", res.Duration),
		)
	}
}

// RunPass seeds the scheduled window, then reconciles every slot once. Failures of single slots are counted, not returned.
func (w *ReconcileWorker) RunPass(ctx context.Context) (*PassResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "worker.reconcile.pass")
	defer span.End()

	start := time.Now()

	seeded := w.seed(ctx)

	var keys []domain.SlotKey
	res := w.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		keys, err = w.slots.ListKeys(ctx)
		return err
	}, func(attempt int, err error, wait time.Duration) {
		w.log.Warn("Listing slots failed, retrying",
			zap.Int("attempt", attempt), zap.Error(err), zap.Duration("wait", wait))
	})
	if res.Err != nil {
		err := res.Err
		if errors.Is(err, retry.ErrMaxRetriesExceeded) {
			err = fmt.Errorf("list slots: %w", res.LastError)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	var repaired, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)
	for _, key := range keys {
		g.Go(func() error {
			n, err := w.reconciler.ReconcileSlot(gctx, key)
			repaired.Add(int64(n))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				w.log.Warn("Slot reconcile failed", zap.String("slot", key.String()), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &PassResult{
		Seeded:   seeded,
		Slots:    len(keys),
		Repaired: repaired.Load(),
		Failed:   failed.Load(),
		Duration: time.Since(start),
	}
	metrics.RecordReconcilePass(ctx, result.Repaired, result.Failed, result.Duration.Seconds())

	span.SetAttributes(
		attribute.Int("seeded", result.Seeded),
		attribute.Int("slots", result.Slots),
		attribute.Int64("repaired", result.Repaired),
		attribute.Int64("failed", result.Failed),
	)
	return result, nil
}

// seed creates the scheduled slots that do not exist yet. A failure is
// logged and the pass goes on with the slots already present.
func (w *ReconcileWorker) seed(ctx context.Context) int {
	if w.config.Seeder == nil || w.config.Schedule == nil {
		return 0
	}
	n, err := w.config.Seeder.Seed(ctx, w.config.Schedule(w.config.Now()))
	if err != nil {
		w.log.Warn("Seeding scheduled slots failed", zap.Error(err))
	}
	return n
}
