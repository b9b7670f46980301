package metrics

import (
	"context"
	"sync"

	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Reservation counters
	ReservationsConfirmed *telemetry.Counter
	ReservationsCancelled *telemetry.Counter
	ReservationsRejected  *telemetry.Counter

	// Review counters
	ReviewsAdded *telemetry.Counter

	// Owner and worker counters
	CapacityResized   *telemetry.Counter
	CountersRepaired  *telemetry.Counter
	ReconcileFailures *telemetry.Counter

	// Histograms
	ReconcileDuration *telemetry.Histogram

	// Gauges
	ActiveReservations *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all reservation metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	ReservationsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservations_confirmed_total",
		Description: "Total number of confirmed reservations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservations_cancelled_total",
		Description: "Total number of cancelled reservations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservations_rejected_total",
		Description: "Total number of rejected reservation attempts by reason",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReviewsAdded, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reviews_added_total",
		Description: "Total number of reviews added",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CapacityResized, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "availability_resizes_total",
		Description: "Total number of owner capacity changes",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CountersRepaired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "availability_counters_repaired_total",
		Description: "Counters whose available value was corrected by reconciliation",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReconcileFailures, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "availability_reconcile_failures_total",
		Description: "Slots that could not be reconciled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReconcileDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "availability_reconcile_duration_seconds",
		Description: "Duration of one full reconciliation pass",
		Unit:        "s",
	}, []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60})
	if err != nil {
		return err
	}

	ActiveReservations, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "reservations_active",
		Description: "Confirmed reservations created minus cancelled since start",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordConfirmed records a confirmed reservation
func RecordConfirmed(ctx context.Context, restaurantID, tableType string) {
	if ReservationsConfirmed != nil {
		ReservationsConfirmed.Inc(ctx,
			attribute.String("restaurant_id", restaurantID),
			attribute.String("table_type", tableType),
		)
	}
	if ActiveReservations != nil {
		ActiveReservations.Inc(ctx)
	}
}

// RecordCancelled records a cancellation
func RecordCancelled(ctx context.Context, restaurantID, tableType string) {
	if ReservationsCancelled != nil {
		ReservationsCancelled.Inc(ctx,
			attribute.String("restaurant_id", restaurantID),
			attribute.String("table_type", tableType),
		)
	}
	if ActiveReservations != nil {
		ActiveReservations.Dec(ctx)
	}
}

// RecordRejected records a reservation attempt that did not get a table
func RecordRejected(ctx context.Context, restaurantID, reason string) {
	if ReservationsRejected != nil {
		ReservationsRejected.Inc(ctx,
			attribute.String("restaurant_id", restaurantID),
			attribute.String("reason", reason),
		)
	}
}

// RecordReview records an added review
func RecordReview(ctx context.Context, restaurantID string, rating int) {
	if ReviewsAdded != nil {
		ReviewsAdded.Inc(ctx,
			attribute.String("restaurant_id", restaurantID),
			attribute.Int("rating", rating),
		)
	}
}

// RecordResize records an owner capacity change
func RecordResize(ctx context.Context, restaurantID, tableType string, delta int) {
	if CapacityResized != nil {
		CapacityResized.Inc(ctx,
			attribute.String("restaurant_id", restaurantID),
			attribute.String("table_type", tableType),
			attribute.Bool("grow", delta > 0),
		)
	}
}

// RecordReconcilePass records the outcome of one reconciliation pass
func RecordReconcilePass(ctx context.Context, repaired, failed int64, durationSeconds float64) {
	if CountersRepaired != nil && repaired > 0 {
		CountersRepaired.Add(ctx, repaired)
	}
	if ReconcileFailures != nil && failed > 0 {
		ReconcileFailures.Add(ctx, failed)
	}
	if ReconcileDuration != nil {
		ReconcileDuration.Record(ctx, durationSeconds)
	}
}
