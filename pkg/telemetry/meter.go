package telemetry

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// MeterSnapshot reads the in-process meter provider on demand
type MeterSnapshot struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// MetricValue is one instrument aggregated over its attribute sets
type MetricValue struct {
	Name  string  `json:"name"`
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
	Count uint64  `json:"count,omitempty"`
}

// InitMeterProvider installs a pull-based meter provider as the global one.
// Instruments created afterwards are readable through Collect.
func InitMeterProvider() *MeterSnapshot {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return &MeterSnapshot{reader: reader, provider: provider}
}

// Collect returns every instrument ordered by name
func (m *MeterSnapshot) Collect(ctx context.Context) ([]MetricValue, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var out []MetricValue
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			v := MetricValue{Name: mt.Name}
			switch data := mt.Data.(type) {
			case metricdata.Sum[int64]:
				v.Kind = "sum"
				for _, dp := range data.DataPoints {
					v.Value += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				v.Kind = "sum"
				for _, dp := range data.DataPoints {
					v.Value += dp.Value
				}
			case metricdata.Histogram[float64]:
				v.Kind = "histogram"
				for _, dp := range data.DataPoints {
					v.Value += dp.Sum
					v.Count += dp.Count
				}
			default:
				continue
			}
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Shutdown flushes and stops the meter provider
func (m *MeterSnapshot) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
