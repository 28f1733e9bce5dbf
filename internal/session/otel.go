package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pixil98/go-park/internal/session"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics are recorded against the global meter provider, which is a no-op
// unless the process installs one.
type metrics struct {
	ticks     metric.Int64Counter
	applied   metric.Int64Counter
	rejected  metric.Int64Counter
	snapshots metric.Int64Counter
	guests    metric.Int64ObservableGauge
	cash      metric.Float64ObservableGauge
}

func newMetrics(g *Game) (*metrics, error) {
	m := meter()
	out := &metrics{}

	var err error
	out.ticks, err = m.Int64Counter(
		"park.ticks",
		metric.WithDescription("Simulation ticks advanced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	out.applied, err = m.Int64Counter(
		"park.actions.applied",
		metric.WithDescription("Actions applied to the park"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating applied counter: %w", err)
	}

	out.rejected, err = m.Int64Counter(
		"park.actions.rejected",
		metric.WithDescription("Actions the reducer refused"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	out.snapshots, err = m.Int64Counter(
		"park.snapshots.received",
		metric.WithDescription("Full park snapshots adopted from peers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snapshots counter: %w", err)
	}

	out.guests, err = m.Int64ObservableGauge(
		"park.guests",
		metric.WithDescription("Guests currently in the park"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guests gauge: %w", err)
	}

	out.cash, err = m.Float64ObservableGauge(
		"park.cash",
		metric.WithDescription("Cash on hand"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cash gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			w := g.Snapshot()
			name := attribute.String("park", w.Name)
			o.ObserveInt64(out.guests, int64(len(w.Guests)), metric.WithAttributes(name))
			o.ObserveFloat64(out.cash, w.Finances.Cash, metric.WithAttributes(name))
			return nil
		},
		out.guests, out.cash,
	)
	if err != nil {
		return nil, fmt.Errorf("registering park callback: %w", err)
	}

	return out, nil
}

func actionAttrs(source, actionType string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("type", actionType),
	)
}
