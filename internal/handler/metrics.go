package handler

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded on the order hot path. A nil
// *Metrics is valid and records nothing, so tests can skip instrumentation.
type Metrics struct {
	ordersPlaced metric.Int64Counter
	orderValue   metric.Float64Histogram
}

// NewMetrics registers the handler instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("storefront.handler")

	ordersPlaced, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders placed successfully"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}

	orderValue, err := meter.Float64Histogram("orders.value",
		metric.WithDescription("Final order total after discounts"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.value histogram")
	}

	return &Metrics{ordersPlaced: ordersPlaced, orderValue: orderValue}, nil
}

func (m *Metrics) recordOrder(ctx context.Context, total float64, guest, couponApplied bool) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("guest", guest),
		attribute.Bool("coupon_applied", couponApplied),
	)
	m.ordersPlaced.Add(ctx, 1, attrs)
	m.orderValue.Record(ctx, total, attrs)
}
