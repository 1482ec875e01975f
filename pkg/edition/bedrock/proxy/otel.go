package proxy

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter  = otel.Meter("bedrock/proxy")
	tracer = otel.Tracer("bedrock/proxy")
)

func (p *Proxy) initMeter() error {
	_, err := meter.Int64ObservableGauge(
		"bridge.player_count",
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			o.Observe(int64(p.PlayerCount()))
			return nil
		}),
		metric.WithDescription("The current number of bridged Bedrock players"),
		metric.WithUnit("1"),
	)
	return err
}
