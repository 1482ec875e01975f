// Package otelutil sets up OpenTelemetry for the bridge.
package otelutil

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/honeycombio/otel-config-go/otelconfig"

	"go.minekube.com/bridge/pkg/version"
)

// ServiceName is the OpenTelemetry service name of the bridge.
const ServiceName = "bridge"

// Init configures the global OpenTelemetry providers from the standard
// OTEL_* environment variables, e.g. OTEL_EXPORTER_OTLP_ENDPOINT.
// The returned function flushes and shuts them down.
func Init(ctx context.Context, metrics, traces bool) (shutdown func(), err error) {
	if !metrics && !traces {
		return func() {}, nil
	}
	shutdown, err = otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(ServiceName),
		otelconfig.WithServiceVersion(version.String()),
		otelconfig.WithMetricsEnabled(metrics),
		otelconfig.WithTracesEnabled(traces),
	)
	if err != nil {
		return nil, err
	}
	logr.FromContextOrDiscard(ctx).Info("OpenTelemetry initialized", "metrics", metrics, "traces", traces)
	return shutdown, nil
}
