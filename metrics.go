package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/mrdg/poly"

// voiceStats is the part of a voice pool that can be read from outside the
// audio thread.
type voiceStats interface {
	Active() int
	Dropped() uint64
	Size() int
}

// registerMetrics exposes pool occupancy through observable instruments.
// Values are read from atomics at collection time, the audio thread is
// never involved.
func registerMetrics(meter metric.Meter, stats voiceStats) error {
	active, err := meter.Int64ObservableGauge("poly.voices.active",
		metric.WithDescription("Voices sounding or releasing."),
		metric.WithUnit("{voice}"))
	if err != nil {
		return err
	}
	capacity, err := meter.Int64ObservableGauge("poly.voices.capacity",
		metric.WithDescription("Size of the voice pool."),
		metric.WithUnit("{voice}"))
	if err != nil {
		return err
	}
	dropped, err := meter.Int64ObservableCounter("poly.notes.dropped",
		metric.WithDescription("Note ons dropped because every voice was busy."),
		metric.WithUnit("{note}"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(active, int64(stats.Active()))
		o.ObserveInt64(capacity, int64(stats.Size()))
		o.ObserveInt64(dropped, int64(stats.Dropped()))
		return nil
	}, active, capacity, dropped)
	return err
}

// serveMetrics starts a Prometheus endpoint at addr serving /metrics. The
// returned function stops the server and flushes the meter provider.
func serveMetrics(addr string, stats voiceStats, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	if err := registerMetrics(mp.Meter(meterName), stats); err != nil {
		return nil, errors.Join(err, mp.Shutdown(context.Background()))
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Join(err, mp.Shutdown(context.Background()))
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
