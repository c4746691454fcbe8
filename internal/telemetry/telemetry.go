// Package telemetry bootstraps the OpenTelemetry pipeline and the process
// logger.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/encoding/gzip"
)

const (
	ExporterNone   = ""
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const serviceVersion = "1.0.0"

// Config selects the exporter. OTLP endpoints and headers come from the
// standard OTEL_EXPORTER_OTLP_* variables.
type Config struct {
	Exporter    string
	ServiceName string
	// Writer receives log output when no OTLP collector is used. Defaults
	// to stdout.
	Writer io.Writer
}

// Setup returns the process logger. With no exporter it is a plain JSON
// logger; otherwise it is bridged into the OTel log pipeline. If it does not
// return an error, make sure to call shutdown for proper cleanup.
func Setup(ctx context.Context, cfg Config) (logger *slog.Logger, shutdown func(context.Context) error, err error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	var shutdownFuncs []func(context.Context) error

	// Each registered cleanup is invoked once and the errors are joined.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	switch cfg.Exporter {
	case ExporterNone:
		return slog.New(slog.NewJSONHandler(w, nil)), shutdown, nil
	case ExporterStdout, ExporterOTLP:
	default:
		return nil, nil, fmt.Errorf("unsupported telemetry exporter %q", cfg.Exporter)
	}

	otel.SetTextMapPropagator(newPropagator())

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", serviceVersion),
		))
	if err != nil {
		handleErr(err)
		return
	}

	if cfg.Exporter == ExporterOTLP {
		var tracerProvider *trace.TracerProvider
		if tracerProvider, err = newTraceProvider(ctx, res); err != nil {
			handleErr(err)
			return
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)

		var meterProvider *metric.MeterProvider
		if meterProvider, err = newMeterProvider(ctx, res); err != nil {
			handleErr(err)
			return
		}
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
		otel.SetMeterProvider(meterProvider)
	}

	loggerProvider, err := newLoggerProvider(ctx, cfg.Exporter, w, res)
	if err != nil {
		handleErr(err)
		return
	}
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	logger = otelslog.NewLogger(cfg.ServiceName, otelslog.WithLoggerProvider(loggerProvider))
	return logger, shutdown, nil
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
		xray.Propagator{},
	)
}

func newTraceProvider(ctx context.Context, res *resource.Resource) (*trace.TracerProvider, error) {
	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	)
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithIDGenerator(xray.NewIDGenerator()),
		trace.WithBatcher(traceExporter,
			trace.WithMaxQueueSize(10_000),
			trace.WithMaxExportBatchSize(10_000),
			trace.WithBatchTimeout(time.Second)),
	), nil
}

// preferDelta reports counters and histograms as deltas.
func preferDelta(kind metric.InstrumentKind) metricdata.Temporality {
	switch kind {
	case metric.InstrumentKindCounter,
		metric.InstrumentKindObservableCounter,
		metric.InstrumentKindHistogram:
		return metricdata.DeltaTemporality
	default:
		return metricdata.CumulativeTemporality
	}
}

func newMeterProvider(ctx context.Context, res *resource.Resource) (*metric.MeterProvider, error) {
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithCompressor(gzip.Name),
		otlpmetricgrpc.WithTemporalitySelector(preferDelta),
	)
	if err != nil {
		return nil, err
	}

	reader := metric.NewPeriodicReader(
		metricExporter,
		metric.WithInterval(15*time.Second),
	)

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
	), nil
}

func newLoggerProvider(ctx context.Context, exporter string, w io.Writer, res *resource.Resource) (*log.LoggerProvider, error) {
	if exporter == ExporterStdout {
		logExporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
		if err != nil {
			return nil, err
		}
		return log.NewLoggerProvider(
			log.WithResource(res),
			log.WithProcessor(log.NewSimpleProcessor(logExporter)),
		), nil
	}

	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithCompression(otlploghttp.GzipCompression),
	)
	if err != nil {
		return nil, err
	}
	return log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(logExporter)),
	), nil
}
