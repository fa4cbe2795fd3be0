// Package telemetry wires OpenTelemetry tracing and metrics for clausemark.
//
// Spans and metrics are exported over OTLP, either gRPC or HTTP/protobuf,
// to a collector. Telemetry is disabled by default; when it is enabled but
// a provider cannot be built, the instance reports itself degraded and
// falls back to the global no-op providers instead of failing startup.
//
//	tel, err := telemetry.New(ctx, cfg, telemetry.WithLogger(zl))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer(engine.InstrumentationName)
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
