// Package observability wires OpenTelemetry tracing and metrics.
//
// Setup installs OTLP/HTTP trace and metric providers when telemetry is
// enabled and leaves the global no-op providers in place otherwise, so
// instrumented code never branches on configuration.
//
// Every pipeline stage runs inside a StageScope, which opens a span and
// records the stage.duration histogram when it ends:
//
//	ctx, scope := observability.StartStage(ctx, metrics, "normalized")
//	wf, err := normalize(ctx)
//	scope.End(ctx, err)
package observability
