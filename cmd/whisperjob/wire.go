package main

import (
	"context"
	"fmt"

	"github.com/kbukum/whisperjob/api"
	"github.com/kbukum/whisperjob/audio"
	"github.com/kbukum/whisperjob/bootstrap"
	"github.com/kbukum/whisperjob/job"
	"github.com/kbukum/whisperjob/kafka"
	"github.com/kbukum/whisperjob/kafka/consumer"
	"github.com/kbukum/whisperjob/kafka/producer"
	"github.com/kbukum/whisperjob/logger"
	"github.com/kbukum/whisperjob/observability"
	"github.com/kbukum/whisperjob/provider"
	"github.com/kbukum/whisperjob/server"
	"github.com/kbukum/whisperjob/transcription"
	"github.com/kbukum/whisperjob/transcription/mock"
	"github.com/kbukum/whisperjob/transcription/whisper"
)

// Service holds the wired core shared by every transport.
type Service struct {
	Model    *transcription.Model
	Pipeline *job.Pipeline
	Metrics  *observability.Metrics
}

func newBackendRegistry() *provider.Registry[transcription.Backend] {
	reg := transcription.NewRegistry()
	reg.RegisterFactory(whisper.ProviderName, whisper.Factory())
	reg.RegisterFactory(mock.ProviderName, mock.Factory())
	return reg
}

// buildService creates the model guard, the instrumented normalizer and the
// pipeline.
func buildService(cfg *Config, log *logger.Logger) (*Service, error) {
	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	backend, err := newBackendRegistry().Create(cfg.Engine.Backend, cfg.Engine.Options)
	if err != nil {
		return nil, fmt.Errorf("engine backend %q: %w", cfg.Engine.Backend, err)
	}
	model := transcription.NewModel(cfg.Engine, backend,
		transcription.WithMetrics(metrics),
		transcription.WithLogger(log.WithComponent("model")),
	)

	normalizer := provider.Chain(
		provider.WithTracing[audio.Request, *audio.Waveform](serviceName),
		provider.WithMetrics[audio.Request, *audio.Waveform](metrics),
		provider.WithLogging[audio.Request, *audio.Waveform](log.WithComponent("normalizer")),
	)(audio.NewNormalizer(cfg.Normalizer))

	pipeline := job.NewPipeline(cfg.Pipeline, job.NormalizerFunc(normalizer.Execute), model,
		job.WithMetrics(metrics),
		job.WithLogger(log.WithComponent("pipeline")),
	)
	return &Service{Model: model, Pipeline: pipeline, Metrics: metrics}, nil
}

// registerTelemetry installs OTLP providers and flushes them on stop.
func registerTelemetry(ctx context.Context, app *bootstrap.App[*Config]) error {
	shutdown, err := observability.Setup(ctx, app.Cfg.Telemetry, app.Name, app.Version, app.Cfg.Environment)
	if err != nil {
		return err
	}
	app.OnStop(func(ctx context.Context) error { return shutdown(ctx) })
	return nil
}

// registerTransports adds the HTTP server and, when enabled, the Kafka
// worker. The model registers first so it stops last.
func registerTransports(app *bootstrap.App[*Config], svc *Service) error {
	cfg := app.Cfg
	if err := app.RegisterComponent(svc.Model); err != nil {
		return err
	}

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server, app.Logger)
		srv.ApplyMiddleware()
		srv.RegisterDefaultEndpoints(app.Name, app.Components.HealthAll, func(context.Context) (bool, string) {
			if svc.Model.IsReady() {
				return true, ""
			}
			return false, "model not loaded"
		})
		api.NewHandler(svc.Pipeline, app.Logger).Register(srv.GinEngine())
		if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
			return err
		}
	}

	if cfg.Kafka.Enabled {
		prod, err := producer.NewProducer(cfg.Kafka, app.Logger)
		if err != nil {
			return err
		}
		cons, err := consumer.NewConsumer(cfg.Kafka, cfg.Kafka.JobTopic, app.Logger)
		if err != nil {
			_ = prod.Close()
			return err
		}
		kc := kafka.NewComponent(cfg.Kafka, app.Logger)
		kc.SetProducer(prod)
		kc.AddConsumer(consumer.AsRunner(cons,
			consumer.JobHandler(svc.Pipeline, prod, cfg.Kafka.ResultTopic, app.Logger)))
		if err := app.RegisterComponent(kc); err != nil {
			return err
		}
	}
	return nil
}
