// Command whisperjob runs the transcription worker.
//
//	whisperjob serve [--config path]
//	whisperjob run --job job.json [--config path] [--out result.json]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/whisperjob/bootstrap"
	"github.com/kbukum/whisperjob/config"
	"github.com/kbukum/whisperjob/job"
	"github.com/kbukum/whisperjob/version"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "whisperjob:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `whisperjob %s

Usage:
  whisperjob serve [flags]   run the HTTP and Kafka transports
  whisperjob run --job FILE  process one job and print its envelope
  whisperjob version

Flags:
`, version.Full())
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return fmt.Errorf("missing command")
	}
	cmd, rest := args[0], args[1:]

	fs := pflag.NewFlagSet(serviceName+" "+cmd, pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "config file (default: search ./cmd/whisperjob, ./config, .)")
	envFile := fs.String("env-file", "", ".env file to load")
	jobFile := fs.StringP("job", "j", "", "job JSON file for run (- for stdin)")
	outFile := fs.StringP("out", "o", "", "write the envelope here instead of stdout")
	fs.Usage = func() {
		usage(os.Stderr)
		fs.PrintDefaults()
	}

	switch cmd {
	case "version":
		fmt.Fprintln(stdout, version.Full())
		return nil
	case "serve", "run":
	case "-h", "--help", "help":
		fs.Usage()
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err := fs.Parse(rest); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		return err
	}
	if cmd == "serve" {
		return serve(ctx, cfg)
	}
	if *jobFile == "" {
		return fmt.Errorf("run: --job is required")
	}
	return runOnce(ctx, cfg, *jobFile, *outFile, stdout)
}

func loadConfig(path, envFile string) (*Config, error) {
	opts := []config.LoaderOption{
		config.WithDefaults(map[string]any{"server.enabled": true}),
	}
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *Config) error {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if err := registerTelemetry(ctx, app); err != nil {
		return err
	}
	svc, err := buildService(cfg, app.Logger)
	if err != nil {
		return err
	}
	if err := registerTransports(app, svc); err != nil {
		return err
	}
	return app.Run(ctx)
}

// runOnce processes a single job file. Transports stay off; the model loads
// lazily inside the job.
func runOnce(ctx context.Context, cfg *Config, jobFile, outFile string, stdout io.Writer) error {
	data, err := readJob(jobFile)
	if err != nil {
		return err
	}
	cfg.Server.Enabled = false
	cfg.Kafka.Enabled = false
	cfg.Engine.Preload = false

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	svc, err := buildService(cfg, app.Logger)
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(svc.Model); err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		var env job.Envelope
		j, err := job.Parse(data)
		if err != nil {
			env = job.FailureEnvelope(asAppError(err))
		} else {
			if j.ID == "" {
				j.ID = "cli"
			}
			env = svc.Pipeline.Process(ctx, j)
		}
		return writeEnvelope(env, outFile, stdout)
	})
}

func readJob(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	return data, nil
}

func writeEnvelope(env job.Envelope, outFile string, stdout io.Writer) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if outFile == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(outFile, data, 0o644)
}
