// Council CLI entrypoint: load the configuration and persona roster, run one
// consultation round, and print the rendered result.
//
// Usage:
//
//	council -roster roster.yaml "should we shard the database?"
//	council -config config.yaml -roster roster.yaml -question "..."
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/arbiterlabs/council/config"
	"github.com/arbiterlabs/council/council"
	"github.com/arbiterlabs/council/internal/metrics"
	"github.com/arbiterlabs/council/internal/telemetry"
	"github.com/arbiterlabs/council/llm"
	"github.com/arbiterlabs/council/persona"
	"github.com/arbiterlabs/council/providers"
	"github.com/arbiterlabs/council/providers/anthropic"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "path to config.yaml")
		rosterPath  = flag.String("roster", "", "path to the persona roster (overrides config)")
		question    = flag.String("question", "", "question to put before the council")
		lead        = flag.String("lead", "", "persona id to lead the synthesis (default: first in roster)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("council %s (built %s)\n", Version, BuildTime)
		return 0
	}

	q := strings.TrimSpace(*question)
	if q == "" {
		q = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if q == "" {
		fmt.Fprintln(os.Stderr, "usage: council [-config config.yaml] [-roster roster.yaml] \"question\"")
		return 1
	}

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync() //nolint:errcheck

	tel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("init telemetry", zap.Error(err))
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	path := cfg.Roster.Path
	if *rosterPath != "" {
		path = *rosterPath
	}
	registry, err := persona.LoadRoster(path, logger)
	if err != nil {
		logger.Error("load roster", zap.Error(err))
		return 1
	}

	svc, err := buildService(cfg, logger)
	if err != nil {
		logger.Error("build completion service", zap.Error(err))
		return 1
	}

	collector := metrics.NewCollector("council", nil, logger)
	orch := council.New(svc, registry, council.Config{
		AdvisoryBudget:  cfg.Council.AdvisoryBudget,
		SynthesisBudget: cfg.Council.SynthesisBudget,
		Concurrency:     cfg.Council.Concurrency,
		Model:           cfg.LLM.Model,
	}, logger, council.WithMetrics(collector))

	req := &council.Request{
		Question: q,
		Sink: council.ProgressFunc(func(msg string) {
			fmt.Fprintf(os.Stderr, "• %s\n", msg)
		}),
	}
	if *lead != "" {
		d, ok := registry.Get(*lead)
		if !ok {
			logger.Error("lead persona not in roster", zap.String("lead", *lead))
			return 1
		}
		req.Lead = &d
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := orch.Run(ctx, req)
	fmt.Println(council.Render(res))
	if !res.Succeeded {
		return 1
	}
	return 0
}

func buildService(cfg *config.Config, logger *zap.Logger) (llm.CompletionService, error) {
	var svc llm.CompletionService
	switch cfg.LLM.Provider {
	case "anthropic":
		svc = anthropic.New(providers.AnthropicConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	if cfg.LLM.RateLimit > 0 {
		burst := cfg.LLM.RateBurst
		if burst < 1 {
			burst = 1
		}
		svc = llm.RateLimited(svc, rate.NewLimiter(rate.Limit(cfg.LLM.RateLimit), burst))
	}
	return svc, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
