package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashureev/psicoflow/internal/backend"
	"github.com/ashureev/psicoflow/internal/config"
	"github.com/ashureev/psicoflow/internal/intake"
	"github.com/ashureev/psicoflow/internal/llm"
	"github.com/ashureev/psicoflow/internal/safety"
	"github.com/ashureev/psicoflow/internal/store"
	"github.com/ashureev/psicoflow/internal/telemetry"
	"github.com/ashureev/psicoflow/internal/transcript"
)

// app holds the wired dependencies shared by every transport.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	gateway  *llm.Gateway
	journal  store.Journal
	sessions *store.Sessions
	engine   *intake.Engine

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	logger, logCloser, err := telemetry.InitLogger(telemetry.LogConfig{
		Level:  cfg.Log.Level,
		Dir:    cfg.Log.Dir,
		Stdout: cfg.Log.Stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger
	a.addCloser("log file", logCloser)

	tracer, meter, shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Dir:            cfg.Telemetry.Dir,
		ServiceVersion: Version,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.tracer, a.meter = tracer, meter
	a.closers = append(a.closers, shutdown)

	gen, genCloser, err := llm.NewGenerator(llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		GRPCAddr: cfg.LLM.GRPCAddr,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	a.addCloser("llm provider", genCloser)
	a.gateway = llm.NewGateway(gen, logger,
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithTelemetry(tracer, meter),
	)
	logger.Info("LLM gateway ready", "provider", a.gateway.Provider(), "timeout", cfg.LLM.Timeout)

	a.journal = store.NopJournal{}
	if cfg.Journal.Path != "" {
		journal, err := store.NewSQLite(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("init delivery journal: %w", err)
		}
		if err := journal.Ping(ctx); err != nil {
			_ = journal.Close()
			return nil, fmt.Errorf("delivery journal health check: %w", err)
		}
		a.journal = journal
		a.addCloser("delivery journal", journal)
		logger.Info("Delivery journal connected", "path", cfg.Journal.Path)
	}

	tlog, err := transcript.New(transcript.Config{
		Enabled:        cfg.ConversationLog.Enabled,
		Dir:            cfg.ConversationLog.Dir,
		GlobalEnabled:  cfg.ConversationLog.GlobalEnabled,
		GlobalPath:     cfg.ConversationLog.GlobalPath,
		QueueSize:      cfg.ConversationLog.QueueSize,
		IncludeContent: cfg.ConversationLog.IncludeContent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init conversation log: %w", err)
	}
	a.addCloser("conversation log", tlog)

	if cfg.Backend.URL == "" {
		logger.Warn("BACKEND_URL is empty, submissions will not be delivered")
	}
	machine := intake.NewMachine(intake.Deps{
		Fields:    intake.DefaultFields(cfg.Intake.CollectPhone),
		Analyzer:  a.gateway,
		Detector:  safety.NewDetector(logger, meter),
		Submitter: backend.NewClient(cfg.Backend.URL, cfg.Backend.Secret, cfg.Backend.Timeout, logger),
		Journal:   a.journal,
		Logger:    logger,
		Meter:     meter,
	})
	a.sessions = store.NewSessions()
	a.engine = intake.NewEngine(machine, a.sessions, tlog, logger)
	return a, nil
}

func (a *app) addCloser(name string, c io.Closer) {
	a.closers = append(a.closers, func() {
		if err := c.Close(); err != nil {
			slog.Error("Failed to close "+name, "error", err)
		}
	})
}

// startSweeper evicts idle sessions in the background. onEvict may be nil.
func (a *app) startSweeper(ctx context.Context, onEvict store.EvictCallback) {
	store.StartSweeper(ctx, a.sessions, a.journal, store.SweeperConfig{
		Interval:         a.cfg.Intake.SweepInterval,
		SessionTTL:       a.cfg.Intake.SessionTTL,
		JournalRetention: a.cfg.Journal.Retention,
	}, onEvict)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
