package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/archive"
	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/critic"
	"github.com/akshayg/coach/internal/ideas"
	"github.com/akshayg/coach/internal/llm/factory"
	"github.com/akshayg/coach/internal/logger"
	"github.com/akshayg/coach/internal/market"
	"github.com/akshayg/coach/internal/metrics"
	"github.com/akshayg/coach/internal/notify"
	"github.com/akshayg/coach/internal/notify/email"
	"github.com/akshayg/coach/internal/notify/webhook"
	"github.com/akshayg/coach/internal/pipeline"
	"github.com/akshayg/coach/internal/portfolio"
	"github.com/akshayg/coach/internal/risk"
	"github.com/akshayg/coach/internal/sector"
	"github.com/akshayg/coach/internal/signal"
	"github.com/akshayg/coach/internal/tracking"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    tracking.Store
	runner   *pipeline.Runner
	archiver *archive.Archiver
	registry *metrics.Registry
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// loadConfig reads and validates configuration, falling back to defaults
// when no file is given.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// buildApp wires the full pipeline from configuration.
func buildApp() (*app, error) {
	log := logger.Must(debug)

	cfg, err := loadConfig(log)
	if err != nil {
		return nil, err
	}

	var store tracking.Store
	if cfg.Store.DSN != "" {
		store, err = tracking.NewPostgresStore(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening history store: %w", err)
		}
	} else {
		log.Warn("no store DSN configured, history will not survive restarts")
		store = tracking.NewMemoryStore()
	}

	if cfg.Broker.Provider != "upstox" {
		return nil, fmt.Errorf("unknown broker provider: %s", cfg.Broker.Provider)
	}
	broker := portfolio.NewUpstoxClient(cfg.Broker, log)
	holdings := portfolio.NewResilient(broker, store, log)

	quotes := market.NewYahooClient(cfg.Market, log)

	ideasProvider, err := factory.New(cfg.LLM.Ideas)
	if err != nil {
		return nil, fmt.Errorf("creating ideas provider: %w", err)
	}
	criticProvider, err := factory.New(cfg.LLM.Critic)
	if err != nil {
		return nil, fmt.Errorf("creating critic provider: %w", err)
	}

	sectors := sector.Default(cfg.Sectors)

	storage, err := archive.New(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	notifiers, err := buildNotifiers(cfg.Notifiers)
	if err != nil {
		return nil, err
	}

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.NewRegistry()
	}

	archiver := archive.NewArchiver(storage)
	runner := pipeline.NewRunner(pipeline.Deps{
		Portfolio:     holdings,
		Market:        quotes,
		Signals:       signal.NewEngine(cfg.Signals.DriftThresholdPct),
		Generator:     ideas.NewGenerator(ideasProvider, sectors, cfg.Ideas, log),
		Gate:          risk.NewGate(cfg.Risk, log),
		Critic:        critic.New(criticProvider, log),
		Tracker:       tracking.NewTracker(store, cfg.Tracking, cfg.Risk, log),
		Archiver:      archiver,
		Notifiers:     notifiers,
		Metrics:       registry,
		TargetWeights: cfg.Signals.TargetWeights,
		MaxDrawdown:   cfg.Risk.MaxDrawdown,
	}, log)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		runner:   runner,
		archiver: archiver,
		registry: registry,
	}, nil
}

func buildNotifiers(cfgs map[string]config.NotifierConfig) (*notify.Registry, error) {
	registry := notify.NewRegistry()
	for name, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}

		var (
			n   notify.Notifier
			err error
		)
		switch name {
		case "email":
			n, err = email.New(cfg)
		case "webhook":
			n, err = webhook.New(cfg)
		default:
			return nil, fmt.Errorf("unknown notifier: %s", name)
		}
		if err != nil {
			return nil, fmt.Errorf("creating %s notifier: %w", name, err)
		}
		if err := registry.Register(n); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
