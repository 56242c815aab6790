package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"blogflow/backend/internal/config"
	"blogflow/backend/internal/llm"
	"blogflow/backend/internal/logging"
	"blogflow/backend/internal/metrics"
	"blogflow/backend/internal/repository"
	"blogflow/backend/internal/schema"
	"blogflow/backend/internal/workflow"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	pool     *pgxpool.Pool
	store    *repository.PostgresStore
	registry *schema.Registry
	metrics  *metrics.Metrics
	invoker  *llm.Invoker
	engine   *workflow.Engine
}

func loadConfig(opts *rootOptions) (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfig(opts.envFile, opts.configDirs...)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration loading failed: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"config_file", cfg.ConfigFile,
		"db_host", cfg.DB.Host,
		"llm_default_provider", cfg.LLM.DefaultProvider,
		"okta_domain", cfg.Auth.OktaDomain,
	)
	return cfg, logger, nil
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	logger.Info("Database connected")

	store := repository.NewPostgresStore(pool)
	registry := schema.Default()
	if err := registry.Verify(ctx, store); err != nil {
		pool.Close()
		return nil, fmt.Errorf("schema registry does not match database: %w", err)
	}

	m := metrics.New()
	invoker, err := llm.NewInvoker(cfg.LLM,
		llm.WithProviderSource(store),
		llm.WithObserver(m),
		llm.WithLogger(logger),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("llm invoker: %w", err)
	}
	logger.Info("LLM providers configured", "providers", invoker.Providers())

	engine := workflow.NewEngine(store, registry, invoker,
		workflow.WithLogger(logger),
		workflow.WithRecorder(m),
		workflow.WithDefaults(workflow.DefaultsFromConfig(cfg.LLM)),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		store:    store,
		registry: registry,
		metrics:  m,
		invoker:  invoker,
		engine:   engine,
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection", "host", cfg.DB.Host, "name", cfg.DB.Name)

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
