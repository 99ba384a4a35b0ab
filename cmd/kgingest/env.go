package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/kgingest"
	"github.com/poiesic/kgingest/config"
	"github.com/poiesic/kgingest/ingestion"
	"github.com/poiesic/kgingest/lakesync"
	"github.com/poiesic/kgingest/metrics"
	"github.com/poiesic/kgingest/vocab"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

// setup loads the configuration, applies global flag overrides and installs
// the logger. It runs before every command.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.IsSet("db") {
		cfg.DB.Path = c.String("db")
	}
	if c.IsSet("owner") {
		cfg.Owner.ID = c.String("owner")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("metrics-textfile") {
		cfg.Metrics.Textfile = c.String("metrics-textfile")
	}

	if err := setupLogger(cfg.Logging.Level); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func setupLogger(levelStr string) error {
	level, err := config.ParseLogLevel(levelStr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	cfg, _ := c.App.Metadata[configKey].(*config.Config)
	return cfg
}

// env is what a command needs to work on the database.
type env struct {
	cfg     *config.Config
	db      *kgingest.Database
	metrics *metrics.Recorder
	logger  *slog.Logger

	closers []func(context.Context) error
}

func openEnv(c *cli.Context) (*env, error) {
	cfg := configFrom(c)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	db, err := kgingest.NewDatabase(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &env{
		cfg:     cfg,
		db:      db,
		metrics: metrics.New(),
		logger:  slog.Default(),
	}, nil
}

// close exports metrics when configured, releases syncers and closes the
// database.
func (e *env) close(ctx context.Context) {
	if e.cfg.Metrics.Textfile != "" {
		if err := e.metrics.WriteTextfile(e.cfg.Metrics.Textfile); err != nil {
			e.logger.Error("failed to write metrics", "path", e.cfg.Metrics.Textfile, "err", err)
		}
	}
	for _, closeFn := range e.closers {
		if err := closeFn(ctx); err != nil {
			e.logger.Error("failed to close syncer", "err", err)
		}
	}
	if err := e.db.Close(); err != nil {
		e.logger.Error("failed to close database", "err", err)
	}
}

// vocabulary returns the configured vocabulary, or the built-in one.
func (e *env) vocabulary() (*vocab.Tables, error) {
	if e.cfg.Vocabulary.Path == "" {
		return vocab.Default(), nil
	}
	tables, err := vocab.Load(e.cfg.Vocabulary.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return tables, nil
}

// syncer builds the configured lake sinks. It returns nil when none is
// enabled. A sink that cannot be constructed is replaced by one that fails
// every sync, so the failure shows up in the run result.
func (e *env) syncer() lakesync.Syncer {
	var sinks lakesync.Multi

	if e.cfg.Lake.Enabled {
		s, err := lakesync.NewHTTPSyncer(e.cfg.Lake.URL, lakesync.WithHTTPLogger(e.logger))
		if err != nil {
			e.logger.Warn("lake sink unavailable", "url", e.cfg.Lake.URL, "err", err)
			sinks = append(sinks, lakesync.Unavailable(err))
		} else {
			sinks = append(sinks, s)
		}
	}

	if e.cfg.Neo4j.Enabled {
		s, err := lakesync.NewNeo4jSyncer(lakesync.Neo4jConfig{
			URI:      e.cfg.Neo4j.URI,
			Username: e.cfg.Neo4j.Username,
			Password: e.cfg.Neo4j.Password,
			Database: e.cfg.Neo4j.Database,
		}, e.logger)
		if err != nil {
			e.logger.Warn("neo4j sink unavailable", "uri", e.cfg.Neo4j.URI, "err", err)
			sinks = append(sinks, lakesync.Unavailable(err))
		} else {
			e.closers = append(e.closers, s.Close)
			sinks = append(sinks, s)
		}
	}

	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return sinks
	}
}

func (e *env) pipeline() (*ingestion.Pipeline, error) {
	tables, err := e.vocabulary()
	if err != nil {
		return nil, err
	}
	syncer := e.syncer()

	opts := []ingestion.Option{
		ingestion.WithOwner(e.cfg.Owner.ID),
		ingestion.WithVocabulary(tables),
		ingestion.WithSyncTimeout(e.cfg.Lake.Timeout),
		ingestion.WithMetrics(e.metrics),
	}
	if syncer != nil {
		opts = append(opts, ingestion.WithSyncer(syncer))
	}
	return e.db.NewPipeline(opts...)
}
