package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"lifehub/internal/config"
	"lifehub/internal/contextutil"
	"lifehub/internal/logging"
	"lifehub/internal/schema"
	"lifehub/internal/storage"
)

// adminEnv is the configuration and open store shared by the subcommands.
type adminEnv struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *schema.Registry
	db       *storage.DB

	logCloser io.Closer
}

// loadEnv loads configuration and a logger writing to the command's stderr,
// so that command output on stdout stays parseable.
func loadEnv(cmd *cobra.Command) (*adminEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPathFlag != "" {
		if err := cfg.OverrideDBPath(dbPathFlag); err != nil {
			return nil, err
		}
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	return &adminEnv{cfg: cfg, logger: logger, registry: schema.Default(), logCloser: closer}, nil
}

// openEnv is loadEnv plus an open, migrated store.
func openEnv(cmd *cobra.Command) (*adminEnv, error) {
	env, err := loadEnv(cmd)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(env.cfg.DBPath, storage.Options{LockTimeout: env.cfg.StoreLockTimeout})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	env.db = db

	if err := storage.Migrate(env.context(cmd), db, env.registry); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return env, nil
}

// context returns the command context carrying the env's logger.
func (e *adminEnv) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return contextutil.WithLogger(ctx, e.logger)
}

func (e *adminEnv) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.logCloser.Close()
}
