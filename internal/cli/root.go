// Package cli implements the sqlscout command-line interface: ask a
// natural-language question, inspect the schema, or run a guarded query
// directly.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlscout/sqlscout/internal/agent"
	"github.com/sqlscout/sqlscout/internal/config"
	"github.com/sqlscout/sqlscout/internal/database"
	"github.com/sqlscout/sqlscout/internal/history"
	"github.com/sqlscout/sqlscout/internal/llm"
	"github.com/sqlscout/sqlscout/internal/observability"
)

var (
	dbFlag      string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "sqlscout",
	Short:         "Ask questions about a SQL database in plain language",
	Long:          `sqlscout turns a natural-language question into SQL, runs it read-only against your database, retries on execution errors, and answers in plain language.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "database to connect to: a file path or a DSN URL (defaults to SQLSCOUT_DB_DSN)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

// session bundles everything a subcommand needs against one database.
type session struct {
	cfg    config.Config
	db     *database.Manager
	logger *slog.Logger
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadFromEnv("sqlscout")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dbFlag) != "" {
		cfg.Database.DSN = strings.TrimSpace(dbFlag)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("no database configured: pass --db or set SQLSCOUT_DB_DSN")
	}

	level := cfg.Observability.LogLevel
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger := observability.NewCLILogger(level, cmd.ErrOrStderr())

	db, err := database.Open(database.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := db.TestConnection(cmd.Context()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &session{cfg: cfg, db: db, logger: logger}, nil
}

func (s *session) close() {
	_ = s.db.Close()
}

func (s *session) newAgent(cmd *cobra.Command) (*agent.Agent, error) {
	client, err := llm.New(s.cfg.AI)
	if err != nil {
		return nil, err
	}

	opts := []agent.Option{}
	if s.cfg.History.Enabled {
		store, err := history.New(cmd.Context(), s.cfg.History, string(s.db.Dialect()), s.logger)
		if err != nil {
			s.logger.Warn("run archive disabled", "error", err)
		} else {
			opts = append(opts, agent.WithArchiver(store))
		}
	}
	return agent.New(s.db, client, s.cfg.Agent.MaxRetries, s.logger, opts...), nil
}
