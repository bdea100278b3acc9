package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/ai"
	"github.com/mattdomit/dotted-sub000/internal/app"
	"github.com/mattdomit/dotted-sub000/internal/config"
	"github.com/mattdomit/dotted-sub000/internal/db"
	"github.com/mattdomit/dotted-sub000/internal/logger"
	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
	"github.com/mattdomit/dotted-sub000/internal/repository"
	gormrepository "github.com/mattdomit/dotted-sub000/internal/repository/gorm"
	"github.com/mattdomit/dotted-sub000/internal/repository/memstore"
)

// store is what the commands need from a backend: the cycle core plus the
// onboarding writes used by seed and demo.
type store interface {
	repository.Repository
	repository.SeedRepository
}

type cli struct {
	cfgPath string
	envOnly bool
	memory  bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "cyclectl",
		Short:        "Operate the daily dish cycle of each zone",
		Long:         `cyclectl seeds zones, advances cycles and runs sweeps against the same store the cycled server uses.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	defaultCfg := os.Getenv("DOTTED_CONFIG")
	if defaultCfg == "" {
		defaultCfg = "config/config.yaml"
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", defaultCfg, "config file")
	root.PersistentFlags().BoolVar(&c.envOnly, "env-only", false, "read configuration from DOTTED_* variables only")
	root.PersistentFlags().BoolVar(&c.memory, "memory", false, "use an in-memory store instead of postgres")

	root.AddCommand(
		c.migrateCmd(),
		c.seedCmd(),
		c.advanceCmd(),
		c.sweepCmd(),
		c.scoresCmd(),
		c.transitionsCmd(),
		c.demoCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	envOnly := c.envOnly
	if !envOnly {
		if _, err := os.Stat(c.cfgPath); errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
			envOnly = true
		}
	}
	cfg, err := config.Load(c.cfgPath, envOnly)
	if err != nil {
		return fmt.Errorf("load config %s: %w", c.cfgPath, err)
	}
	// Command output owns stdout.
	if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	c.cfg = cfg

	log, err := logger.New(cfg.Log, "cyclectl")
	if err != nil {
		return err
	}
	c.logger = log
	return nil
}

func (c *cli) openStore() (store, func(), error) {
	if c.memory {
		return memstore.New(), func() {}, nil
	}
	conn, err := db.Open(c.cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.SetTimezone(conn, c.cfg.DB.Timezone); err != nil {
		c.logger.Warn("failed to set timezone", zap.Error(err))
	}
	return gormrepository.New(conn.Gorm), func() { _ = db.Close(conn) }, nil
}

// orchestrator builds the cycle engine over repo. A nil suggester falls
// back to the configured provider.
func (c *cli) orchestrator(repo repository.Repository, suggester ai.Suggester) *orchestrator.Orchestrator {
	if suggester == nil {
		s, err := ai.NewFromConfig(c.cfg.AI, c.logger.Named("ai"))
		if err != nil {
			c.logger.Warn("ai suggester disabled", zap.String("provider", c.cfg.AI.Provider), zap.Error(err))
		} else {
			suggester = s
		}
	}
	return app.NewOrchestrator(c.cfg, repo, app.Deps{Logger: c.logger, Suggester: suggester})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
