package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattdomit/dotted-sub000/internal/db"
	gormrepository "github.com/mattdomit/dotted-sub000/internal/repository/gorm"
	"github.com/mattdomit/dotted-sub000/internal/service"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and default switches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.memory {
				return errors.New("migrate needs a database; drop --memory")
			}
			conn, err := db.Open(c.cfg.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close(conn)

			if err := db.AutoMigrate(conn); err != nil {
				return fmt.Errorf("auto-migrate: %w", err)
			}
			settings := &service.SystemSettingsService{Repo: gormrepository.New(conn.Gorm)}
			if err := settings.EnsureDefaultSwitches(commandContext(cmd)); err != nil {
				return fmt.Errorf("default switches: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
