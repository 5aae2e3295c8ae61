// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ldapgate/ldapgate/internal/config"
	"github.com/ldapgate/ldapgate/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the credential store schema",
		Long: `Apply pending schema migrations to the PostgreSQL credential store.
The connection string comes from --dsn, the config file, or the
DATABASE_URL environment variable, in that order.`,
		RunE: runMigrate,
	}
	cmd.Flags().Bool("down", false, "roll back all migrations (drops the credentials table)")
	cmd.Flags().Int("steps", 0, "apply exactly n migrations; negative n rolls back")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	dsn := cfg.Store.DSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("a database URL is required: set --dsn, store.dsn, or DATABASE_URL")
	}

	migrator, err := store.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	down, _ := cmd.Flags().GetBool("down")
	steps, _ := cmd.Flags().GetInt("steps")

	switch {
	case down:
		cmd.Println("Rolling back all migrations...")
		if err := migrator.Down(); err != nil {
			return err
		}
	case steps != 0:
		cmd.Printf("Applying %d migration step(s)...\n", steps)
		if err := migrator.Steps(steps); err != nil {
			return err
		}
	default:
		cmd.Println("Applying pending migrations...")
		if err := migrator.Up(); err != nil {
			return err
		}
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("Schema at version %d (dirty - manual intervention required)\n", version)
	} else {
		cmd.Printf("Schema at version %d\n", version)
	}
	return nil
}
