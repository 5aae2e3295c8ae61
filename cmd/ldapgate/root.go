// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the ldapgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ldapgate",
		Short: "ldapgate - directory-bind authentication engine",
		Long: `ldapgate authenticates users against an LDAP directory and manages
their login-hash session lifecycle in a pluggable credential store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path")
	cmd.PersistentFlags().String("log-format", "json", "log format (json or text)")
	cmd.PersistentFlags().String("store-driver", "memory", "credential store driver (memory, postgres, redis)")
	cmd.PersistentFlags().String("dsn", "", "PostgreSQL connection string for the postgres store")
	cmd.PersistentFlags().Bool("guest-login", true, "fall back to the guest identity when not logged in")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
