// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ldapgate/ldapgate/internal/config"
	"github.com/ldapgate/ldapgate/internal/logging"
	"github.com/ldapgate/ldapgate/pkg/auth"
	"github.com/ldapgate/ldapgate/pkg/directory"

	// Register the credential store drivers.
	_ "github.com/ldapgate/ldapgate/pkg/auth/postgres"
	_ "github.com/ldapgate/ldapgate/pkg/auth/redis"
)

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <username>",
		Short: "Verify a username and password against the directory",
		Long: `Verify credentials with a directory bind and upsert the resulting
user record into the credential store. The password is read from the
terminal, or from stdin with --password-stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().Bool("password-stdin", false, "read the password from stdin instead of the terminal")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	username := args[0]

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("ldapgate", version, cfg.Log.Format)

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	store, err := auth.OpenStore(ctx, auth.StoreConfig{
		Driver:        cfg.Store.Driver,
		DSN:           cfg.Store.DSN,
		RedisAddr:     cfg.Store.Redis.Addr,
		RedisPassword: cfg.Store.Redis.Password,
		RedisDB:       cfg.Store.Redis.DB,
	})
	if err != nil {
		return oops.Code("STORE_OPEN_FAILED").
			With("driver", cfg.Store.Driver).
			Wrap(err)
	}

	client := directory.NewClient(directory.Config{
		URL:            cfg.Directory.URL(),
		BindUser:       cfg.Directory.BindUser,
		BindPassword:   cfg.Directory.BindPassword,
		BaseDN:         cfg.Directory.BaseDN,
		AccountAttr:    cfg.Directory.AccountAttr,
		EmailAttr:      cfg.Directory.EmailAttr,
		FirstNameAttr:  cfg.Directory.FirstNameAttr,
		LastNameAttr:   cfg.Directory.LastNameAttr,
		ConnectTimeout: cfg.Directory.ConnectTimeout,
	}, nil)

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	validator, err := auth.NewValidator(directory.NewResolver(client, nil), client, store, nil)
	if err != nil {
		return err
	}

	rec, err := validator.Validate(ctx, username, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		cmd.PrintErrln("authentication failed")
		return err
	}
	if err != nil {
		return err
	}

	cmd.Printf("authenticated %s (%s)\n", rec.ID, rec.ScreenName())
	return nil
}

// readPassword reads the password without echo from the terminal, or
// from stdin when --password-stdin is set (for scripted use).
func readPassword(cmd *cobra.Command) (string, error) {
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	return string(raw), nil
}
