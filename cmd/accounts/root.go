// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/drgz/accounts/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// serviceName is reported in every log record.
const serviceName = "accounts"

// NewRootCmd creates the root command for the accounts CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "drgz accounts - identity and authentication service",
		Long: `accounts stores user accounts and issues signed session and
action tokens. It serves registration, login, email verification and
password reset over a JSON HTTP API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// resolveConfigFile returns --config when given, otherwise the XDG default
// file if one exists, otherwise "".
func resolveConfigFile() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	//nolint:wrapcheck // already coded with path
	return xdg.DefaultConfigFile()
}
