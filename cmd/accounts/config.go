// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/drgz/accounts/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect service configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a configuration file",
		Long: `Check FILE (or the file named by --config) against the configuration
schema and the service's own rules. Secrets are not checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigValidate,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err //nolint:wrapcheck // already coded
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	return cmd
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return oops.Code("CONFIG_INVALID").Errorf("no config file given; pass FILE or --config")
	}

	if _, err = config.ValidateFile(path); err != nil {
		return err //nolint:wrapcheck // already coded with path
	}
	cmd.Printf("%s is valid\n", path)
	return nil
}
