// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/drgz/accounts/internal/config"
	"github.com/drgz/accounts/internal/store"
)

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// migratorFactory opens a Migrator. Tests replace it.
var migratorFactory = func(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back and inspect the accounts schema migrations.
Without a subcommand all pending migrations are applied.`,
		RunE: runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  `Roll back the most recent migration, or every migration with --all.`,
		RunE:  runMigrateDown,
	}
	down.Flags().Bool("all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  runMigrateStatus,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Record VERSION as the current schema version and clear the dirty flag.
Use it after repairing a migration that failed halfway.`,
		Args: cobra.ExactArgs(1),
		RunE: runMigrateForce,
	})

	return cmd
}

// getDatabaseURL reads DATABASE_URL from the environment or .env.
func getDatabaseURL() (string, error) {
	secrets, err := config.LoadSecrets()
	if err != nil {
		return "", oops.With("operation", "load secrets").Wrap(err)
	}
	if err := secrets.Validate(false); err != nil {
		return "", err
	}
	return secrets.DatabaseURL, nil
}

func openMigrator() (Migrator, error) {
	databaseURL, err := getDatabaseURL()
	if err != nil {
		return nil, err
	}
	migrator, err := migratorFactory(databaseURL)
	if err != nil {
		return nil, oops.With("operation", "open migrator").Wrap(err)
	}
	return migrator, nil
}

// withMigrator opens a migrator, runs fn and closes it, joining a close
// failure with fn's error.
func withMigrator(cmd *cobra.Command, fn func(Migrator) error) (err error) {
	migrator, err := openMigrator()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
				return
			}
			cmd.PrintErrf("Warning: failed to close migrator: %v\n", closeErr)
		}
	}()
	return fn(migrator)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m Migrator) error {
		pending, err := m.PendingMigrations()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			cmd.Println("No pending migrations")
			return nil
		}

		cmd.Printf("Applying %d migration(s)...\n", len(pending))
		if err := m.Up(); err != nil {
			return err
		}
		version, _, err := m.Version()
		if err != nil {
			return err
		}
		cmd.Printf("Migrations complete, schema at version %d\n", version)
		return nil
	})
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return oops.Code("FLAG_READ_FAILED").With("flag", "all").Wrap(err)
	}

	return withMigrator(cmd, func(m Migrator) error {
		if all {
			cmd.Println("Rolling back all migrations...")
			if err := m.Down(); err != nil {
				return err
			}
		} else {
			cmd.Println("Rolling back one migration...")
			if err := m.Steps(-1); err != nil {
				return err
			}
		}
		version, _, err := m.Version()
		if err != nil {
			return err
		}
		cmd.Printf("Rollback complete, schema at version %d\n", version)
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m Migrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		applied, err := m.AppliedMigrations()
		if err != nil {
			return err
		}
		pending, err := m.PendingMigrations()
		if err != nil {
			return err
		}
		cmd.Print(formatMigrationStatus(version, dirty, applied, pending))
		return nil
	})
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}
	return withMigrator(cmd, func(m Migrator) error {
		if err := m.Force(version); err != nil {
			return err
		}
		cmd.Printf("Forced schema version to %d\n", version)
		return nil
	})
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrapf(err, "version must be an integer")
	}
	return version, nil
}

// formatMigrationStatus renders the status report.
func formatMigrationStatus(version uint, dirty bool, applied, pending []uint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current version: %d", version)
	if dirty {
		b.WriteString(" (dirty)")
	}
	b.WriteString("\n")

	writeList := func(title string, versions []uint) {
		fmt.Fprintf(&b, "%s: %d\n", title, len(versions))
		for _, v := range versions {
			name, err := store.MigrationName(v)
			if err != nil || name == "" {
				name = fmt.Sprintf("%06d", v)
			}
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	writeList("Applied", applied)
	writeList("Pending", pending)
	return b.String()
}
