package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planehq/contextplane/pkg/db"
	"github.com/planehq/contextplane/pkg/db/migrations"
	"github.com/planehq/contextplane/pkg/presenter"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing the contextplane database (migrations, status, etc.)`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  `Applies all pending database migrations. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := db.RunMigrations(ctx, migrations.All()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		presenter.Success("Database migrations applied")
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows the current database migration status, including applied and pending migrations.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		runner := db.NewMigrationRunner(database)
		applied, err := runner.GetAppliedVersions(ctx)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		appliedMap := make(map[int64]bool)
		for _, v := range applied {
			appliedMap[v] = true
		}

		allMigrations := migrations.All()

		fmt.Println("Database Migration Status")
		fmt.Println("=========================")
		dbPath, _ := db.DefaultDBPath()
		fmt.Printf("Database: %s\n\n", dbPath)

		appliedCount := 0
		for _, m := range allMigrations {
			status := "[ ]"
			if appliedMap[m.Version] {
				status = "[x]"
				appliedCount++
			}
			fmt.Printf("%s %d - %s\n", status, m.Version, m.Description)
		}

		fmt.Printf("\nApplied: %d/%d migrations\n", appliedCount, len(allMigrations))
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last database migration",
	Long:  `Rolls back the most recently applied database migration.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		runner := db.NewMigrationRunner(database)
		applied, err := runner.GetAppliedVersions(ctx)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		if len(applied) == 0 {
			presenter.Warning("No migrations to rollback")
			return nil
		}

		lastVersion := applied[len(applied)-1]
		var description string
		for _, m := range migrations.All() {
			if m.Version == lastVersion {
				description = m.Description
				break
			}
		}

		presenter.Info(fmt.Sprintf("Rolling back migration %d: %s", lastVersion, description))

		if err := runner.Rollback(ctx, migrations.All()); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}

		presenter.Success(fmt.Sprintf("Successfully rolled back migration %d", lastVersion))
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}
