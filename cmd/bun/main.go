package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	remotemigrations "github.com/matchops/matchops/app/modules/remote/infrastructure/repositories/migrations"
	"github.com/matchops/matchops/config"
	"github.com/matchops/matchops/internal/database"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "bun",
		Usage: "matchops database tooling",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Commands: []*cli.Command{
			newMigrateCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withMigrators opens the remote database and hands the per-schema
// migrators to fn.
func withMigrators(c *cli.Context, fn func(migrators map[string]*migrate.Migrator) error) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("no database configured: set DATABASE_URL or postgres.dsn")
	}

	db := database.OpenPostgres(cfg.Postgres.DSN)
	defer db.Close()

	return fn(map[string]*migrate.Migrator{
		"remote": migrate.NewMigrator(db, remotemigrations.Migrations),
	})
}

func moduleNames(migrators map[string]*migrate.Migrator) []string {
	names := make([]string, 0, len(migrators))
	for name := range migrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						for _, name := range moduleNames(migrators) {
							fmt.Printf("Initializing migrations for module: %s\n", name)
							if err := migrators[name].Init(c.Context); err != nil {
								return fmt.Errorf("module %s: %w", name, err)
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						for _, name := range moduleNames(migrators) {
							migrator := migrators[name]
							if err := migrator.Lock(c.Context); err != nil {
								return err
							}
							group, err := migrator.Migrate(c.Context)
							_ = migrator.Unlock(c.Context)
							if err != nil {
								return fmt.Errorf("module %s: %w", name, err)
							}
							if group.IsZero() {
								fmt.Printf("No new migrations to run for module: %s\n", name)
							} else {
								fmt.Printf("Migrated module: %s to %s\n", name, group)
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						for _, name := range moduleNames(migrators) {
							group, err := migrators[name].Rollback(c.Context)
							if err != nil {
								return fmt.Errorf("module %s: %w", name, err)
							}
							if group.IsZero() {
								fmt.Printf("No groups to roll back for module: %s\n", name)
							} else {
								fmt.Printf("Rolled back module: %s to %s\n", name, group)
							}
						}
						return nil
					})
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						name := c.Args().First()
						migrator, ok := migrators[name]
						if !ok {
							return fmt.Errorf("invalid module name: %s", name)
						}
						mf, err := migrator.CreateGoMigration(c.Context, strings.Join(c.Args().Tail(), "_"))
						if err != nil {
							return err
						}
						fmt.Printf("Created migration for module %s: %s (%s)\n", name, mf.Name, mf.Path)
						return nil
					})
				},
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						name := c.Args().First()
						migrator, ok := migrators[name]
						if !ok {
							return fmt.Errorf("invalid module name: %s", name)
						}
						files, err := migrator.CreateSQLMigrations(c.Context, strings.Join(c.Args().Tail(), "_"))
						if err != nil {
							return err
						}
						for _, mf := range files {
							fmt.Printf("Created migration for module %s: %s (%s)\n", name, mf.Name, mf.Path)
						}
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						for _, name := range moduleNames(migrators) {
							ms, err := migrators[name].MigrationsWithStatus(c.Context)
							if err != nil {
								return err
							}
							fmt.Printf("Migrations for module: %s\n", name)
							fmt.Printf("  %s\n", ms)
							fmt.Printf("  Applied: %s\n", ms.Applied())
							fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
						}
						return nil
					})
				},
			},
		},
	}
}
