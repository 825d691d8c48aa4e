package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matchops/matchops/app"
	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	"github.com/matchops/matchops/config"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cliApp := &cli.App{
		Name:  "matchops",
		Usage: "soccer coaching data store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file", EnvVars: []string{"MATCHOPS_CONFIG"}},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before the configuration"},
			&cli.StringFlag{Name: "user", Usage: "user id for remote storage when running one-shot commands"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			exportCommand(),
			importCommand(),
			backupCommand(),
			restoreCommand(),
			repairCommand(),
			statsCommand(),
			exportXLSXCommand(),
			tokenCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.String("env-file"), err)
	}
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// withApp builds the application for a one-shot command, loads the caches
// and closes everything afterwards.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := app.NewLogger(os.Stderr, cfg.Logging)

	ctx := c.Context
	if user := c.String("user"); user != "" {
		ctx = authdomain.WithClaims(ctx, &authdomain.Claims{UserID: user, Role: authdomain.RoleCoach})
	}

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Shutdown was not clean", "error", err)
		}
	}()

	if err := a.Persistence.Service.LoadAll(ctx); err != nil {
		logger.WarnContext(ctx, "Initial load was incomplete", "error", err)
	}
	return fn(ctx, a)
}
