package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/matchops/matchops/app"
	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	persistenceservice "github.com/matchops/matchops/app/modules/persistence/application"
	persistencequeue "github.com/matchops/matchops/app/modules/persistence/infrastructure/queue"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, event handlers, notifier and backup queue",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := app.NewLogger(os.Stderr, cfg.Logging)

			a, err := app.New(c.Context, cfg, logger, app.Options{Serve: true})
			if err != nil {
				return err
			}
			runErr := a.Run(c.Context)
			closeErr := a.Close()
			return errors.Join(runErr, closeErr)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write a full backup document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output file (default stdout)"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				data, err := a.Persistence.Service.CreateBackup(ctx)
				if err != nil {
					return err
				}
				return writeOutput(c.String("out"), data)
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "merge or replace data from a backup file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "backup file to import"},
			&cli.StringFlag{Name: "mode", Value: string(persistenceservice.ImportModeMerge), Usage: "merge or replace"},
		},
		Action: func(c *cli.Context) error {
			mode, err := persistenceservice.ParseImportMode(c.String("mode"))
			if err != nil {
				return err
			}
			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return err
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				result, err := a.Persistence.Service.ImportBackup(ctx, data, mode)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, result)
			})
		},
	}
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "write a timestamped backup file and prune old ones",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "backup directory (default from config)"},
			&cli.IntFlag{Name: "keep", Value: -1, Usage: "backups to keep (default from config)"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				dir := c.String("dir")
				if dir == "" {
					dir = a.Config.Backup.Dir
				}
				keep := c.Int("keep")
				if keep < 0 {
					keep = a.Config.Backup.Keep
				}
				worker := persistencequeue.NewAutoBackupWorker(a.Persistence.Service, a.Logger, a.Metrics)
				path, err := worker.WriteNow(ctx, dir, keep)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, path)
				return nil
			})
		},
	}
}

func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "replace all data with a backup file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "backup file to restore"},
		},
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return err
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				result, err := a.Persistence.Service.RestoreFromBackup(ctx, data)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, result)
			})
		},
	}
}

func repairCommand() *cli.Command {
	return &cli.Command{
		Name:  "repair",
		Usage: "mark games stored without a played flag as played",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				report, err := a.Persistence.Service.RepairMissingIsPlayed(ctx)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, report)
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print player statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "season", Usage: "only games of this season"},
			&cli.StringFlag{Name: "tournament", Usage: "only games of this tournament"},
			&cli.BoolFlag{Name: "include-unplayed", Usage: "count games marked as not played"},
			&cli.StringFlag{Name: "chart", Usage: "also write a goals chart PNG to this file"},
		},
		Action: func(c *cli.Context) error {
			filter := persistenceservice.StatsFilter{
				SeasonID:        c.String("season"),
				TournamentID:    c.String("tournament"),
				IncludeUnplayed: c.Bool("include-unplayed"),
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				stats, err := a.Persistence.Service.PlayerStats(ctx, filter)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PLAYER\tGP\tG\tA\tPTS")
				for _, s := range stats {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Name, s.GamesPlayed, s.Goals, s.Assists, s.Points)
				}
				if err := tw.Flush(); err != nil {
					return err
				}

				if out := c.String("chart"); out != "" {
					png, err := a.Persistence.Service.GoalsChart(ctx, filter)
					if err != nil {
						return err
					}
					return writeOutput(out, png)
				}
				return nil
			})
		},
	}
}

func exportXLSXCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-xlsx",
		Usage: "write games and player statistics as a spreadsheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: "matchops.xlsx", Usage: "output file"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				f, err := os.Create(c.String("out"))
				if err != nil {
					return err
				}
				if err := a.Persistence.Service.ExportWorkbook(ctx, f); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue an access token for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "user id"},
			&cli.StringFlag{Name: "email", Usage: "user email"},
			&cli.StringFlag{Name: "role", Value: string(authdomain.RoleCoach), Usage: "viewer, coach or admin"},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime (default from config)"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				authSvc := a.AuthService()
				if authSvc == nil {
					return errors.New("no JWT secret configured")
				}
				token, err := authSvc.IssueToken(ctx, authdomain.Claims{
					UserID: c.String("user"),
					Email:  c.String("email"),
					Role:   authdomain.Role(c.String("role")),
				}, c.Duration("ttl"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, map[string]any{
					"access_token": token.AccessToken,
					"token_type":   token.TokenType,
					"expires_at":   token.Expiry.Format(time.RFC3339),
				})
			})
		},
	}
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
