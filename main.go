// This is the main entry point of the moviesns identity service.
// It loads configuration, builds the logger, opens the user store and either
// serves the HTTP API or applies schema migrations.
// @title moviesns API
// @version 1.0
// @description Signup, login, logout and session lookup for the moviesns social network.
// @BasePath /
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/user/moviesns-go/config"
	"github.com/user/moviesns-go/db"
	"github.com/user/moviesns-go/logutil"
	"github.com/user/moviesns-go/server"
	"github.com/user/moviesns-go/users"
)

// memoryDSN selects the process-local store instead of Postgres.
const memoryDSN = "memory://"

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "moviesns",
		Usage: "Identity and session service for the moviesns social network",
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
		},
		DefaultCommand: "serve",
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, log.Logger, err
	}
	logger := logutil.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	log.Logger = logger
	return cfg, logger, nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "migrate",
				Usage:   "Apply pending schema migrations before serving",
				EnvVars: []string{"AUTO_MIGRATE"},
			},
		},
		Action: func(appCtx *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.InsecureSecret {
				logger.Warn().Msg("JWT_SECRET is not set; session tokens are signed with a publicly known key")
			}

			store, closeStore, err := openStore(appCtx.Context, cfg, logger, appCtx.Bool("migrate"))
			if err != nil {
				return err
			}
			defer closeStore()

			srv, err := server.New(cfg, store, logger)
			if err != nil {
				return err
			}
			return srv.Run(appCtx.Context)
		},
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations and exit",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "List the embedded migrations without touching the database",
			},
		},
		Action: func(appCtx *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if appCtx.Bool("dry-run") {
				names, err := db.MigrationNames()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(appCtx.App.Writer, n)
				}
				return nil
			}
			if strings.HasPrefix(cfg.Database.DSN(), memoryDSN) {
				return fmt.Errorf("nothing to migrate for %s", memoryDSN)
			}
			return db.RunMigrations(cfg.Database, logger)
		},
	}
}

// openStore returns the user store selected by DATABASE_URL and a function that releases it.
func openStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger, migrate bool) (server.Store, func(), error) {
	if strings.HasPrefix(cfg.Database.DSN(), memoryDSN) {
		logger.Warn().Msg("using the in-memory user store; accounts are lost on restart")
		return users.NewMemoryRepository(), func() {}, nil
	}

	if migrate {
		if err := db.RunMigrations(cfg.Database, logger); err != nil {
			return nil, nil, err
		}
	}
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Int("max_conns", cfg.Database.MaxSize).Msg("database pool ready")
	return users.NewPostgresRepository(pool), pool.Close, nil
}
