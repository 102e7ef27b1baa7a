// Command zenithd runs the Zenith calendar service: HTTP API, postgres
// persistence and the Google Calendar sync core.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/zenith-hq/zenith-calendar/internal/auth"
	"github.com/zenith-hq/zenith-calendar/internal/calendar"
	"github.com/zenith-hq/zenith-calendar/internal/config"
	"github.com/zenith-hq/zenith-calendar/internal/gcal"
	"github.com/zenith-hq/zenith-calendar/internal/httpapi"
	"github.com/zenith-hq/zenith-calendar/internal/mail"
	"github.com/zenith-hq/zenith-calendar/internal/store"
	"github.com/zenith-hq/zenith-calendar/internal/upload"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "zenithd",
		Usage: "Zenith calendar service",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			st := store.New(db)

			provider := gcal.NewGoogleClient(
				cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL,
				st.Credentials, logger.Named("gcal"))

			calendarService := calendar.NewService(
				st.Users, st.Credentials, st.Calendars, st.Events, st.Visibilities,
				provider, logger.Named("calendar"))

			mailer := mail.NewSMTPSender(
				cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword,
				cfg.MailFrom, logger.Named("mail"))

			tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry())
			authService := auth.NewService(
				st.Users, tokens, mailer, cfg.BaseURL,
				cfg.SignupTTL(), cfg.RecoveryTTL(), logger.Named("auth"))

			uploader, err := upload.NewGCSUploader(c.Context, cfg.StorageBucket)
			if err != nil {
				return err
			}
			defer uploader.Close()

			server := httpapi.NewServer(authService, tokens, calendarService, uploader, logger.Named("http"))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				logger.Info("shutting down")
				if err := server.Shutdown(); err != nil {
					logger.Error("shutdown failed", zap.Error(err))
				}
			}()

			logger.Info("listening", zap.String("addr", cfg.ListenAddr))
			return server.Listen(cfg.ListenAddr)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			return store.New(db).AutoMigrate()
		},
	}
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if cfg.Environment == "development" {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		return zcfg.Build()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
