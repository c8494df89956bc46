package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/urfave/cli/v2"

	"jobcal/internal/api"
	"jobcal/internal/config"
	"jobcal/internal/diff"
	"jobcal/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "jobcal",
		Usage: "Track job-hunting events imported from Gmail and publish them to your calendars.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to a YAML config file (default: ./jobcal.yaml if present)."},
		},
		Commands: []*cli.Command{
			authCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			eventsCommand(),
			syncCommand(),
			exportCommand(),
			gmailCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// env bundles what every command needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	loc    *time.Location
	client *api.Client
}

// newEnv loads configuration, sets up logging and restores the backend session.
func newEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(cfg.Level(), cfg.LogFormat)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(logger, cfg.APIBaseURL, api.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	if err := client.LoadSession(cfg.SessionFile); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	return &env{cfg: cfg, logger: logger, loc: loc, client: client}, nil
}

// newStore returns a store loaded with the current collection.
func (e *env) newStore(ctx context.Context) (*store.Store, error) {
	st := store.New(e.logger, e.client)
	if err := st.Load(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func setupLogger(level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// describeError turns a command failure into a message for the user.
func describeError(err error) string {
	var verr *diff.ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("入力エラー: %s", verr.Error())
	case api.NeedsGmailAuth(err):
		return "まず Gmail を連携してください (jobcal gmail authorize)"
	case api.IsUnauthorized(err):
		return "ログインしてください (jobcal login)"
	case errors.Is(err, store.ErrNotFound) || api.IsNotFound(err):
		return "イベントが見つかりませんでした"
	case errors.Is(err, store.ErrBusy):
		return "処理中です。しばらくしてから再実行してください"
	case api.IsNetwork(err):
		return "サーバーに接続できませんでした"
	}
	if d := api.DetailOf(err); d != "" {
		return d
	}
	return err.Error()
}
