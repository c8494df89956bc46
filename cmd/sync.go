package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"jobcal/internal/calendar"
	"jobcal/internal/google"
	"jobcal/internal/icloud"
	"jobcal/internal/store"
	"jobcal/internal/syncer"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Re-sync events from Gmail on the backend and publish them.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the sync cycle once and exit, ignoring --watch and --schedule."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
			&cli.IntFlag{Name: "watch", Usage: "Run sync every N seconds; 0 uses the configured schedule."},
			&cli.StringFlag{Name: "schedule", Usage: "Run sync on a cron schedule (e.g. \"*/15 * * * *\"). Overrides --watch."},
			&cli.StringSliceFlag{Name: "publish", Usage: "Calendar sinks to publish to: caldav, google."},
			&cli.StringFlag{Name: "ics", Usage: "Write the calendar view to this .ics file after each sync."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}

			if c.Bool("dry-run") {
				e.logger.Info("Performing a dry run. No changes will be made.")
			}

			publishers, err := e.publishers(c.Context, c.StringSlice("publish"))
			if err != nil {
				return err
			}

			st := store.New(e.logger, e.client)
			s, err := syncer.NewSyncer(e.logger, e.client, st, publishers, syncer.Options{
				StateFile: e.cfg.StateFile,
				DryRun:    c.Bool("dry-run"),
				ICSPath:   c.String("ics"),
			})
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			spec := scheduleSpec(c.Bool("once"), c.String("schedule"), c.IsSet("watch"), c.Int("watch"), e.cfg.Schedule)
			if spec == "" {
				e.logger.Info("Running a single sync cycle.")
				res, err := s.Sync(c.Context)
				if err != nil {
					return fmt.Errorf("single sync cycle failed: %w", err)
				}
				fmt.Printf("同期しました: %d 件\n", res.Events)
				return nil
			}
			return runScheduled(c.Context, e, s, spec)
		},
	}
}

// scheduleSpec picks the cron spec for the sync command, or "" for a single
// cycle. --once wins over everything; --watch without a positive interval
// falls back to the configured schedule.
func scheduleSpec(once bool, schedule string, watchSet bool, watch int, fallback string) string {
	switch {
	case once:
		return ""
	case schedule != "":
		return schedule
	case watchSet && watch > 0:
		return fmt.Sprintf("@every %ds", watch)
	case watchSet:
		return fallback
	}
	return ""
}

// runScheduled runs s immediately and then on spec until ctx is cancelled.
// A cycle still running when the next one is due is skipped.
func runScheduled(ctx context.Context, e *env, s *syncer.Syncer, spec string) error {
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	run := func() {
		if _, err := s.Sync(ctx); err != nil {
			e.logger.Error("Sync cycle failed", "error", err)
		}
	}
	if _, err := sched.AddFunc(spec, run); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	e.logger.Info("Starting watcher.", "schedule", spec)
	run()
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	e.logger.Info("Watcher stopped.")
	return nil
}

// publishers builds the requested calendar sinks.
func (e *env) publishers(ctx context.Context, names []string) ([]syncer.Publisher, error) {
	var out []syncer.Publisher
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "caldav", "icloud":
			if !e.cfg.CalDAV.Enabled() {
				return nil, fmt.Errorf("caldav publishing needs ICLOUD_USERNAME, ICLOUD_APP_SPECIFIC_PASSWORD and ICLOUD_CALENDAR_NAME")
			}
			p, err := icloud.NewClient(ctx, e.logger, icloud.Config{
				Endpoint:     e.cfg.CalDAV.Endpoint,
				Username:     e.cfg.CalDAV.Username,
				Password:     e.cfg.CalDAV.Password,
				CalendarName: e.cfg.CalDAV.CalendarName,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create caldav client: %w", err)
			}
			out = append(out, p)
		case "google":
			config, err := google.GetOAuthConfig(e.cfg.Google.ClientID, e.cfg.Google.ClientSecret)
			if err != nil {
				return nil, fmt.Errorf("failed to get google oauth config: %w", err)
			}
			token, err := google.TokenFromFile(e.cfg.Google.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("could not load google token: %w. Please run the 'auth' command first", err)
			}
			p, err := google.NewClient(ctx, e.logger, config, token, e.cfg.Google.CalendarID)
			if err != nil {
				return nil, fmt.Errorf("failed to create google client: %w", err)
			}
			out = append(out, p)
		case "":
		default:
			return nil, fmt.Errorf("unknown publisher %q", name)
		}
	}
	return out, nil
}

func exportCommand() *cli.Command {
	flags := viewFlags()
	flags = append(flags, &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "jobcal.ics", Usage: "Output .ics file, or - for stdout."})
	return &cli.Command{
		Name:  "export",
		Usage: "Export the (filtered) events as an iCalendar file.",
		Flags: flags,
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			q, err := queryFromFlags(c)
			if err != nil {
				return err
			}
			st, err := e.newStore(c.Context)
			if err != nil {
				return err
			}
			entries := calendar.ToEntries(st.View(q))

			if c.String("out") == "-" {
				return calendar.WriteICS(os.Stdout, entries)
			}
			f, err := os.Create(c.String("out"))
			if err != nil {
				return fmt.Errorf("failed to create calendar file: %w", err)
			}
			defer f.Close()
			if err := calendar.WriteICS(f, entries); err != nil {
				return err
			}
			e.logger.Info("Exported calendar.", "file", c.String("out"), "count", len(entries))
			return nil
		},
	}
}
