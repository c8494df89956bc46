package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"jobcal/internal/calendar"
	"jobcal/internal/diff"
	"jobcal/internal/models"
	"jobcal/internal/store"
)

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "List, show, edit and delete events.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Search, filter and sort events.",
				Flags: viewFlags(),
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
					events := st.View(q)
					if c.Bool("json") {
						return writeJSON(calendar.ToEntries(events))
					}
					printEvents(events, e.loc)
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Show a single event.",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					e, err := newEnv(c)
					if err != nil {
						return err
					}
					id, err := eventID(c)
					if err != nil {
						return err
					}
					ev, err := e.client.GetEvent(c.Context, id)
					if err != nil {
						return err
					}
					printEvent(ev, e.loc)
					return nil
				},
			},
			{
				Name:      "edit",
				Usage:     "Edit fields of an event. Only the given flags are changed; pass an empty value to clear an optional field.",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "company"},
					&cli.StringFlag{Name: "type", Usage: choices(models.EventTypes)},
					&cli.StringFlag{Name: "status", Usage: choices(models.Statuses)},
					&cli.StringFlag{Name: "start", Usage: "Local start time, " + diff.LocalEditLayout},
					&cli.StringFlag{Name: "end", Usage: "Local end time, " + diff.LocalEditLayout},
					&cli.StringFlag{Name: "location"},
					&cli.StringFlag{Name: "memo"},
				},
				Action: func(c *cli.Context) error {
					e, err := newEnv(c)
					if err != nil {
						return err
					}
					id, err := eventID(c)
					if err != nil {
						return err
					}
					st, err := e.newStore(c.Context)
					if err != nil {
						return err
					}
					orig, ok := st.Get(id)
					if !ok {
						return store.ErrNotFound
					}

					draft := applyEditFlags(c, diff.NewDraft(orig, e.loc))
					ev, patch, err := st.Save(c.Context, draft, e.loc)
					if err != nil {
						return err
					}
					if patch.Empty() {
						fmt.Println("変更はありません")
						return nil
					}
					fmt.Printf("更新しました: %s\n", strings.Join(patch.Fields(), ", "))
					printEvent(ev, e.loc)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an event.",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation."},
				},
				Action: func(c *cli.Context) error {
					e, err := newEnv(c)
					if err != nil {
						return err
					}
					id, err := eventID(c)
					if err != nil {
						return err
					}
					st, err := e.newStore(c.Context)
					if err != nil {
						return err
					}
					ev, ok := st.Get(id)
					if !ok {
						return store.ErrNotFound
					}
					if !c.Bool("yes") && !confirm(fmt.Sprintf("「%s」を削除します。よろしいですか？", calendar.DisplayTitle(ev))) {
						return nil
					}
					if err := st.Remove(c.Context, id); err != nil {
						return err
					}
					fmt.Println("削除しました")
					return nil
				},
			},
		},
	}
}

func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Value: store.FilterAll, Usage: store.FilterAll + " or " + choices(models.EventTypes)},
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Substring of company name or title."},
		&cli.StringFlag{Name: "sort", Value: string(store.SortDateAsc), Usage: "dateAsc or dateDesc"},
		&cli.BoolFlag{Name: "json", Usage: "Print calendar entries as JSON."},
	}
}

// choices renders known values with their labels for flag usage, e.g.
// "interview (面接), briefing (説明会), other (その他)".
func choices[T interface {
	~string
	Label() string
}](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%s (%s)", string(v), v.Label())
	}
	return strings.Join(parts, ", ")
}

func queryFromFlags(c *cli.Context) (store.Query, error) {
	typ, err := store.ParseFilter(c.String("type"))
	if err != nil {
		return store.Query{}, err
	}
	sortKey, err := store.ParseSortKey(c.String("sort"))
	if err != nil {
		return store.Query{}, err
	}
	return store.Query{Type: typ, Text: c.String("query"), Sort: sortKey}, nil
}

func applyEditFlags(c *cli.Context, d models.Draft) models.Draft {
	fields := map[string]*string{
		"title":    &d.Title,
		"company":  &d.CompanyName,
		"type":     &d.EventType,
		"status":   &d.Status,
		"start":    &d.StartAt,
		"end":      &d.EndAt,
		"location": &d.Location,
		"memo":     &d.Memo,
	}
	for flag, dst := range fields {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	return d
}

func eventID(c *cli.Context) (int64, error) {
	arg := c.Args().First()
	if arg == "" {
		return 0, fmt.Errorf("event id is required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q", arg)
	}
	return id, nil
}

func printEvents(events []models.Event, loc *time.Location) {
	if len(events) == 0 {
		fmt.Println("条件に一致する予定がありません。検索条件や種別を変えてみてください。")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t日時\t種別\t状態\t会社\tタイトル")
	for _, ev := range events {
		company := ev.CompanyName
		if company == "" {
			company = "（会社名不明）"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", ev.ID, formatTime(ev.StartAt, loc), ev.EventType.Label(), ev.Status.Label(), company, ev.Title)
	}
	w.Flush()
}

func printEvent(ev models.Event, loc *time.Location) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%d\n", ev.ID)
	fmt.Fprintf(w, "タイトル\t%s\n", ev.Title)
	fmt.Fprintf(w, "会社\t%s\n", orDash(ev.CompanyName))
	fmt.Fprintf(w, "種別\t%s\n", ev.EventType.Label())
	fmt.Fprintf(w, "状態\t%s\n", ev.Status.Label())
	fmt.Fprintf(w, "開始\t%s\n", formatTime(ev.StartAt, loc))
	if ev.EndAt != nil {
		fmt.Fprintf(w, "終了\t%s\n", formatTime(*ev.EndAt, loc))
	}
	fmt.Fprintf(w, "場所\t%s\n", orDash(ev.Location))
	fmt.Fprintf(w, "メモ\t%s\n", orDash(ev.Memo))
	fmt.Fprintf(w, "登録元\t%s\n", orDash(ev.Source))
	w.Flush()
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "日時未設定"
	}
	return t.In(loc).Format("2006/01/02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
