package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"jobcal/internal/calendar"
	"jobcal/internal/models"
	"jobcal/internal/store"
)

// Backend triggers the server-side re-ingestion of the inbox.
type Backend interface {
	SyncEvents(ctx context.Context) ([]models.Event, error)
}

// Publisher receives the calendar view after every successful sync.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, entry calendar.Entry) error
	Remove(ctx context.Context, id int64) error
}

// SyncState keeps track of which events have been published.
// The outer key is the publisher name, the inner key the event id, and the
// value the event's updated_at when it was last published.
type SyncState map[string]map[string]string

// Options tunes a Syncer.
type Options struct {
	// StateFile is where SyncState is persisted. Empty disables persistence.
	StateFile string
	// DryRun logs what would be published without changing anything.
	DryRun bool
	// ICSPath, when set, receives the full calendar view after each sync.
	ICSPath string
}

// Result summarises one sync cycle.
type Result struct {
	Events    int
	Published int
	Removed   int
	Failed    int
}

// Syncer orchestrates a backend sync and the publishing that follows it.
type Syncer struct {
	logger     *slog.Logger
	backend    Backend
	store      *store.Store
	publishers []Publisher
	opts       Options
	state      SyncState
}

// NewSyncer creates a new Syncer.
func NewSyncer(logger *slog.Logger, backend Backend, st *store.Store, publishers []Publisher, opts Options) (*Syncer, error) {
	state := make(SyncState)
	if opts.StateFile != "" && len(publishers) > 0 {
		loaded, err := loadState(opts.StateFile)
		switch {
		case err == nil:
			state = loaded
		case os.IsNotExist(err):
			logger.Info("No sync state file found, starting fresh.", "file", opts.StateFile)
		default:
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
	}

	return &Syncer{
		logger:     logger,
		backend:    backend,
		store:      st,
		publishers: publishers,
		opts:       opts,
		state:      state,
	}, nil
}

// Sync performs a full synchronization cycle. The store's collection is
// replaced with the backend result or, on failure, left as it was.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	s.logger.Info("Starting sync cycle.")

	if err := s.store.Refresh(ctx, s.backend.SyncEvents); err != nil {
		return Result{}, fmt.Errorf("failed to sync events: %w", err)
	}

	entries := calendar.ToEntries(s.store.View(store.Query{Type: store.FilterAll, Sort: store.SortDateAsc}))
	res := Result{Events: len(entries)}
	s.logger.Info("Backend sync finished.", "count", len(entries))

	for _, p := range s.publishers {
		s.publish(ctx, p, entries, &res)
	}

	if s.opts.ICSPath != "" {
		if err := s.exportICS(entries); err != nil {
			s.logger.Error("Failed to export calendar file", "file", s.opts.ICSPath, "error", err)
		}
	}

	if !s.opts.DryRun && s.opts.StateFile != "" && len(s.publishers) > 0 {
		if err := s.saveState(); err != nil {
			s.logger.Error("Failed to save sync state", "error", err)
		}
	}

	s.logger.Info("Sync cycle finished.", "published", res.Published, "removed", res.Removed, "failed", res.Failed)
	return res, nil
}

// publish pushes new or changed entries to p and removes entries that are
// no longer in the collection. Failures are logged and skipped.
func (s *Syncer) publish(ctx context.Context, p Publisher, entries []calendar.Entry, res *Result) {
	seen := s.state[p.Name()]
	if seen == nil {
		seen = make(map[string]string)
		s.state[p.Name()] = seen
	}

	current := make(map[string]bool, len(entries))
	for _, entry := range entries {
		key := strconv.FormatInt(entry.ExtendedProps.ID, 10)
		current[key] = true
		version := entry.ExtendedProps.UpdatedAt.UTC().Format(time.RFC3339Nano)
		if seen[key] == version {
			s.logger.Debug("Event already published, skipping.", "publisher", p.Name(), "id", key)
			continue
		}
		if s.opts.DryRun {
			s.logger.Info("[DRY RUN] Would publish event", "publisher", p.Name(), "title", entry.Title, "start", entry.Start)
			continue
		}
		if err := p.Publish(ctx, entry); err != nil {
			s.logger.Error("Failed to publish event", "publisher", p.Name(), "title", entry.Title, "error", err)
			res.Failed++
			continue
		}
		seen[key] = version
		res.Published++
	}

	stale := make([]string, 0)
	for key := range seen {
		if !current[key] {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)
	for _, key := range stale {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			delete(seen, key)
			continue
		}
		if s.opts.DryRun {
			s.logger.Info("[DRY RUN] Would remove event", "publisher", p.Name(), "id", id)
			continue
		}
		if err := p.Remove(ctx, id); err != nil {
			s.logger.Error("Failed to remove event", "publisher", p.Name(), "id", id, "error", err)
			res.Failed++
			continue
		}
		delete(seen, key)
		res.Removed++
	}
}

func (s *Syncer) exportICS(entries []calendar.Entry) error {
	if s.opts.DryRun {
		s.logger.Info("[DRY RUN] Would write calendar file", "file", s.opts.ICSPath, "count", len(entries))
		return nil
	}
	f, err := os.Create(s.opts.ICSPath)
	if err != nil {
		return fmt.Errorf("failed to create calendar file: %w", err)
	}
	defer f.Close()
	return calendar.WriteICS(f, entries)
}

// loadState loads the sync state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the current sync state to the JSON file.
func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return os.WriteFile(s.opts.StateFile, data, 0644)
}
