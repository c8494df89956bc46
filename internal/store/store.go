package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jobcal/internal/diff"
	"jobcal/internal/models"
)

var (
	// ErrNotFound is returned when an id is not in the collection.
	ErrNotFound = errors.New("event not found")
	// ErrBusy is returned when another operation on the same record, or a
	// collection-wide load or sync, is still in flight.
	ErrBusy = errors.New("operation already in progress")
)

// Backend is the part of the transport client the store needs.
type Backend interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, id int64, patch models.Patch) (models.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// FetchFunc returns a full, authoritative event collection.
type FetchFunc func(ctx context.Context) ([]models.Event, error)

// pendingDelete remembers what an optimistic delete removed.
type pendingDelete struct {
	event models.Event
	index int
}

// Store owns the client-side event collection. It is the only component that
// mutates the collection; everyone else gets copies. The mutex is never held
// across a network call.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu       sync.Mutex
	events   []models.Event
	nextSeq  uint64
	applied  uint64
	loading  int
	inflight map[int64]bool
	deleted  map[int64]*pendingDelete
	lastErr  error
}

// New creates an empty store backed by backend.
func New(logger *slog.Logger, backend Backend) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:  backend,
		logger:   logger,
		inflight: make(map[int64]bool),
		deleted:  make(map[int64]*pendingDelete),
	}
}

// Load fetches the full event list and replaces the collection.
func (s *Store) Load(ctx context.Context) error {
	return s.Refresh(ctx, s.backend.ListEvents)
}

// Refresh replaces the whole collection with the result of fetch. The
// collection is swapped in one step, so readers never see a half-replaced
// list. On failure the previous collection is kept and the error returned.
// When fetches overlap, a result (or failure) older than one already applied
// is dropped.
func (s *Store) Refresh(ctx context.Context, fetch FetchFunc) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.loading++
	s.mu.Unlock()

	events, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--

	if seq < s.applied {
		s.logger.Debug("Dropping superseded refresh result.", "seq", seq, "applied", s.applied, "error", err)
		return nil
	}
	if err != nil {
		s.lastErr = err
		s.logger.Warn("Failed to refresh events, keeping previous collection.", "seq", seq, "error", err)
		return fmt.Errorf("failed to refresh events: %w", err)
	}

	s.applied = seq
	s.events = s.normalize(events)
	s.lastErr = nil
	s.logger.Debug("Replaced event collection.", "seq", seq, "count", len(s.events))
	return nil
}

// normalize deduplicates by id (first position, last value) and hides
// records with a delete in flight while refreshing their rollback copy.
// Callers must hold s.mu.
func (s *Store) normalize(events []models.Event) []models.Event {
	pos := make(map[int64]int, len(events))
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if p, ok := s.deleted[ev.ID]; ok {
			p.event = ev.Clone()
			continue
		}
		if i, ok := pos[ev.ID]; ok {
			out[i] = ev.Clone()
			continue
		}
		pos[ev.ID] = len(out)
		out = append(out, ev.Clone())
	}
	return out
}

// View returns a filtered, sorted copy of the collection.
func (s *Store) View(q Query) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Derive(s.events, q)
}

// Events returns a copy of the collection in server order.
func (s *Store) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Clone()
	}
	return out
}

// Get returns the stored record for id.
func (s *Store) Get(id int64) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.events[i].Clone(), true
	}
	return models.Event{}, false
}

// Len returns the number of records in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Loading reports whether a load or sync is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// LastError returns the error of the most recent failed refresh, cleared by
// the next successful one.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Busy reports whether save and delete for id should be disabled.
func (s *Store) Busy(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0 || s.inflight[id]
}

// Replace swaps the stored record for id with the canonical value ev. It
// reports false when id is not in the collection.
func (s *Store) Replace(id int64, ev models.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(id, ev)
}

func (s *Store) replaceLocked(id int64, ev models.Event) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	ev.ID = id
	s.events[i] = ev.Clone()
	return true
}

// Remove deletes id optimistically: the record leaves the collection before
// the request is sent and is put back, unchanged and at the same position,
// if the request fails.
func (s *Store) Remove(ctx context.Context, id int64) error {
	return s.optimistic(ctx, id,
		func() (func(), error) {
			i := s.indexOf(id)
			if i < 0 {
				return nil, ErrNotFound
			}
			p := &pendingDelete{event: s.events[i].Clone(), index: i}
			s.events = append(s.events[:i:i], s.events[i+1:]...)
			s.deleted[id] = p
			return func() {
				delete(s.deleted, id)
				if s.indexOf(id) >= 0 {
					return
				}
				at := min(p.index, len(s.events))
				s.events = append(s.events[:at:at], append([]models.Event{p.event}, s.events[at:]...)...)
			}, nil
		},
		func(ctx context.Context) error {
			if err := s.backend.DeleteEvent(ctx, id); err != nil {
				return fmt.Errorf("failed to delete event %d: %w", id, err)
			}
			s.mu.Lock()
			delete(s.deleted, id)
			s.mu.Unlock()
			return nil
		},
	)
}

// Update sends patch for id and stores the server's canonical result. An
// empty patch is a no-op and does not reach the network.
func (s *Store) Update(ctx context.Context, id int64, patch models.Patch) (models.Event, error) {
	if patch.Empty() {
		ev, ok := s.Get(id)
		if !ok {
			return models.Event{}, ErrNotFound
		}
		return ev, nil
	}

	var updated models.Event
	err := s.optimistic(ctx, id,
		func() (func(), error) {
			if s.indexOf(id) < 0 {
				return nil, ErrNotFound
			}
			return func() {}, nil
		},
		func(ctx context.Context) error {
			ev, err := s.backend.UpdateEvent(ctx, id, patch)
			if err != nil {
				return fmt.Errorf("failed to update event %d: %w", id, err)
			}
			s.mu.Lock()
			s.replaceLocked(id, ev)
			s.mu.Unlock()
			updated = ev
			return nil
		},
	)
	return updated, err
}

// Save diffs draft against the stored record and submits the changes. It
// returns the patch that was sent (empty for a no-op save). Validation
// failures are returned as *diff.ValidationError before any request is made.
func (s *Store) Save(ctx context.Context, draft models.Draft, loc *time.Location) (models.Event, models.Patch, error) {
	orig, ok := s.Get(draft.ID)
	if !ok {
		return models.Event{}, nil, ErrNotFound
	}
	patch, err := diff.Diff(orig, draft, loc)
	if err != nil {
		return models.Event{}, nil, err
	}
	if patch.Empty() {
		s.logger.Debug("Nothing to save.", "id", draft.ID)
		return orig, patch, nil
	}
	ev, err := s.Update(ctx, draft.ID, patch)
	if err != nil {
		return models.Event{}, patch, err
	}
	s.logger.Info("Saved event.", "id", draft.ID, "fields", patch.Fields())
	return ev, patch, nil
}

// optimistic runs one record-level operation: apply mutates the collection
// under the lock and returns how to undo it, submit talks to the backend
// without the lock, and the undo runs exactly once if submit fails.
func (s *Store) optimistic(ctx context.Context, id int64, apply func() (func(), error), submit func(context.Context) error) error {
	s.mu.Lock()
	if s.loading > 0 || s.inflight[id] {
		s.mu.Unlock()
		return ErrBusy
	}
	revert, err := apply()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.inflight[id] = true
	s.mu.Unlock()

	err = submit(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
	if err != nil {
		revert()
		s.logger.Warn("Operation failed, local change rolled back.", "id", id, "error", err)
		return err
	}
	return nil
}

// indexOf returns the position of id or -1. Callers must hold s.mu.
func (s *Store) indexOf(id int64) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}
