package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcal/internal/api"
	"jobcal/internal/diff"
	"jobcal/internal/models"
)

var jst = time.FixedZone("JST", 9*3600)

type fakeBackend struct {
	mu        sync.Mutex
	events    []models.Event
	listErr   error
	deleteErr error
	updateErr error
	deleted   []int64
	patches   []models.Patch

	// block, when set, is waited on inside DeleteEvent.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeBackend) ListEvents(ctx context.Context) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Event, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeBackend) UpdateEvent(ctx context.Context, id int64, patch models.Patch) (models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return models.Event{}, f.updateErr
	}
	for i, ev := range f.events {
		if ev.ID != id {
			continue
		}
		if v, ok := patch["memo"]; ok {
			if v == nil {
				ev.Memo = ""
			} else {
				ev.Memo = v.(string)
			}
		}
		if v, ok := patch["title"]; ok {
			ev.Title = v.(string)
		}
		ev.Source = "manual"
		f.events[i] = ev
		return ev, nil
	}
	return models.Event{}, &api.Error{Method: "PATCH", Status: 404, Data: map[string]any{"detail": "Event not found"}}
}

func (f *fakeBackend) DeleteEvent(ctx context.Context, id int64) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func event(id int64, title string, typ models.EventType, start time.Time) models.Event {
	return models.Event{
		ID:        id,
		Title:     title,
		EventType: typ,
		Status:    models.StatusScheduled,
		StartAt:   start,
		Source:    "auto",
	}
}

func sampleEvents() []models.Event {
	return []models.Event{
		event(1, "面接", models.EventTypeInterview, time.Date(2025, 12, 1, 10, 0, 0, 0, jst)),
		event(2, "会社説明会", models.EventTypeBriefing, time.Date(2025, 11, 20, 14, 0, 0, 0, jst)),
		event(3, "OB訪問", models.EventTypeOther, time.Date(2025, 12, 5, 9, 0, 0, 0, jst)),
	}
}

func loadedStore(t *testing.T, b *fakeBackend) *Store {
	t.Helper()
	s := New(quietLogger(), b)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func ids(events []models.Event) []int64 {
	out := make([]int64, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestViewFiltersByType(t *testing.T) {
	b := &fakeBackend{events: []models.Event{
		event(1, "面接", models.EventTypeInterview, time.Date(2025, 12, 1, 10, 0, 0, 0, jst)),
	}}
	s := loadedStore(t, b)

	for _, typ := range []string{FilterAll, "面接", "interview"} {
		got := s.View(Query{Type: typ, Sort: SortDateAsc})
		assert.Equal(t, []int64{1}, ids(got), typ)
	}
	assert.Empty(t, s.View(Query{Type: "briefing"}))
}

func TestViewTextSearch(t *testing.T) {
	evs := sampleEvents()
	evs[0].CompanyName = "Sky株式会社"
	s := loadedStore(t, &fakeBackend{events: evs})

	assert.Equal(t, []int64{1}, ids(s.View(Query{Text: "sky"})))
	assert.Equal(t, []int64{2}, ids(s.View(Query{Text: "説明"})))
	// Title and company name are matched as one string.
	assert.Equal(t, []int64{1}, ids(s.View(Query{Text: "面接sky"})))
	assert.Empty(t, s.View(Query{Text: "nothing"}))
}

func TestViewSortsStably(t *testing.T) {
	same := time.Date(2025, 12, 1, 10, 0, 0, 0, jst)
	b := &fakeBackend{events: []models.Event{
		event(5, "a", models.EventTypeOther, same),
		event(3, "b", models.EventTypeOther, same),
		event(9, "c", models.EventTypeOther, same.Add(-time.Hour)),
		event(4, "d", models.EventTypeOther, same),
	}}
	s := loadedStore(t, b)

	assert.Equal(t, []int64{9, 5, 3, 4}, ids(s.View(Query{Sort: SortDateAsc})))
	assert.Equal(t, []int64{5, 3, 4, 9}, ids(s.View(Query{Sort: SortDateDesc})))
}

func TestViewZeroStartSortsAsEpoch(t *testing.T) {
	b := &fakeBackend{events: []models.Event{
		event(1, "a", models.EventTypeOther, time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)),
		event(2, "b", models.EventTypeOther, time.Time{}),
		event(3, "c", models.EventTypeOther, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}}
	s := loadedStore(t, b)
	assert.Equal(t, []int64{1, 2, 3}, ids(s.View(Query{})))
}

func TestViewDoesNotMutateCollection(t *testing.T) {
	s := loadedStore(t, &fakeBackend{events: sampleEvents()})
	before := s.Events()

	v := s.View(Query{Sort: SortDateDesc})
	v[0].Title = "changed"
	_ = s.View(Query{Type: "briefing", Text: "説明"})

	assert.Equal(t, before, s.Events())
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Events()))
}

func TestLoadDeduplicatesByID(t *testing.T) {
	evs := sampleEvents()
	dup := evs[0]
	dup.Title = "最終面接"
	b := &fakeBackend{events: append(evs, dup)}
	s := loadedStore(t, b)

	assert.Equal(t, 3, s.Len())
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "最終面接", got.Title)
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Events()))
}

func TestLoadFailureKeepsCollection(t *testing.T) {
	b := &fakeBackend{events: sampleEvents()}
	s := loadedStore(t, b)

	b.listErr = &api.Error{Method: "GET", Path: "/api/events", Status: 0, Data: map[string]any{}, Err: errors.New("connection refused")}
	err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsNetwork(err))
	assert.Equal(t, 3, s.Len())
	assert.Error(t, s.LastError())
	assert.False(t, s.Loading())

	b.listErr = nil
	require.NoError(t, s.Load(context.Background()))
	assert.NoError(t, s.LastError())
}

func TestRemoveSuccess(t *testing.T) {
	b := &fakeBackend{events: sampleEvents()}
	s := loadedStore(t, b)

	require.NoError(t, s.Remove(context.Background(), 2))
	assert.Equal(t, []int64{1, 3}, ids(s.Events()))
	assert.Equal(t, []int64{2}, b.deleted)
	_, ok := s.Get(2)
	assert.False(t, ok)
}

func TestRemoveFailureRestoresRecordInPlace(t *testing.T) {
	b := &fakeBackend{events: sampleEvents()}
	s := loadedStore(t, b)
	before := s.Events()

	b.deleteErr = &api.Error{Method: "DELETE", Path: "/api/events/2", Status: 500, Data: map[string]any{"detail": "boom"}}
	err := s.Remove(context.Background(), 2)
	require.Error(t, err)
	assert.Equal(t, 500, api.StatusOf(err))
	assert.Equal(t, "boom", api.DetailOf(err))

	assert.Equal(t, before, s.Events())
	assert.False(t, s.Busy(2))
}

func TestRemoveUnknownID(t *testing.T) {
	b := &fakeBackend{events: sampleEvents()}
	s := loadedStore(t, b)
	assert.ErrorIs(t, s.Remove(context.Background(), 42), ErrNotFound)
	assert.Empty(t, b.deleted)
}

func TestRemoveHidesRecordWhileInFlight(t *testing.T) {
	b := &fakeBackend{
		events:  sampleEvents(),
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := loadedStore(t, b)

	done := make(chan error, 1)
	go func() { done <- s.Remove(context.Background(), 1) }()
	<-b.entered

	assert.True(t, s.Busy(1))
	assert.Equal(t, []int64{2, 3}, ids(s.Events()))
	assert.ErrorIs(t, s.Remove(context.Background(), 1), ErrBusy)

	// A refresh that still lists the record must not resurrect it.
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []int64{2, 3}, ids(s.Events()))

	b.mu.Lock()
	b.deleteErr = errors.New("offline")
	b.mu.Unlock()
	close(b.block)
	require.Error(t, <-done)

	assert.Equal(t, []int64{1, 2, 3}, ids(s.Events()))
	assert.False(t, s.Busy(1))
}

func TestRecordOperationsAreBusyDuringLoad(t *testing.T) {
	b := &fakeBackend{events: sampleEvents()}
	s := loadedStore(t, b)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Refresh(context.Background(), func(ctx context.Context) ([]models.Event, error) {
			close(started)
			<-release
			return sampleEvents(), nil
		})
	}()
	<-started

	assert.True(t, s.Loading())
	assert.ErrorIs(t, s.Remove(context.Background(), 1), ErrBusy)
	_, err := s.Update(context.Background(), 1, models.Patch{"memo": "x"})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, b.deleted)
	assert.Empty(t, b.patches)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Loading())
}

func TestSupersededRefreshIsDropped(t *testing.T) {
	s := New(quietLogger(), &fakeBackend{})

	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	slowDone := make(chan error, 1)
	go func() {
		slowDone <- s.Refresh(context.Background(), func(ctx context.Context) ([]models.Event, error) {
			close(slowStarted)
			<-slowRelease
			return []models.Event{event(1, "old", models.EventTypeOther, time.Now())}, nil
		})
	}()
	<-slowStarted

	require.NoError(t, s.Refresh(context.Background(), func(ctx context.Context) ([]models.Event, error) {
		return []models.Event{event(2, "new", models.EventTypeOther, time.Now())}, nil
	}))
	close(slowRelease)
	require.NoError(t, <-slowDone)

	assert.Equal(t, []int64{2}, ids(s.Events()))
}

func TestUpdateEmptyPatchSkipsNetwork(t *testing.T) {
	b := &fakeBackend{events: sampleEvents()}
	s := loadedStore(t, b)

	ev, err := s.Update(context.Background(), 1, models.Patch{})
	require.NoError(t, err)
	assert.Equal(t, "面接", ev.Title)
	assert.Empty(t, b.patches)
}

func TestSaveSendsOnlyChangedFields(t *testing.T) {
	b := &fakeBackend{events: sampleEvents()}
	s := loadedStore(t, b)

	orig, _ := s.Get(1)
	d := diff.NewDraft(orig, jst)
	d.Memo = "持ち物：履歴書"

	ev, patch, err := s.Save(context.Background(), d, jst)
	require.NoError(t, err)
	assert.Equal(t, models.Patch{"memo": "持ち物：履歴書"}, patch)
	assert.Equal(t, "manual", ev.Source)

	stored, _ := s.Get(1)
	assert.Equal(t, "持ち物：履歴書", stored.Memo)
	require.Len(t, b.patches, 1)
}

func TestSaveValidationFailsBeforeRequest(t *testing.T) {
	b := &fakeBackend{events: sampleEvents()}
	s := loadedStore(t, b)

	orig, _ := s.Get(1)
	d := diff.NewDraft(orig, jst)
	d.Title = "二次面接"
	d.StartAt = ""

	_, _, err := s.Save(context.Background(), d, jst)
	assert.ErrorIs(t, err, diff.ErrStartRequired)
	assert.Empty(t, b.patches)

	stored, _ := s.Get(1)
	assert.Equal(t, "面接", stored.Title)
}

func TestSaveFailureKeepsStoredRecord(t *testing.T) {
	b := &fakeBackend{events: sampleEvents(), updateErr: &api.Error{Status: 422, Data: map[string]any{"detail": "invalid"}}}
	s := loadedStore(t, b)

	orig, _ := s.Get(1)
	d := diff.NewDraft(orig, jst)
	d.Title = "二次面接"

	_, patch, err := s.Save(context.Background(), d, jst)
	require.Error(t, err)
	assert.Equal(t, 422, api.StatusOf(err))
	assert.Equal(t, models.Patch{"title": "二次面接"}, patch)

	stored, _ := s.Get(1)
	assert.True(t, orig.Equal(stored))
}

func TestReplace(t *testing.T) {
	s := loadedStore(t, &fakeBackend{events: sampleEvents()})

	ev, _ := s.Get(3)
	ev.Title = "OB訪問（変更）"
	ev.ID = 99
	assert.True(t, s.Replace(3, ev))
	got, _ := s.Get(3)
	assert.Equal(t, "OB訪問（変更）", got.Title)
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Events()))

	assert.False(t, s.Replace(42, ev))
}

// blockingBackend holds deletes of one id until released.
type blockingBackend struct {
	*fakeBackend
	blockID int64
	release chan struct{}
	entered chan struct{}
	failID  int64
}

func (b *blockingBackend) DeleteEvent(ctx context.Context, id int64) error {
	if id == b.blockID {
		b.entered <- struct{}{}
		<-b.release
	}
	if id == b.failID {
		return errors.New("offline")
	}
	return b.fakeBackend.DeleteEvent(ctx, id)
}

func TestRemoveDifferentIDsAreIndependent(t *testing.T) {
	b := &blockingBackend{
		fakeBackend: &fakeBackend{events: sampleEvents()},
		blockID:     1,
		failID:      1,
		release:     make(chan struct{}),
		entered:     make(chan struct{}),
	}
	s := New(quietLogger(), b)
	require.NoError(t, s.Load(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Remove(context.Background(), 1) }()
	<-b.entered
	require.True(t, s.Busy(1))

	require.NoError(t, s.Remove(context.Background(), 2))
	assert.False(t, s.Busy(2))
	assert.True(t, s.Busy(1))
	assert.Equal(t, []int64{3}, ids(s.Events()))

	close(b.release)
	require.Error(t, <-done)

	assert.Equal(t, []int64{1, 3}, ids(s.Events()))
	_, ok := s.Get(2)
	assert.False(t, ok)
	assert.False(t, s.Busy(1))
}

func TestSupersededRefreshFailureIsIgnored(t *testing.T) {
	s := New(quietLogger(), &fakeBackend{})

	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	slowDone := make(chan error, 1)
	go func() {
		slowDone <- s.Refresh(context.Background(), func(ctx context.Context) ([]models.Event, error) {
			close(slowStarted)
			<-slowRelease
			return nil, errors.New("timeout")
		})
	}()
	<-slowStarted

	require.NoError(t, s.Refresh(context.Background(), func(ctx context.Context) ([]models.Event, error) {
		return []models.Event{event(2, "new", models.EventTypeOther, time.Now())}, nil
	}))
	close(slowRelease)

	assert.NoError(t, <-slowDone)
	assert.NoError(t, s.LastError())
	assert.Equal(t, []int64{2}, ids(s.Events()))
}
