package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/availability"
	"github.com/salonhub/scheduling/services/booking-service/internal/filter"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

func day(hh, mm int) time.Time {
	return time.Date(2025, 6, 1, hh, mm, 0, 0, time.UTC)
}

func newTestStore(t *testing.T, opts Options) (*Store, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	seq := 0
	opts.NewID = func() string {
		seq++
		return fmt.Sprintf("a%d", seq)
	}
	s := New("sa1", repo, opts)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s, repo
}

func draft(client, staff string, start, end time.Time) Draft {
	ref := model.Unassigned()
	if staff != "" {
		ref = model.AssignedTo(staff)
	}
	return Draft{SalonID: "sa1", ClientName: client, Start: start, End: end, Staff: ref}
}

func assertConsistent(t *testing.T, s *Store) {
	t.Helper()
	want := filter.Apply(s.Filters(), s.All())
	got := s.Filtered()
	if len(want) != len(got) {
		t.Fatalf("filtered view drifted: want %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i].ID != got[i].ID {
			t.Fatalf("filtered view drifted at %d: want %s, got %s", i, want[i].ID, got[i].ID)
		}
	}
}

func TestAddRejectsOverlapOnSameStaff(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	if _, err := s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0))); err != nil {
		t.Fatalf("add A: %v", err)
	}
	_, err := s.Add(ctx, draft("Bruno", "s1", day(9, 30), day(10, 30)))
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}
	if len(s.All()) != 1 {
		t.Fatalf("conflicting add must not be stored, have %d", len(s.All()))
	}
	if s.Err() != ErrSlotConflict.Error() {
		t.Fatalf("expected last error to be recorded, got %q", s.Err())
	}
}

func TestAddAllowsTouchingBoundary(t *testing.T) {
	s, repo := newTestStore(t, Options{})
	ctx := context.Background()

	if _, err := s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0))); err != nil {
		t.Fatalf("add A: %v", err)
	}
	c, err := s.Add(ctx, draft("Carla", "s1", day(10, 0), day(11, 0)))
	if err != nil {
		t.Fatalf("touching add should succeed: %v", err)
	}
	if _, err := repo.Get(ctx, "sa1", c.ID); err != nil {
		t.Fatalf("expected C persisted: %v", err)
	}
	if s.Err() != "" {
		t.Fatalf("success should clear error, got %q", s.Err())
	}
	assertConsistent(t, s)
}

func TestUpdateMovesToOtherStaff(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	a, err := s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0)))
	if err != nil {
		t.Fatalf("add A: %v", err)
	}
	if _, err := s.Add(ctx, draft("Bruno", "s2", day(9, 30), day(10, 30))); err != nil {
		t.Fatalf("add B on s2: %v", err)
	}

	a.Staff = model.AssignedTo("s3")
	if _, err := s.Update(ctx, a); err != nil {
		t.Fatalf("move to free staff: %v", err)
	}
	a.Staff = model.AssignedTo("s2")
	if _, err := s.Update(ctx, a); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected conflict on s2, got %v", err)
	}

	got, _ := s.Get(a.ID)
	if id, _ := got.Staff.ID(); id != "s3" {
		t.Fatalf("failed update must leave record untouched, staff=%s", id)
	}
}

func TestUpdateScenarioStaffScoped(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	a, _ := s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0)))
	a.Start, a.End = day(10, 30), day(11, 30)
	if _, err := s.Update(ctx, a); err != nil {
		t.Fatalf("shift A: %v", err)
	}
	if _, err := s.Add(ctx, draft("Bruno", "s1", day(9, 30), day(10, 30))); err != nil {
		t.Fatalf("add B: %v", err)
	}

	a.Start, a.End = day(9, 0), day(10, 0)
	a.Staff = model.AssignedTo("s2")
	if _, err := s.Update(ctx, a); err != nil {
		t.Fatalf("same time on another staff should succeed: %v", err)
	}
}

func TestUpdateDoesNotConflictWithItself(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	a, _ := s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0)))
	a.End = day(10, 15)
	a.Notes = "extended"
	updated, err := s.Update(ctx, a)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("created_at must be preserved")
	}
	if !s.IsSlotAvailable(availability.QueryFor(updated)) {
		t.Fatalf("stored appointment must not conflict with itself")
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	_, err := s.Update(context.Background(), model.Appointment{
		ID: "missing", SalonID: "sa1", ClientName: "X", Start: day(9, 0), End: day(10, 0),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0)))
	before := s.All()

	if err := s.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	after := s.All()
	if !slices.EqualFunc(before, after, func(a, b model.Appointment) bool { return a.ID == b.ID }) {
		t.Fatalf("collection changed on failed delete")
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	s, repo := newTestStore(t, Options{})
	ctx := context.Background()
	a, _ := s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0)))

	if _, err := s.Select(a.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("selection should be cleared")
	}
	if _, err := repo.Get(ctx, "sa1", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record removed from repository, got %v", err)
	}
	assertConsistent(t, s)
}

func TestAddValidation(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	cases := map[string]struct {
		d     Draft
		field string
	}{
		"missing client": {draft("", "s1", day(9, 0), day(10, 0)), "client_name"},
		"missing start":  {draft("Anna", "s1", time.Time{}, day(10, 0)), "start"},
		"end before":     {draft("Anna", "s1", day(10, 0), day(9, 0)), "end"},
		"zero length":    {draft("Anna", "s1", day(10, 0), day(10, 0)), "end"},
		"other salon":    {Draft{SalonID: "sa2", ClientName: "Anna", Start: day(9, 0), End: day(10, 0)}, "salon_id"},
		"missing salon":  {Draft{ClientName: "Anna", Start: day(9, 0), End: day(10, 0)}, "salon_id"},
		"bad status":     {Draft{SalonID: "sa1", ClientName: "Anna", Start: day(9, 0), End: day(10, 0), Status: "maybe"}, "status"},
	}
	for name, tc := range cases {
		_, err := s.Add(ctx, tc.d)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("%s: expected field %s, got %s", name, tc.field, verr.Field)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: validation error must match ErrValidation", name)
		}
	}
	if len(s.All()) != 0 {
		t.Fatalf("invalid drafts must not be stored")
	}
}

func TestAddDefaults(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	d := draft("Anna", "", day(9, 0), day(10, 0))
	d.Service = "Haircut"
	a, err := s.Add(context.Background(), d)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.ID == "" || a.Status != model.StatusPending || a.Title != "Haircut" {
		t.Fatalf("unexpected defaults: %+v", a)
	}
	if a.Staff.IsAssigned() {
		t.Fatalf("expected unassigned staff")
	}
}

func TestUnassignedShareOneLane(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	if _, err := s.Add(ctx, draft("Anna", "", day(9, 0), day(10, 0))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.Add(ctx, draft("Bruno", "", day(9, 30), day(10, 0))); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected unassigned lane conflict, got %v", err)
	}
	if _, err := s.Add(ctx, draft("Bruno", "s1", day(9, 30), day(10, 0))); err != nil {
		t.Fatalf("assigned staff is a different lane: %v", err)
	}
}

func TestCancelledDoesNotBlock(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	d := draft("Anna", "s1", day(9, 0), day(10, 0))
	d.Status = model.StatusCancelled
	if _, err := s.Add(ctx, d); err != nil {
		t.Fatalf("add cancelled: %v", err)
	}
	if _, err := s.Add(ctx, draft("Bruno", "s1", day(9, 0), day(10, 0))); err != nil {
		t.Fatalf("cancelled slot should be free: %v", err)
	}
}

func TestFiltersStayConsistent(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	confirmed := model.StatusConfirmed
	search := "rossi"
	s.SetFilters(filter.Patch{Status: &confirmed, Search: &search})

	d := draft("Mario Rossi", "s1", day(9, 0), day(10, 0))
	d.Status = model.StatusConfirmed
	a, _ := s.Add(ctx, d)
	s.Add(ctx, draft("Mario Rossi", "s2", day(9, 0), day(10, 0)))
	s.Add(ctx, draft("Lucia Bianchi", "s3", day(9, 0), day(10, 0)))
	assertConsistent(t, s)

	got := s.Filtered()
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("expected only the confirmed Rossi appointment, got %+v", got)
	}

	a.Status = model.StatusPending
	if _, err := s.Update(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	assertConsistent(t, s)
	if len(s.Filtered()) != 0 {
		t.Fatalf("pending appointment must drop out of the view")
	}

	anyStatus, empty := filter.StatusAll, ""
	s.SetFilters(filter.Patch{Status: &anyStatus, Search: &empty})
	if len(s.Filtered()) != 3 {
		t.Fatalf("cleared filters should show all, got %d", len(s.Filtered()))
	}
	assertConsistent(t, s)
}

type gateFunc func(salonID, staffID string, start, end time.Time) bool

func (f gateFunc) Overlaps(_ context.Context, salonID, staffID string, start, end time.Time) (bool, error) {
	return f(salonID, staffID, start, end), nil
}

func TestBlockGate(t *testing.T) {
	gate := gateFunc(func(_, staffID string, start, end time.Time) bool {
		return staffID == "s1" && availability.Overlaps(start, end, day(12, 0), day(13, 0))
	})
	s, _ := newTestStore(t, Options{Blocks: gate})
	ctx := context.Background()

	_, err := s.Add(ctx, draft("Anna", "s1", day(12, 30), day(13, 30)))
	if !errors.Is(err, ErrStaffBlocked) || !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected staff blocked conflict, got %v", err)
	}
	if _, err := s.Add(ctx, draft("Anna", "s1", day(13, 0), day(14, 0))); err != nil {
		t.Fatalf("after the block ends booking should succeed: %v", err)
	}
	if _, err := s.Add(ctx, draft("Bruno", "", day(12, 0), day(13, 0))); err != nil {
		t.Fatalf("unassigned bookings are not gated: %v", err)
	}
}

func TestLatencyCancelledByContext(t *testing.T) {
	s, _ := newTestStore(t, Options{Latency: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if s.Loading() {
		t.Fatalf("loading must be cleared after a failed operation")
	}
	if len(s.All()) != 0 {
		t.Fatalf("cancelled add must not be stored")
	}
}

func TestLoadingWhileInFlight(t *testing.T) {
	s, _ := newTestStore(t, Options{Latency: 50 * time.Millisecond})
	done := make(chan error, 1)
	go func() {
		_, err := s.Add(context.Background(), draft("Anna", "s1", day(9, 0), day(10, 0)))
		done <- err
	}()

	deadline := time.After(time.Second)
	for !s.Loading() {
		select {
		case <-deadline:
			t.Fatalf("operation never reported loading")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.Loading() {
		t.Fatalf("loading must settle")
	}
}

func TestConcurrentAddsKeepLaneExclusive(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Add(ctx, draft("Anna", "s1", day(9, 0), day(10, 0))); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if success != 1 {
		t.Fatalf("exactly one concurrent booking should win, got %d", success)
	}
}

func TestSelection(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	a, _ := s.Add(context.Background(), draft("Anna", "s1", day(9, 0), day(10, 0)))

	if _, err := s.Select("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Select(a.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	cur, ok := s.Current()
	if !ok || cur.ID != a.ID {
		t.Fatalf("unexpected current %+v", cur)
	}
	s.ClearSelection()
	if _, ok := s.Current(); ok {
		t.Fatalf("selection should be empty")
	}
}

func appointmentFrom(id string, d Draft) model.Appointment {
	return model.Appointment{
		ID: id, SalonID: d.SalonID, ClientName: d.ClientName, Start: d.Start, End: d.End,
		Staff: d.Staff, Status: model.StatusConfirmed, Title: model.DisplayTitle(d.Title, d.Service),
	}
}
