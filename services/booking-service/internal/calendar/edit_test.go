package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
	"github.com/salonhub/scheduling/services/booking-service/internal/store"
)

func at(hh, mm int) time.Time {
	return time.Date(2025, 6, 1, hh, mm, 0, 0, time.UTC)
}

func seededStore(t *testing.T) (*store.Store, model.Appointment, model.Appointment) {
	t.Helper()
	s := store.New("sa1", store.NewMemoryRepository(), store.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	ctx := context.Background()
	a, err := s.Add(ctx, store.Draft{SalonID: "sa1", ClientName: "Anna", Start: at(9, 0), End: at(10, 0), Staff: model.AssignedTo("s1")})
	if err != nil {
		t.Fatalf("seed a: %v", err)
	}
	b, err := s.Add(ctx, store.Draft{SalonID: "sa1", ClientName: "Bruno", Start: at(11, 0), End: at(12, 0), Staff: model.AssignedTo("s2")})
	if err != nil {
		t.Fatalf("seed b: %v", err)
	}
	return s, a, b
}

func TestDropCommitsAndKeepsDuration(t *testing.T) {
	s, a, _ := seededStore(t)
	ed := NewEditor(s)

	if err := ed.BeginDrag(a.ID); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	res, err := ed.Drop(context.Background(), model.AssignedTo("s2"), at(14, 0))
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if res.Outcome != Committed {
		t.Fatalf("expected committed, got %s (%v)", res.Outcome, res.Err)
	}
	got, _ := s.Get(a.ID)
	if !got.Start.Equal(at(14, 0)) || !got.End.Equal(at(15, 0)) || got.Staff.Lane() != "s2" {
		t.Fatalf("unexpected placement %+v", got)
	}
}

func TestDropOntoConflictReverts(t *testing.T) {
	s, a, _ := seededStore(t)
	ed := NewEditor(s)

	ed.BeginDrag(a.ID)
	res, err := ed.Drop(context.Background(), model.AssignedTo("s2"), at(11, 30))
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if res.Outcome != Reverted || !errors.Is(res.Err, store.ErrSlotConflict) {
		t.Fatalf("expected reverted conflict, got %s %v", res.Outcome, res.Err)
	}
	if !res.Appointment.Start.Equal(a.Start) || res.Appointment.Staff.Lane() != "s1" {
		t.Fatalf("reverted result must carry the original placement, got %+v", res.Appointment)
	}
	got, _ := s.Get(a.ID)
	if !got.Start.Equal(a.Start) {
		t.Fatalf("store must keep original placement")
	}
}

func TestResize(t *testing.T) {
	s, a, _ := seededStore(t)
	ed := NewEditor(s)
	ctx := context.Background()

	ed.BeginResize(a.ID, EdgeEnd)
	res, _ := ed.ResizeTo(ctx, at(10, 30))
	if res.Outcome != Committed || res.Appointment.Duration() != 90*time.Minute {
		t.Fatalf("expected 90 minute appointment, got %s %v", res.Outcome, res.Appointment.Duration())
	}

	ed.BeginResize(a.ID, EdgeStart)
	res, _ = ed.ResizeTo(ctx, at(11, 0))
	if res.Outcome != Reverted || !errors.Is(res.Err, store.ErrValidation) {
		t.Fatalf("start past end must revert with validation error, got %s %v", res.Outcome, res.Err)
	}
}

func TestEditorWithoutGesture(t *testing.T) {
	s, a, _ := seededStore(t)
	ed := NewEditor(s)

	if _, err := ed.Drop(context.Background(), model.Unassigned(), at(8, 0)); !errors.Is(err, ErrNoEdit) {
		t.Fatalf("expected no edit, got %v", err)
	}
	ed.BeginDrag(a.ID)
	if _, err := ed.ResizeTo(context.Background(), at(8, 0)); !errors.Is(err, ErrNoEdit) {
		t.Fatalf("resize during drag must fail, got %v", err)
	}
	ed.Cancel()
	if _, err := ed.Drop(context.Background(), model.Unassigned(), at(8, 0)); !errors.Is(err, ErrNoEdit) {
		t.Fatalf("cancelled drag must not drop, got %v", err)
	}
	if err := ed.BeginDrag("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
