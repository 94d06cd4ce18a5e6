package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
	"github.com/salonhub/scheduling/services/booking-service/internal/store"
)

var ErrNoEdit = errors.New("no drag or resize in progress")

type Outcome int

const (
	Committed Outcome = iota + 1
	Reverted
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Reverted:
		return "reverted"
	}
	return "unknown"
}

type Edge int

const (
	EdgeEnd Edge = iota
	EdgeStart
)

// Result is the settled edit. On Reverted, Appointment is the original
// placement and Err tells why the store refused the change.
type Result struct {
	Outcome     Outcome
	Appointment model.Appointment
	Err         error
}

type editKind int

const (
	dragging editKind = iota + 1
	resizing
)

// Editor turns drag and resize gestures into store updates. Each gesture is
// validated like any other update, block gate included.
type Editor struct {
	store *store.Store

	mu       sync.Mutex
	kind     editKind
	edge     Edge
	original model.Appointment
}

func NewEditor(s *store.Store) *Editor {
	return &Editor{store: s}
}

// BeginDrag snapshots the appointment so a rejected drop can restore it.
func (e *Editor) BeginDrag(id string) error {
	return e.begin(id, dragging, EdgeEnd)
}

func (e *Editor) BeginResize(id string, edge Edge) error {
	return e.begin(id, resizing, edge)
}

func (e *Editor) begin(id string, kind editKind, edge Edge) error {
	a, ok := e.store.Get(id)
	if !ok {
		return store.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kind, e.edge, e.original = kind, edge, a
	return nil
}

// Drop moves the dragged appointment to staff at start, keeping its duration.
func (e *Editor) Drop(ctx context.Context, staff model.StaffRef, start time.Time) (Result, error) {
	orig, err := e.take(dragging)
	if err != nil {
		return Result{}, err
	}
	moved := orig
	moved.Staff = staff
	moved.Start = start
	moved.End = start.Add(orig.Duration())
	return e.commit(ctx, orig, moved), nil
}

// ResizeTo moves the grabbed edge to t.
func (e *Editor) ResizeTo(ctx context.Context, t time.Time) (Result, error) {
	e.mu.Lock()
	edge := e.edge
	e.mu.Unlock()
	orig, err := e.take(resizing)
	if err != nil {
		return Result{}, err
	}
	resized := orig
	if edge == EdgeStart {
		resized.Start = t
	} else {
		resized.End = t
	}
	return e.commit(ctx, orig, resized), nil
}

// Cancel abandons the gesture without touching the store.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kind = 0
}

func (e *Editor) take(kind editKind) (model.Appointment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.kind != kind {
		return model.Appointment{}, ErrNoEdit
	}
	e.kind = 0
	return e.original, nil
}

func (e *Editor) commit(ctx context.Context, orig, next model.Appointment) Result {
	saved, err := e.store.Update(ctx, next)
	if err != nil {
		return Result{Outcome: Reverted, Appointment: orig, Err: err}
	}
	return Result{Outcome: Committed, Appointment: saved}
}
