// Package calendar drives the multi-staff day grid: column scroll sync, drag and
// resize edits and the day view projection.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

type State int

const (
	Uninitialized State = iota
	Initialized
	Scrolling
	Idle
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Scrolling:
		return "scrolling"
	case Idle:
		return "idle"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrNotMounted = errors.New("calendar grid is not mounted")
	ErrDisposed   = errors.New("calendar grid is disposed")
)

type GridOptions struct {
	Frames FrameScheduler
	Now    func() time.Time
	// Location is the salon's wall clock for working hours.
	Location *time.Location
	// PixelsPerMinute converts time offsets to scroll offsets.
	PixelsPerMinute float64
	// Lead keeps this much time visible above now when auto-scrolling.
	Lead time.Duration
}

// Grid keeps every staff column's vertical offset equal to the time axis. The
// axis is the only scrolling element; staff columns are moved with a translate
// transform applied once per frame.
type Grid struct {
	frames FrameScheduler
	now    func() time.Time
	loc    *time.Location
	ppm    float64
	lead   time.Duration

	mu           sync.Mutex
	state        State
	generation   uint64
	columns      []model.StaffResource
	offset       float64
	transforms   map[string]float64
	framePending bool
	userScrolled bool
	autoScrolled bool
}

func NewGrid(opts GridOptions) *Grid {
	g := &Grid{
		frames: opts.Frames,
		now:    opts.Now,
		loc:    opts.Location,
		ppm:    opts.PixelsPerMinute,
		lead:   opts.Lead,
	}
	if g.frames == nil {
		g.frames = SyncFrames{}
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	if g.ppm <= 0 {
		g.ppm = 2
	}
	if g.lead < 0 {
		g.lead = 0
	}
	return g
}

// Mount shows the schedulable resources and attempts the initial auto-scroll.
func (g *Grid) Mount(resources []model.StaffResource) error {
	g.mu.Lock()
	if g.state == Disposed {
		g.mu.Unlock()
		return ErrDisposed
	}
	g.setColumnsLocked(resources)
	g.state = Initialized
	g.autoScrolled = false
	g.userScrolled = false
	g.mu.Unlock()

	g.AutoScroll()
	return nil
}

// LoadResources fetches columns asynchronously. A result arriving after Dispose
// or after a newer load started is discarded.
func (g *Grid) LoadResources(ctx context.Context, load func(context.Context) ([]model.StaffResource, error)) error {
	g.mu.Lock()
	if g.state == Disposed {
		g.mu.Unlock()
		return ErrDisposed
	}
	g.generation++
	gen := g.generation
	g.mu.Unlock()

	resources, err := load(ctx)
	if err != nil {
		return fmt.Errorf("load resources: %w", err)
	}

	g.mu.Lock()
	if g.state == Disposed || g.generation != gen {
		g.mu.Unlock()
		return ErrDisposed
	}
	if g.state != Uninitialized {
		g.setColumnsLocked(resources)
		g.mu.Unlock()
		g.requestFrame()
		return nil
	}
	g.mu.Unlock()
	return g.Mount(resources)
}

// Dispose detaches the grid; later scroll events and loads are ignored.
func (g *Grid) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Disposed
	g.generation++
	g.columns = nil
	g.transforms = nil
}

// OnMasterScroll records a user scroll of the time axis. Several events
// before the next frame collapse into one transform update.
func (g *Grid) OnMasterScroll(offset float64) error {
	g.mu.Lock()
	switch g.state {
	case Uninitialized:
		g.mu.Unlock()
		return ErrNotMounted
	case Disposed:
		g.mu.Unlock()
		return ErrDisposed
	}
	g.userScrolled = true
	g.mu.Unlock()
	g.scrollTo(offset)
	return nil
}

// AutoScroll brings the current time into view once per mount, only while now
// is inside working hours and only if the user never scrolled by hand.
func (g *Grid) AutoScroll() bool {
	g.mu.Lock()
	if g.state == Uninitialized || g.state == Disposed || g.userScrolled || g.autoScrolled {
		g.mu.Unlock()
		return false
	}
	opens, closes := WorkingHours(g.columns)
	now := g.now().In(g.loc)
	minute := now.Hour()*60 + now.Minute()
	if minute < opens || minute >= closes {
		g.mu.Unlock()
		return false
	}
	g.autoScrolled = true
	target := float64(minute-opens-int(g.lead/time.Minute)) * g.ppm
	if target < 0 {
		target = 0
	}
	g.mu.Unlock()

	g.scrollTo(target)
	return true
}

// Frame applies the pending axis offset to every staff column.
func (g *Grid) Frame() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.framePending = false
	if g.state == Disposed || g.state == Uninitialized {
		return
	}
	for _, c := range g.columns {
		g.transforms[c.ID] = -g.offset
	}
	g.state = Idle
}

func (g *Grid) scrollTo(offset float64) {
	g.mu.Lock()
	g.offset = offset
	g.state = Scrolling
	g.mu.Unlock()
	g.requestFrame()
}

func (g *Grid) requestFrame() {
	g.mu.Lock()
	if g.framePending {
		g.mu.Unlock()
		return
	}
	g.framePending = true
	g.mu.Unlock()
	g.frames.RequestFrame(g.Frame)
}

func (g *Grid) setColumnsLocked(resources []model.StaffResource) {
	g.columns = g.columns[:0]
	for _, r := range resources {
		if r.Schedulable() {
			g.columns = append(g.columns, r)
		}
	}
	transforms := make(map[string]float64, len(g.columns))
	for _, c := range g.columns {
		transforms[c.ID] = g.transforms[c.ID]
	}
	g.transforms = transforms
}

func (g *Grid) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Grid) UserScrolled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.userScrolled
}

// Offset is the time axis scroll position.
func (g *Grid) Offset() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.offset
}

// Columns returns the ids of the shown staff columns in display order.
func (g *Grid) Columns() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, len(g.columns))
	for i, c := range g.columns {
		ids[i] = c.ID
	}
	return ids
}

// Transform is the CSS transform for a staff column.
func (g *Grid) Transform(columnID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("translateY(%gpx)", g.transforms[columnID])
}

// Translation is the applied vertical shift of a staff column.
func (g *Grid) Translation(columnID string) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.transforms[columnID]
	return v, ok
}

const (
	defaultOpen  = 8 * 60
	defaultClose = 20 * 60
)

// WorkingHours is the union of the columns' hours in minutes of day.
func WorkingHours(columns []model.StaffResource) (opens, closes int) {
	opens, closes = -1, -1
	for _, c := range columns {
		if s, err := minuteOfDay(c.WorkStart); err == nil && (opens < 0 || s < opens) {
			opens = s
		}
		if e, err := minuteOfDay(c.WorkEnd); err == nil && e > closes {
			closes = e
		}
	}
	if opens < 0 {
		opens = defaultOpen
	}
	if closes <= opens {
		closes = defaultClose
		if closes <= opens {
			closes = 24 * 60
		}
	}
	return opens, closes
}

func minuteOfDay(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
