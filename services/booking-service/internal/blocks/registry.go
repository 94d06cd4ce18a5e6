// Package blocks owns staff time blocks: windows during which a staff member
// cannot be booked.
package blocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

const (
	dateLayout  = time.DateOnly
	clockLayout = "15:04"
)

var ErrInvalidBlock = errors.New("invalid block")

// NewBlock is the input of AddBlock. EndDate defaults to StartDate.
type NewBlock struct {
	SalonID   string `json:"salon_id"`
	StaffID   string `json:"staff_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
	CreatedBy string `json:"-"`
}

type Options struct {
	Logger *slog.Logger
	// Location interprets block dates and times. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
	NewID    func() string
}

// Registry is the only writer of block records.
type Registry struct {
	store  BlockStore
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
	newID  func() string
}

func NewRegistry(store BlockStore, opts Options) *Registry {
	r := &Registry{store: store, logger: opts.Logger, loc: opts.Location, now: opts.Now, newID: opts.NewID}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r
}

func (r *Registry) Location() *time.Location { return r.loc }

// AddBlock stores a valid block. Overlapping blocks for the same staff are allowed.
func (r *Registry) AddBlock(ctx context.Context, nb NewBlock) (model.StaffBlockTime, error) {
	b := model.StaffBlockTime{
		SalonID:   strings.TrimSpace(nb.SalonID),
		StaffID:   strings.TrimSpace(nb.StaffID),
		StartDate: strings.TrimSpace(nb.StartDate),
		EndDate:   strings.TrimSpace(nb.EndDate),
		StartTime: strings.TrimSpace(nb.StartTime),
		EndTime:   strings.TrimSpace(nb.EndTime),
		Reason:    strings.TrimSpace(nb.Reason),
		CreatedBy: strings.TrimSpace(nb.CreatedBy),
	}
	if b.EndDate == "" {
		b.EndDate = b.StartDate
	}
	if err := validate(b); err != nil {
		return model.StaffBlockTime{}, err
	}
	b.ID = r.newID()
	b.CreatedAt = r.now().UTC()

	if err := r.store.Put(ctx, b); err != nil {
		return model.StaffBlockTime{}, err
	}
	r.logger.Info("staff block added", "salon_id", b.SalonID, "staff_id", b.StaffID, "block_id", b.ID,
		"start_date", b.StartDate, "end_date", b.EndDate)
	return b, nil
}

// RemoveBlock deletes id; an unknown id is a no-op.
func (r *Registry) RemoveBlock(ctx context.Context, salonID, id string) error {
	if err := r.store.Delete(ctx, salonID, strings.TrimSpace(id)); err != nil {
		return err
	}
	r.logger.Info("staff block removed", "salon_id", salonID, "block_id", id)
	return nil
}

// All lists every block of the salon.
func (r *Registry) All(ctx context.Context, salonID string) ([]model.StaffBlockTime, error) {
	return r.store.List(ctx, salonID)
}

// BlocksFor returns the staff member's blocks whether past, current or future.
func (r *Registry) BlocksFor(ctx context.Context, salonID, staffID string) ([]model.StaffBlockTime, error) {
	all, err := r.store.List(ctx, salonID)
	if err != nil {
		return nil, err
	}
	out := make([]model.StaffBlockTime, 0, len(all))
	for _, b := range all {
		if b.StaffID == staffID {
			out = append(out, b)
		}
	}
	return out, nil
}

// IsBlocked reports whether at falls inside one of the staff member's blocks:
// its date within [StartDate, EndDate] and its time of day within [StartTime, EndTime).
func (r *Registry) IsBlocked(ctx context.Context, salonID, staffID string, at time.Time) (bool, error) {
	bs, err := r.BlocksFor(ctx, salonID, staffID)
	if err != nil {
		return false, err
	}
	for _, b := range bs {
		if Covers(b, at, r.loc) {
			return true, nil
		}
	}
	return false, nil
}

// Overlaps reports whether [start, end) intersects any block of the staff member.
func (r *Registry) Overlaps(ctx context.Context, salonID, staffID string, start, end time.Time) (bool, error) {
	bs, err := r.BlocksFor(ctx, salonID, staffID)
	if err != nil {
		return false, err
	}
	for _, b := range bs {
		for _, w := range Windows(b, r.loc) {
			if start.Before(w.End) && w.Start.Before(end) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Covers is IsBlocked for a single block.
func Covers(b model.StaffBlockTime, at time.Time, loc *time.Location) bool {
	at = at.In(loc)
	date := at.Format(dateLayout)
	if date < b.StartDate || date > b.EndDate {
		return false
	}
	minute := at.Hour()*60 + at.Minute()
	from, err1 := minuteOfDay(b.StartTime)
	to, err2 := minuteOfDay(b.EndTime)
	if err1 != nil || err2 != nil {
		return false
	}
	return minute >= from && minute < to
}

// Window is one day's slice of a block.
type Window struct {
	Start time.Time
	End   time.Time
}

// Windows expands a block into one window per covered day.
func Windows(b model.StaffBlockTime, loc *time.Location) []Window {
	first, err := time.ParseInLocation(dateLayout, b.StartDate, loc)
	if err != nil {
		return nil
	}
	last, err := time.ParseInLocation(dateLayout, b.EndDate, loc)
	if err != nil {
		return nil
	}
	from, err1 := minuteOfDay(b.StartTime)
	to, err2 := minuteOfDay(b.EndTime)
	if err1 != nil || err2 != nil {
		return nil
	}

	var out []Window
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, Window{
			Start: atMinute(d, from, loc),
			End:   atMinute(d, to, loc),
		})
	}
	return out
}

func atMinute(d time.Time, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), minute/60, minute%60, 0, 0, loc)
}

func minuteOfDay(clock string) (int, error) {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func validate(b model.StaffBlockTime) error {
	switch {
	case b.SalonID == "":
		return fmt.Errorf("%w: salon_id is required", ErrInvalidBlock)
	case b.StaffID == "":
		return fmt.Errorf("%w: staff_id is required", ErrInvalidBlock)
	}
	start, err := time.Parse(dateLayout, b.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidBlock)
	}
	end, err := time.Parse(dateLayout, b.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidBlock)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidBlock)
	}
	from, err := minuteOfDay(b.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidBlock)
	}
	to, err := minuteOfDay(b.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end_time must be HH:MM", ErrInvalidBlock)
	}
	if to <= from {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidBlock)
	}
	return nil
}
