package calendar

import (
	"fmt"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/blocks"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

const UnassignedColumn = "unassigned"

type Event struct {
	ID         string       `json:"id"`
	ResourceID string       `json:"resource_id"`
	Title      string       `json:"title"`
	ClientName string       `json:"client_name"`
	Start      time.Time    `json:"start"`
	End        time.Time    `json:"end"`
	Status     model.Status `json:"status"`
	Color      string       `json:"color,omitempty"`
	Editable   bool         `json:"editable"`
}

type Column struct {
	ResourceID string                   `json:"resource_id"`
	Name       string                   `json:"name"`
	Color      string                   `json:"color,omitempty"`
	Events     []Event                  `json:"events"`
	Background []blocks.BackgroundEvent `json:"background"`
}

type SlotLabel struct {
	Label  string  `json:"label"`
	Offset float64 `json:"offset"`
}

type View struct {
	Date         string      `json:"date"`
	Columns      []Column    `json:"columns"`
	Axis         []SlotLabel `json:"axis"`
	ScrollOffset float64     `json:"scroll_offset"`
}

type ViewOptions struct {
	SlotMinutes     int
	PixelsPerMinute float64
}

// BuildView lays out one day: a column per schedulable resource, plus one for
// unassigned appointments when the day has any. Appointments of hidden staff
// are left out.
func BuildView(resources []model.StaffResource, appts []model.Appointment, bg []blocks.BackgroundEvent, day time.Time, loc *time.Location, opts ViewOptions) View {
	if loc == nil {
		loc = time.UTC
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 30
	}
	if opts.PixelsPerMinute <= 0 {
		opts.PixelsPerMinute = 2
	}
	day = day.In(loc)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	var cols []model.StaffResource
	for _, r := range resources {
		if r.Schedulable() {
			cols = append(cols, r)
		}
	}

	index := make(map[string]int, len(cols))
	view := View{Date: from.Format(time.DateOnly), Columns: make([]Column, 0, len(cols)+1)}
	for i, r := range cols {
		index[r.ID] = i
		view.Columns = append(view.Columns, Column{ResourceID: r.ID, Name: r.Name, Color: r.Color, Events: []Event{}, Background: []blocks.BackgroundEvent{}})
	}

	var unassigned []Event
	for _, a := range appts {
		if !a.Start.Before(to) || !from.Before(a.End) {
			continue
		}
		ev := Event{
			ID:         a.ID,
			Title:      a.Title,
			ClientName: a.ClientName,
			Start:      a.Start.In(loc),
			End:        a.End.In(loc),
			Status:     a.Status,
			Editable:   a.Status == model.StatusPending || a.Status == model.StatusConfirmed,
		}
		staffID, ok := a.Staff.ID()
		if !ok {
			ev.ResourceID = UnassignedColumn
			unassigned = append(unassigned, ev)
			continue
		}
		i, shown := index[staffID]
		if !shown {
			continue
		}
		ev.ResourceID = staffID
		ev.Color = view.Columns[i].Color
		view.Columns[i].Events = append(view.Columns[i].Events, ev)
	}
	for _, e := range blocks.Within(bg, from, to) {
		if i, ok := index[e.ResourceID]; ok {
			view.Columns[i].Background = append(view.Columns[i].Background, e)
		}
	}
	if len(unassigned) > 0 {
		view.Columns = append(view.Columns, Column{ResourceID: UnassignedColumn, Name: "Unassigned", Events: unassigned, Background: []blocks.BackgroundEvent{}})
	}

	opens, closes := WorkingHours(cols)
	for m := opens; m < closes; m += opts.SlotMinutes {
		view.Axis = append(view.Axis, SlotLabel{
			Label:  fmt.Sprintf("%02d:%02d", m/60, m%60),
			Offset: float64(m-opens) * opts.PixelsPerMinute,
		})
	}
	return view
}
