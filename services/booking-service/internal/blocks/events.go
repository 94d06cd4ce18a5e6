package blocks

import (
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

const (
	BackgroundColor = "#f3d6d6"
	defaultTooltip  = "Blocked"
)

// BackgroundEvent is how the calendar draws a block: behind the appointments and
// not draggable, resizable or selectable.
type BackgroundEvent struct {
	ID         string    `json:"id"`
	BlockID    string    `json:"block_id"`
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Color      string    `json:"color"`
	Tooltip    string    `json:"tooltip"`
	Display    string    `json:"display"`
	Editable   bool      `json:"editable"`
}

// BackgroundEvents projects blocks into one background event per covered day.
func BackgroundEvents(bs []model.StaffBlockTime, loc *time.Location) []BackgroundEvent {
	var out []BackgroundEvent
	for _, b := range bs {
		tooltip := defaultTooltip
		if b.Reason != "" {
			tooltip = defaultTooltip + ": " + b.Reason
		}
		for _, w := range Windows(b, loc) {
			out = append(out, BackgroundEvent{
				ID:         b.ID + "@" + w.Start.Format(dateLayout),
				BlockID:    b.ID,
				ResourceID: b.StaffID,
				Start:      w.Start,
				End:        w.End,
				Color:      BackgroundColor,
				Tooltip:    tooltip,
				Display:    "background",
			})
		}
	}
	return out
}

// Within keeps the events that intersect [from, to).
func Within(events []BackgroundEvent, from, to time.Time) []BackgroundEvent {
	var out []BackgroundEvent
	for _, e := range events {
		if e.Start.Before(to) && from.Before(e.End) {
			out = append(out, e)
		}
	}
	return out
}
