// Package filter narrows an appointment list to what the calendar currently shows.
package filter

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

// StatusAll disables status filtering, same as an empty status.
const StatusAll model.Status = "all"

// Criteria is a value object; the zero value matches everything.
// To is inclusive through the end of its calendar day.
type Criteria struct {
	Status  model.Status `json:"status,omitempty"`
	From    time.Time    `json:"from,omitempty"`
	To      time.Time    `json:"to,omitempty"`
	StaffID string       `json:"staff_id,omitempty"`
	Search  string       `json:"search,omitempty"`
}

// Patch carries a partial update: nil leaves a field alone, a pointer to the zero
// value clears it.
type Patch struct {
	Status  *model.Status `json:"status,omitempty"`
	From    *time.Time    `json:"from,omitempty"`
	To      *time.Time    `json:"to,omitempty"`
	StaffID *string       `json:"staff_id,omitempty"`
	Search  *string       `json:"search,omitempty"`
}

func (c Criteria) Merge(p Patch) Criteria {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.From != nil {
		c.From = *p.From
	}
	if p.To != nil {
		c.To = *p.To
	}
	if p.StaffID != nil {
		c.StaffID = strings.TrimSpace(*p.StaffID)
	}
	if p.Search != nil {
		c.Search = strings.TrimSpace(*p.Search)
	}
	return c
}

// IsZero reports whether no criterion is active.
func (c Criteria) IsZero() bool {
	return !c.statusActive() && c.From.IsZero() && c.To.IsZero() && c.StaffID == "" && c.Search == ""
}

func (c Criteria) statusActive() bool {
	return c.Status != "" && c.Status != StatusAll
}

// Matches builds the predicate for c. Checks run status, date range, staff,
// then search, stopping at the first failure.
func Matches(c Criteria) func(model.Appointment) bool {
	var upper time.Time
	if !c.To.IsZero() {
		upper = endOfDay(c.To)
	}
	term := strings.ToLower(strings.TrimSpace(c.Search))

	return func(a model.Appointment) bool {
		if c.statusActive() && a.Status != c.Status {
			return false
		}
		if !c.From.IsZero() && a.Start.Before(c.From) {
			return false
		}
		if !upper.IsZero() && a.Start.After(upper) {
			return false
		}
		if c.StaffID != "" {
			if id, ok := a.Staff.ID(); !ok || id != c.StaffID {
				return false
			}
		}
		if term != "" && !containsFold(term, a.ClientName, a.Service, a.Notes) {
			return false
		}
		return true
	}
}

// Apply returns the matching appointments in their original order.
func Apply(c Criteria, appts []model.Appointment) []model.Appointment {
	match := Matches(c)
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

// FromQuery reads status, from, to, staff_id and search. Dates accept RFC3339 or
// YYYY-MM-DD (interpreted in loc).
func FromQuery(q url.Values, loc *time.Location) (Criteria, error) {
	c := Criteria{
		Status:  model.Status(strings.TrimSpace(q.Get("status"))),
		StaffID: strings.TrimSpace(q.Get("staff_id")),
		Search:  strings.TrimSpace(q.Get("search")),
	}
	var err error
	if c.From, err = parseBound(q.Get("from"), loc); err != nil {
		return Criteria{}, err
	}
	if c.To, err = parseBound(q.Get("to"), loc); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// RawPatch is the wire form of a Patch: nil leaves a field alone and "" clears
// it. Dates use the same formats as FromQuery.
type RawPatch struct {
	Status  *string `json:"status"`
	From    *string `json:"from"`
	To      *string `json:"to"`
	StaffID *string `json:"staff_id"`
	Search  *string `json:"search"`
}

func (r RawPatch) Parse(loc *time.Location) (Patch, error) {
	var p Patch
	if r.Status != nil {
		st := model.Status(strings.TrimSpace(*r.Status))
		if st != "" && st != StatusAll && !st.Valid() {
			return Patch{}, fmt.Errorf("unknown status %q", st)
		}
		p.Status = &st
	}
	for _, b := range []struct {
		raw *string
		dst **time.Time
	}{{r.From, &p.From}, {r.To, &p.To}} {
		if b.raw == nil {
			continue
		}
		t, err := parseBound(*b.raw, loc)
		if err != nil {
			return Patch{}, err
		}
		*b.dst = &t
	}
	p.StaffID = r.StaffID
	p.Search = r.Search
	return p, nil
}

func parseBound(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, raw, loc)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func containsFold(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
