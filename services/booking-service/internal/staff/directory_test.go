package staff

import (
	"context"
	"errors"
	"testing"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory(
		model.StaffResource{ID: "s2", SalonID: "sa1", Name: "bea", Active: true, VisibleInCalendar: true},
		model.StaffResource{ID: "s1", SalonID: "sa1", Name: "Anna", Active: true, VisibleInCalendar: true},
		model.StaffResource{ID: "s3", SalonID: "sa1", Name: "Carlo", Active: false, VisibleInCalendar: true},
		model.StaffResource{ID: "s9", SalonID: "sa2", Name: "Other"},
	)

	all, _ := d.List(ctx, "sa1")
	if len(all) != 3 || all[0].ID != "s1" || all[1].ID != "s2" {
		t.Fatalf("expected case-insensitive name order, got %+v", all)
	}
	if got := Schedulable(all); len(got) != 2 {
		t.Fatalf("inactive staff must not get a column, got %d", len(got))
	}

	if err := d.SetVisible(ctx, "sa1", "s2", false); err != nil {
		t.Fatalf("set visible: %v", err)
	}
	s2, _ := d.Get(ctx, "sa1", "s2")
	if s2.VisibleInCalendar {
		t.Fatalf("expected s2 hidden")
	}
	if err := d.SetVisible(ctx, "sa1", "s9", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("staff of another salon must not be found, got %v", err)
	}
}
