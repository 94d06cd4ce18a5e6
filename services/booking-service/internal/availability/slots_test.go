package availability

import (
	"testing"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

func TestAvailableSlotsAroundBookedLane(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	appts := []model.Appointment{
		appt("a", "s1", day.Add(9*time.Hour+15*time.Minute), day.Add(9*time.Hour+45*time.Minute)),
		appt("b", "s2", day.Add(9*time.Hour), day.Add(10*time.Hour)),
	}

	busy := Busy(appts, "sa1", model.AssignedTo("s1"))
	if len(busy) != 1 {
		t.Fatalf("expected only s1 busy interval, got %d", len(busy))
	}

	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour)) || !slots[1].Equal(day.Add(9*time.Hour+45*time.Minute)) {
		t.Fatalf("unexpected slots %v", slots)
	}
}

func TestAvailableSlotsSkipsPast(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	now := day.Add(9*time.Hour + 31*time.Minute)

	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, nil, now)
	if len(slots) != 1 || !slots[0].Equal(day.Add(9*time.Hour+45*time.Minute)) {
		t.Fatalf("expected only 09:45, got %v", slots)
	}
}

func TestAvailableSlotsRejectsDegenerateWindow(t *testing.T) {
	day := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	if got := AvailableSlots(day, day.Add(20*time.Minute), 30*time.Minute, 15*time.Minute, nil, day); got != nil {
		t.Fatalf("expected no slots when duration exceeds window, got %v", got)
	}
	if got := AvailableSlots(day, day.Add(time.Hour), 0, 15*time.Minute, nil, day); got != nil {
		t.Fatalf("expected no slots for zero duration, got %v", got)
	}
}
