package blocks

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewMemoryBlockStore(), Options{
		Now: func() time.Time { return time.Date(2025, 5, 30, 8, 0, 0, 0, time.UTC) },
	})
}

func lunch(staff string) NewBlock {
	return NewBlock{SalonID: "sa1", StaffID: staff, StartDate: "2025-06-01", StartTime: "12:00", EndTime: "13:00", Reason: "lunch"}
}

func TestIsBlockedEndExclusive(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	if _, err := r.AddBlock(ctx, lunch("s1")); err != nil {
		t.Fatalf("add: %v", err)
	}

	cases := []struct {
		staff string
		at    time.Time
		want  bool
	}{
		{"s1", time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC), true},
		{"s1", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{"s1", time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC), false},
		{"s1", time.Date(2025, 6, 2, 12, 30, 0, 0, time.UTC), false},
		{"s2", time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		got, err := r.IsBlocked(ctx, "sa1", tc.staff, tc.at)
		if err != nil {
			t.Fatalf("is blocked: %v", err)
		}
		if got != tc.want {
			t.Fatalf("IsBlocked(%s, %s) = %v, want %v", tc.staff, tc.at, got, tc.want)
		}
	}
}

func TestDateRangeBlock(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	nb := lunch("s1")
	nb.EndDate = "2025-06-03"
	b, err := r.AddBlock(ctx, nb)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if b.ID == "" || b.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at, got %+v", b)
	}
	for d := 1; d <= 3; d++ {
		ok, _ := r.IsBlocked(ctx, "sa1", "s1", time.Date(2025, 6, d, 12, 15, 0, 0, time.UTC))
		if !ok {
			t.Fatalf("day %d should be blocked", d)
		}
	}
	if ok, _ := r.IsBlocked(ctx, "sa1", "s1", time.Date(2025, 6, 4, 12, 15, 0, 0, time.UTC)); ok {
		t.Fatalf("day after the range should be free")
	}
}

func TestRemoveMissingBlockIsNoop(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	b, _ := r.AddBlock(ctx, lunch("s1"))

	if err := r.RemoveBlock(ctx, "sa1", "does-not-exist"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	bs, _ := r.BlocksFor(ctx, "sa1", "s1")
	if len(bs) != 1 || bs[0].ID != b.ID {
		t.Fatalf("block list changed: %+v", bs)
	}

	if err := r.RemoveBlock(ctx, "sa1", b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	bs, _ = r.BlocksFor(ctx, "sa1", "s1")
	if len(bs) != 0 {
		t.Fatalf("expected empty list, got %d", len(bs))
	}
}

func TestOverlappingBlocksAllowed(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	r.AddBlock(ctx, lunch("s1"))
	if _, err := r.AddBlock(ctx, lunch("s1")); err != nil {
		t.Fatalf("duplicate block should be accepted: %v", err)
	}
	bs, _ := r.BlocksFor(ctx, "sa1", "s1")
	if len(bs) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(bs))
	}
}

func TestAddBlockValidation(t *testing.T) {
	r := newTestRegistry()
	cases := map[string]func(*NewBlock){
		"missing staff":  func(b *NewBlock) { b.StaffID = "" },
		"bad date":       func(b *NewBlock) { b.StartDate = "01/06/2025" },
		"bad time":       func(b *NewBlock) { b.StartTime = "noon" },
		"end before":     func(b *NewBlock) { b.EndTime = "11:00" },
		"empty range":    func(b *NewBlock) { b.EndTime = "12:00" },
		"dates reversed": func(b *NewBlock) { b.EndDate = "2025-05-31" },
		"missing salon":  func(b *NewBlock) { b.SalonID = "" },
	}
	for name, mutate := range cases {
		nb := lunch("s1")
		mutate(&nb)
		if _, err := r.AddBlock(context.Background(), nb); !errors.Is(err, ErrInvalidBlock) {
			t.Fatalf("%s: expected invalid block, got %v", name, err)
		}
	}
}

func TestOverlapsGate(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	r.AddBlock(ctx, lunch("s1"))

	at := func(hh, mm int) time.Time { return time.Date(2025, 6, 1, hh, mm, 0, 0, time.UTC) }
	if ok, _ := r.Overlaps(ctx, "sa1", "s1", at(11, 30), at(12, 1)); !ok {
		t.Fatalf("booking into the block should overlap")
	}
	if ok, _ := r.Overlaps(ctx, "sa1", "s1", at(11, 0), at(12, 0)); ok {
		t.Fatalf("booking touching the block start should not overlap")
	}
	if ok, _ := r.Overlaps(ctx, "sa1", "s1", at(13, 0), at(14, 0)); ok {
		t.Fatalf("booking touching the block end should not overlap")
	}
	if ok, _ := r.Overlaps(ctx, "sa2", "s1", at(12, 0), at(13, 0)); ok {
		t.Fatalf("blocks are salon scoped")
	}
}

func TestLocationAppliesToBlocks(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	r := NewRegistry(NewMemoryBlockStore(), Options{Location: rome})
	ctx := context.Background()
	r.AddBlock(ctx, lunch("s1"))

	// 10:30 UTC is 12:30 in Rome during summer time.
	ok, _ := r.IsBlocked(ctx, "sa1", "s1", time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("expected block evaluated in salon time zone")
	}
}

func TestBackgroundEvents(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	nb := lunch("s1")
	nb.EndDate = "2025-06-02"
	r.AddBlock(ctx, nb)
	noReason := lunch("s2")
	noReason.Reason = ""
	r.AddBlock(ctx, noReason)

	all, _ := r.All(ctx, "sa1")
	events := BackgroundEvents(all, time.UTC)
	if len(events) != 3 {
		t.Fatalf("expected 3 day windows, got %d", len(events))
	}
	for _, e := range events {
		if e.Display != "background" || e.Editable || e.Color != BackgroundColor {
			t.Fatalf("unexpected visual treatment %+v", e)
		}
		switch e.ResourceID {
		case "s1":
			if e.Tooltip != "Blocked: lunch" {
				t.Fatalf("unexpected tooltip %q", e.Tooltip)
			}
		case "s2":
			if e.Tooltip != "Blocked" {
				t.Fatalf("unexpected tooltip %q", e.Tooltip)
			}
		}
	}

	dayTwo := Within(events, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	if len(dayTwo) != 1 || dayTwo[0].ResourceID != "s1" {
		t.Fatalf("expected only s1's second day, got %+v", dayTwo)
	}
}

func TestRedisBlockStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx := context.Background()
	store := NewRedisBlockStore(rdb, "blocks-test-"+time.Now().Format("150405.000000"))
	r := NewRegistry(store, Options{})

	b, err := r.AddBlock(ctx, lunch("s1"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	defer rdb.Del(ctx, store.key("sa1"))

	bs, err := r.BlocksFor(ctx, "sa1", "s1")
	if err != nil || len(bs) != 1 || bs[0].ID != b.ID {
		t.Fatalf("expected stored block, got %+v err=%v", bs, err)
	}
	if err := r.RemoveBlock(ctx, "sa1", "missing"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if err := r.RemoveBlock(ctx, "sa1", b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	bs, _ = r.BlocksFor(ctx, "sa1", "s1")
	if len(bs) != 0 {
		t.Fatalf("expected no blocks, got %d", len(bs))
	}
}
