package inbox

import (
	"context"
	"testing"
)

func TestMemoryDeduplicates(t *testing.T) {
	m, err := NewMemory(2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if ok, _ := m.Record(ctx, "e1", "t"); !ok {
		t.Fatalf("first delivery must be accepted")
	}
	if ok, _ := m.Record(ctx, "e1", "t"); ok {
		t.Fatalf("redelivery must be rejected")
	}
	m.Record(ctx, "e2", "t")
	m.Record(ctx, "e3", "t")
	if ok, _ := m.Record(ctx, "e1", "t"); !ok {
		t.Fatalf("evicted id is forgotten")
	}
}
