package ingestion_test

import (
	"testing"

	"PerpIndexer/internal/ingestion"
)

func TestOrderGuard_AcceptsIncreasingPositions(t *testing.T) {
	g := ingestion.NewOrderGuard()

	steps := []ingestion.LogPosition{
		{BlockNumber: 10, LogIndex: 0},
		{BlockNumber: 10, LogIndex: 4},
		{BlockNumber: 11, LogIndex: 0},
	}
	for _, pos := range steps {
		if err := g.Check(pos); err != nil {
			t.Fatalf("check %s: %v", pos, err)
		}
		g.Advance(pos)
	}

	last, ok := g.Last()
	if !ok || last != steps[2] {
		t.Errorf("last: got %s ok=%v", last, ok)
	}
	if g.OutOfOrder() != 0 {
		t.Errorf("out of order: got %d", g.OutOfOrder())
	}
}

func TestOrderGuard_FlagsRegression(t *testing.T) {
	g := ingestion.NewOrderGuard()
	g.Advance(ingestion.LogPosition{BlockNumber: 10, LogIndex: 5})

	for _, pos := range []ingestion.LogPosition{
		{BlockNumber: 10, LogIndex: 5},
		{BlockNumber: 10, LogIndex: 2},
		{BlockNumber: 9, LogIndex: 99},
	} {
		if err := g.Check(pos); err == nil {
			t.Errorf("check %s: expected error", pos)
		}
		g.Advance(pos)
	}

	if g.OutOfOrder() != 3 {
		t.Errorf("out of order: got %d, want 3", g.OutOfOrder())
	}
	// Regressions never move the high-water mark back.
	if last, _ := g.Last(); last != (ingestion.LogPosition{BlockNumber: 10, LogIndex: 5}) {
		t.Errorf("last: got %s", last)
	}
}

func TestOrderGuard_EmptyAcceptsAnything(t *testing.T) {
	g := ingestion.NewOrderGuard()
	if _, ok := g.Last(); ok {
		t.Error("fresh guard reports a position")
	}
	if err := g.Check(ingestion.LogPosition{}); err != nil {
		t.Errorf("first check: %v", err)
	}
}
