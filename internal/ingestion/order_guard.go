package ingestion

import (
	"fmt"

	"PerpIndexer/internal/event"
)

// LogPosition orders logs within the chain: block first, then log index.
type LogPosition struct {
	BlockNumber uint64
	LogIndex    uint64
}

func PositionOf(m event.Metadata) LogPosition {
	return LogPosition{BlockNumber: m.BlockNumber, LogIndex: m.LogIndex}
}

// Before reports whether p sorts strictly before o.
func (p LogPosition) Before(o LogPosition) bool {
	if p.BlockNumber != o.BlockNumber {
		return p.BlockNumber < o.BlockNumber
	}
	return p.LogIndex < o.LogIndex
}

func (p LogPosition) String() string {
	return fmt.Sprintf("%d/%d", p.BlockNumber, p.LogIndex)
}

// OrderGuard tracks the last applied log position. Out-of-order input is
// reported and still applied.
// Not safe for concurrent use; the pipeline calls it from one goroutine.
type OrderGuard struct {
	last       LogPosition
	started    bool
	outOfOrder int64
}

func NewOrderGuard() *OrderGuard {
	return &OrderGuard{}
}

// Check returns an error when pos is at or behind the last applied position.
func (g *OrderGuard) Check(pos LogPosition) error {
	if g.started && !g.last.Before(pos) {
		g.outOfOrder++
		return fmt.Errorf("out-of-order event: last=%s, got=%s", g.last, pos)
	}
	return nil
}

// Advance records pos as applied. Positions behind the current one are
// ignored.
func (g *OrderGuard) Advance(pos LogPosition) {
	if !g.started || g.last.Before(pos) {
		g.last = pos
		g.started = true
	}
}

// Last returns the last applied position and whether any was recorded.
func (g *OrderGuard) Last() (LogPosition, bool) {
	return g.last, g.started
}

// OutOfOrder returns the number of out-of-order events seen.
func (g *OrderGuard) OutOfOrder() int64 {
	return g.outOfOrder
}
