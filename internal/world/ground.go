package world

import "time"

// GroundItem is an item lying in a region. Not persisted; it disappears
// when DisappearAt passes.
type GroundItem struct {
	EntityID    int64
	ItemID      int32
	Amount      int32
	Pos         Position
	OwnerID     int64 // entity that may pick it up first, 0 = anyone
	DisappearAt time.Time
}

func (it *GroundItem) expired(now time.Time) bool {
	return !it.DisappearAt.IsZero() && !now.Before(it.DisappearAt)
}
