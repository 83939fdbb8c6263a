package parser

// DiffLifeChanges converts raw life snapshots into change records. The first
// sighting of a seat carries a nil Change; later snapshots carry the delta
// from the seat's previous total, and snapshots with no change are dropped.
func DiffLifeChanges(snapshots []LifeSnapshot) []LifeChange {
	changes := make([]LifeChange, 0, len(snapshots))
	previous := make(map[int]int)

	for _, snap := range snapshots {
		prev, seen := previous[snap.SeatID]
		previous[snap.SeatID] = snap.LifeTotal

		if !seen {
			changes = append(changes, LifeChange{
				GameStateID: snap.GameStateID,
				Turn:        snap.Turn,
				SeatID:      snap.SeatID,
				LifeTotal:   snap.LifeTotal,
			})
			continue
		}

		if snap.LifeTotal == prev {
			continue
		}

		delta := snap.LifeTotal - prev
		changes = append(changes, LifeChange{
			GameStateID: snap.GameStateID,
			Turn:        snap.Turn,
			SeatID:      snap.SeatID,
			LifeTotal:   snap.LifeTotal,
			Change:      &delta,
		})
	}

	return changes
}
