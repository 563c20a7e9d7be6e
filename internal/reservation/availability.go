package reservation

import (
	"iter"
	"time"
)

// BusySlot is an occupied range on a resource's calendar.
type BusySlot struct {
	ReservationID string
	Start         time.Time
	End           time.Time
	Status        Status
}

// FreeSlots subtracts busy ranges from window. busy must be ordered by start,
// which is what BusySlots yields. Busy ranges may extend past the window edges.
func FreeSlots(window Interval, busy iter.Seq[BusySlot]) []Interval {
	var free []Interval
	cursor := window.Start

	for slot := range busy {
		if !slot.Start.Before(window.End) {
			break
		}
		if slot.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: slot.Start})
		}
		if slot.End.After(cursor) {
			cursor = slot.End
		}
		if !cursor.Before(window.End) {
			return free
		}
	}

	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}
