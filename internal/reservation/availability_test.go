package reservation

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func busy(intervals ...Interval) []BusySlot {
	out := make([]BusySlot, len(intervals))
	for i, v := range intervals {
		out[i] = BusySlot{Start: v.Start, End: v.End, Status: StatusConfirmed}
	}
	return out
}

func TestFreeSlots(t *testing.T) {
	window := iv(9, 18)

	tests := []struct {
		name string
		busy []BusySlot
		want []Interval
	}{
		{"empty calendar", nil, []Interval{iv(9, 18)}},
		{"one in the middle", busy(iv(12, 13)), []Interval{iv(9, 12), iv(13, 18)}},
		{"back to back", busy(iv(10, 11), iv(11, 12)), []Interval{iv(9, 10), iv(12, 18)}},
		{"overhanging edges", busy(iv(8, 10), iv(17, 20)), []Interval{iv(10, 17)}},
		{"fully booked", busy(iv(7, 19)), nil},
		{"nested busy", busy(iv(10, 15), iv(11, 12)), []Interval{iv(9, 10), iv(15, 18)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FreeSlots(window, slices.Values(tt.busy)))
		})
	}
}
