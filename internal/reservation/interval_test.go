package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2030, 3, 1, hour, minute, 0, 0, time.UTC)
}

func iv(startHour, endHour int) Interval {
	return Interval{Start: at(startHour, 0), End: at(endHour, 0)}
}

func TestNewInterval(t *testing.T) {
	_, err := NewInterval(at(10, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval(at(11, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	got, err := NewInterval(at(10, 0), at(12, 30))
	require.NoError(t, err)
	assert.Equal(t, 150*time.Minute, got.Duration())
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", iv(10, 12), iv(10, 12), true},
		{"partial left", iv(10, 12), iv(9, 11), true},
		{"partial right", iv(10, 12), iv(11, 13), true},
		{"contained", iv(10, 14), iv(11, 12), true},
		{"containing", iv(11, 12), iv(10, 14), true},
		{"adjacent after", iv(10, 12), iv(12, 14), false},
		{"adjacent before", iv(10, 12), iv(8, 10), false},
		{"disjoint", iv(10, 12), iv(15, 16), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestOverlapsIgnoresLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	a := iv(10, 12)
	b := Interval{Start: at(12, 0).In(tokyo), End: at(13, 0).In(tokyo)}
	assert.False(t, a.Overlaps(b))

	b.Start = at(11, 59).In(tokyo)
	assert.True(t, a.Overlaps(b))
}
