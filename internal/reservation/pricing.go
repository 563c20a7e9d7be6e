package reservation

import "github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"

// Price charges the hourly rate pro rata for the interval, rounded half-up to the minor unit.
func Price(hourlyRate money.Cents, iv Interval) money.Cents {
	return money.ForDuration(hourlyRate, iv.Duration())
}
