package reservation

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

// ValidateTransition is the single authority on legal status changes.
// Cancelled is terminal and nothing returns to pending.
func ValidateTransition(from, to Status) error {
	if _, err := ParseStatus(string(to)); err != nil {
		return err
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}
