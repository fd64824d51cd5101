package booking

import "ms-booking/internal/models"

// validNext is the closed transition table for reservation statuses.
// Anything not listed here is rejected with ErrInvalidTransition.
var validNext = map[models.ReservationStatus]map[models.ReservationStatus]bool{
	models.StatusPending:   {models.StatusConfirmed: true, models.StatusCancelled: true, models.StatusCompleted: true},
	models.StatusConfirmed: {models.StatusCancelled: true, models.StatusCompleted: true},
	models.StatusCancelled: {},
	models.StatusCompleted: {},
}

// CanTransition reports whether the from/to status change is legal.
func CanTransition(from, to models.ReservationStatus) bool {
	return validNext[from][to]
}
