package booking

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a user, server or slot id does not exist.
var ErrNotFound = errors.New("booking: not found")

// Reason identifies why a booking transition was refused.
type Reason string

const (
	ReasonNotAssigned     Reason = "not_assigned"
	ReasonAlreadyReserved Reason = "already_reserved"
	ReasonMonthlyLimit    Reason = "monthly_limit_reached"
	ReasonWeeklyLimit     Reason = "weekly_limit_reached"
	ReasonNotReserved     Reason = "not_reserved"
	ReasonAlreadyPassed   Reason = "already_passed"
	ReasonCurrentDay      Reason = "current_day"
)

// Rejection is an expected policy refusal. Message is meant for end users.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("booking rejected (%s): %s", r.Reason, r.Message)
}

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// RejectionReason returns the reason carried by err, if it is a Rejection.
func RejectionReason(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
