package subscription

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPlan is returned when a request names a plan that is not configured.
var ErrInvalidPlan = errors.New("subscription: invalid plan")

// ErrTenantNotFound is returned when the tenant id does not resolve.
var ErrTenantNotFound = errors.New("subscription: tenant not found")

// DuplicateSubscriptionError is returned when a tenant already holds an
// active, unexpired subscription. It carries the existing plan and end date
// so callers can render "already subscribed" messaging.
type DuplicateSubscriptionError struct {
	ExistingPlan string
	ActiveUntil  time.Time
}

func (e *DuplicateSubscriptionError) Error() string {
	return fmt.Sprintf("subscription: active %s subscription exists until %s",
		e.ExistingPlan, e.ActiveUntil.Format("2006-01-02"))
}
