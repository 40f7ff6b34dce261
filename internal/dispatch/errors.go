package dispatch

import (
	"errors"
	"fmt"

	"marketplace-service/internal/model"
)

var (
	// ErrAlreadyDispatched means the order was already split into manufacturer
	// orders; dispatch is strictly one-shot per order.
	ErrAlreadyDispatched = errors.New("order already dispatched")

	// ErrOrderCancelled means a cancelled order cannot be dispatched.
	ErrOrderCancelled = errors.New("order is cancelled")

	// ErrInvalidTransition is the base error for lifecycle violations. Handlers
	// match it with errors.Is; the concrete InvalidTransitionError carries the
	// current state so callers can react.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InvalidTransitionError reports a rejected lifecycle transition together with
// the sub-order's current state.
type InvalidTransitionError struct {
	From model.ManufacturerOrderStatus
	To   model.ManufacturerOrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// Is makes the error match ErrInvalidTransition for errors.Is checks
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
