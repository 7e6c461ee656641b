package appointments

import (
	"context"
	"fmt"
)

// allowedTransitions lists, for each status, the statuses it may move to.
// Cancellation is only possible before work begins.
var allowedTransitions = map[Status][]Status{
	StatusRequested:  {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether from → to is an allowed move. Self
// transitions are never allowed.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Controller applies status transitions through the store.
type Controller struct {
	store Store
}

// NewController creates a lifecycle controller.
func NewController(store Store) *Controller {
	if store == nil {
		panic("appointments: store required")
	}
	return &Controller{store: store}
}

// Transition moves appointment id to target. The transition is checked
// against the record as it exists inside the store's update, so concurrent
// calls on one id serialize.
func (c *Controller) Transition(ctx context.Context, id string, target Status) (*Appointment, error) {
	updated, _, err := c.transition(ctx, id, target)
	return updated, err
}

// transition also reports the status observed under the store's lock.
func (c *Controller) transition(ctx context.Context, id string, target Status) (*Appointment, Status, error) {
	var from Status
	updated, err := c.store.Update(ctx, id, func(a *Appointment) error {
		from = a.Status
		if !CanTransition(a.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, target)
		}
		a.Status = target
		return nil
	})
	return updated, from, err
}
