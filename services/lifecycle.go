package services

import (
	"fmt"
	"slices"

	"github.com/Josevinuez/trade-in-api/models"
)

// ActorKind identifies who requested a change
type ActorKind string

const (
	ActorStaff    ActorKind = "staff"
	ActorCustomer ActorKind = "customer"
	ActorSystem   ActorKind = "system"
)

// Actor is the identity recorded in the order history
type Actor struct {
	Kind  ActorKind
	Email string
}

// StaffActor is an authenticated staff member
func StaffActor(email string) Actor {
	return Actor{Kind: ActorStaff, Email: email}
}

// CustomerActor is the customer of record, proven by an order access token
func CustomerActor(email string) Actor {
	return Actor{Kind: ActorCustomer, Email: email}
}

// SystemActor is used for automatic entries such as submission
func SystemActor() Actor {
	return Actor{Kind: ActorSystem}
}

// Label is the changed_by value written to the history
func (a Actor) Label() string {
	switch a.Kind {
	case ActorStaff:
		return a.Email
	case ActorCustomer:
		return "customer:" + a.Email
	default:
		return "system"
	}
}

// Transitions each kind of actor may perform, keyed by current status.
// Terminal statuses have no entry.
var staffTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:          {models.StatusProcessing, models.StatusAwaitingApproval, models.StatusCancelled},
	models.StatusProcessing:       {models.StatusCompleted, models.StatusAwaitingApproval, models.StatusCancelled},
	models.StatusAwaitingApproval: {models.StatusCancelled},
}

var customerTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:          {models.StatusCancelled},
	models.StatusProcessing:       {models.StatusCancelled},
	models.StatusAwaitingApproval: {models.StatusProcessing, models.StatusRejected, models.StatusCancelled},
}

// CheckTransition validates a status change for an actor.
// It returns ErrForbiddenTransition when the move exists but belongs to the other party,
// and ErrInvalidTransition when nobody may make it.
func CheckTransition(from, to models.OrderStatus, actor Actor) error {
	if !to.IsValid() {
		return newValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: order is %s", ErrInvalidTransition, from)
	}

	var allowed map[models.OrderStatus][]models.OrderStatus
	switch actor.Kind {
	case ActorStaff:
		allowed = staffTransitions
	case ActorCustomer:
		allowed = customerTransitions
	}
	if slices.Contains(allowed[from], to) {
		return nil
	}

	if slices.Contains(staffTransitions[from], to) || slices.Contains(customerTransitions[from], to) {
		return fmt.Errorf("%w: %s cannot move an order from %s to %s", ErrForbiddenTransition, actor.Kind, from, to)
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}
