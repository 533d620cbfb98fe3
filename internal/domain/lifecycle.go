package domain

import (
	"errors"

	"github.com/google/uuid"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func ToRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBuyer, RoleSeller:
		return Role(s), nil
	}
	return "", errors.New("invalid role")
}

// AllowedTransitions is the order state machine. Delivered and Cancelled are terminal.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusAccepted, OrderStatusCancelled},
	OrderStatusAccepted: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:  {OrderStatusDelivered, OrderStatusCancelled},
}

var allowedTransitionSet = buildTransitionSet(AllowedTransitions)

func buildTransitionSet(transitions map[OrderStatus][]OrderStatus) map[OrderStatus]map[OrderStatus]struct{} {
	set := make(map[OrderStatus]map[OrderStatus]struct{}, len(transitions))
	for from, tos := range transitions {
		next := make(map[OrderStatus]struct{}, len(tos))
		for _, to := range tos {
			next[to] = struct{}{}
		}
		set[from] = next
	}
	return set
}

// CanTransition checks if a status pair is structurally valid.
func CanTransition(from, to OrderStatus) bool {
	next, ok := allowedTransitionSet[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// AuthorizeTransition applies the actor table on top of the state machine:
//
//	seller (owner): any forward status, or Cancelled before delivery
//	buyer (owner):  Delivered, or Cancelled while the order is still Pending
//	anyone else:    ErrNotAuthorized
//
// Owners asking for something the table forbids get an InvalidTransitionError.
func AuthorizeTransition(o *Order, actorID uuid.UUID, role Role, target OrderStatus) error {
	invalid := &InvalidTransitionError{From: o.Status, To: target}

	switch {
	case role == RoleSeller && actorID == o.SellerID:
		if target == OrderStatusPending {
			return invalid
		}
	case role == RoleBuyer && actorID == o.BuyerID:
		switch target {
		case OrderStatusDelivered:
		case OrderStatusCancelled:
			if o.Status != OrderStatusPending {
				return invalid
			}
		default:
			return invalid
		}
	default:
		return ErrNotAuthorized
	}

	if !CanTransition(o.Status, target) {
		return invalid
	}
	return nil
}
