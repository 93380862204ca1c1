package domain

type CheckoutStatus string

const (
	CheckoutStatusDraft           CheckoutStatus = "draft"
	CheckoutStatusAwaitingPayment CheckoutStatus = "awaiting_payment"
	CheckoutStatusCompleted       CheckoutStatus = "completed"
	CheckoutStatusCancelled       CheckoutStatus = "cancelled"
)

// transitions lists every legal edge of the session state machine.
var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusDraft:           {CheckoutStatusAwaitingPayment, CheckoutStatusCancelled},
	CheckoutStatusAwaitingPayment: {CheckoutStatusCompleted, CheckoutStatusCancelled},
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusCancelled
}

// IsMutable reports whether items, address and shipping option may still change.
func (s CheckoutStatus) IsMutable() bool {
	return s == CheckoutStatusDraft || s == CheckoutStatusAwaitingPayment
}

func (s CheckoutStatus) IsValid() bool {
	switch s {
	case CheckoutStatusDraft, CheckoutStatusAwaitingPayment, CheckoutStatusCompleted, CheckoutStatusCancelled:
		return true
	}
	return false
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether from -> to is an edge of the state machine.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
