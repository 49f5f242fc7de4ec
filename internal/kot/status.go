// Package kot holds the kitchen-order-ticket state machine. Preparation is a
// physically ordered process, so the graph is strict: single forward steps
// only, cancellation from any non-terminal state, completion only through the
// dedicated promotion operation.
package kot

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var forward = map[Status]Status{
	StatusPending:   StatusPreparing,
	StatusPreparing: StatusReady,
}

func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return Status(value), true
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Transition validates a generic advance request. COMPLETED is unreachable
// here; Complete-eligibility is checked with CanComplete instead.
func Transition(from, to Status) error {
	if from.Terminal() {
		return terminalError(from)
	}
	if to == StatusCancelled {
		return nil
	}
	if next, ok := forward[from]; ok && next == to {
		return nil
	}
	return invalidTransitionError(from, to)
}

// CanComplete reports whether a ticket may be promoted into an order.
func CanComplete(from Status) error {
	if from.Terminal() {
		return terminalError(from)
	}
	if from != StatusReady {
		return invalidTransitionError(from, StatusCompleted)
	}
	return nil
}

// CanCancel mirrors Transition(from, StatusCancelled).
func CanCancel(from Status) error {
	if from.Terminal() {
		return terminalError(from)
	}
	return nil
}
