package order

import "fmt"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusShipped  Status = "SHIPPED"
	StatusCanceled Status = "CANCELED"
)

// validNext encodes the forward-only state machine:
// PENDING -> PAID -> SHIPPED, or PENDING -> CANCELED. SHIPPED and CANCELED
// are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:  {StatusPaid: true, StatusCanceled: true},
	StatusPaid:     {StatusShipped: true},
	StatusShipped:  {},
	StatusCanceled: {},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// InvalidStateError indicates an operation attempted against an order whose
// current status does not permit it.
type InvalidStateError struct {
	Status Status
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s order in status %s", e.Op, e.Status)
}
