// README: Booking aggregate, status graph, and audit event definitions.
package booking

import (
	"time"

	"tripease/internal/modules/pricing"
	"tripease/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

// Stop is one end of a trip.
type Stop struct {
	Address  string      `json:"address"`
	Position types.Point `json:"position"`
}

// Booking is the lifecycle record of one ride request. Fare, distance,
// and vehicle class are captured at creation and never recomputed; the
// amount billed on completion equals the amount estimated.
type Booking struct {
	ID            types.ID
	RiderID       types.ID
	DriverID      *types.ID
	Status        Status
	StatusVersion int
	Pickup        Stop
	Destination   Stop
	DistanceKm    float64
	DurationMin   float64
	VehicleClass  pricing.VehicleClass
	Fare          types.Money
	CreatedAt     time.Time
	AcceptedAt    *time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	RejectedAt    *time.Time
	CancelledAt   *time.Time
	CancelReason  *string
}

// Event is one row of the per-booking audit trail.
type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions is the booking state graph as data. Transitions are
// strictly forward; completed, rejected, and cancelled are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status has no outgoing transitions.
func Terminal(s Status) bool {
	return len(AllowedTransitions[s]) == 0
}
