// README: Booking service implements the ride lifecycle state machine.
package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"tripease/internal/maps"
	"tripease/internal/modules/pricing"
	"tripease/internal/types"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrConflict          = errors.New("booking state conflict")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrAlreadyClaimed    = errors.New("booking already claimed")
	ErrNotAssignedDriver = errors.New("driver not assigned to booking")
	ErrNotAllowed        = errors.New("actor not allowed")
	ErrQuoteUnavailable  = errors.New("fare quote unavailable")
	ErrBadRequest        = errors.New("bad request")
)

// Quoter supplies deterministic fare quotes.
type Quoter interface {
	Quote(class pricing.VehicleClass, distanceKm, durationMin float64) (pricing.Quote, error)
}

// RouteEstimator supplies trip metrics from an external routing backend.
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination types.Point) (maps.RouteEstimate, error)
}

type Service struct {
	store  *Store
	quotes Quoter
	routes RouteEstimator
}

func NewService(store *Store, quotes Quoter, routes RouteEstimator) *Service {
	return &Service{store: store, quotes: quotes, routes: routes}
}

type RequestCommand struct {
	RiderID      types.ID
	Pickup       Stop
	Destination  Stop
	VehicleClass pricing.VehicleClass
}

type ClaimCommand struct {
	BookingID types.ID
	DriverID  types.ID
}

type StartCommand struct {
	BookingID types.ID
	DriverID  types.ID
}

type CompleteCommand struct {
	BookingID types.ID
	DriverID  types.ID
}

type CancelCommand struct {
	BookingID types.ID
	ActorType string // "rider", "driver", or "system"
	ActorID   types.ID
	Reason    string
}

// RequestRide obtains trip metrics and a fare quote, then creates a
// pending booking carrying the quoted total as the bill. Nothing is
// persisted when the routing collaborator fails.
func (s *Service) RequestRide(ctx context.Context, cmd RequestCommand) (*Booking, error) {
	if cmd.RiderID == "" || cmd.VehicleClass == "" {
		return nil, ErrBadRequest
	}

	est, err := s.routes.Estimate(ctx, cmd.Pickup.Position, cmd.Destination.Position)
	if err != nil {
		log.Printf("route estimate for rider %s: %v", cmd.RiderID, err)
		return nil, ErrQuoteUnavailable
	}

	quote, err := s.quotes.Quote(cmd.VehicleClass, est.DistanceKm, est.DurationMin)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	b := &Booking{
		ID:            newID(),
		RiderID:       cmd.RiderID,
		Status:        StatusPending,
		StatusVersion: 0,
		Pickup:        cmd.Pickup,
		Destination:   cmd.Destination,
		DistanceKm:    est.DistanceKm,
		DurationMin:   est.DurationMin,
		VehicleClass:  cmd.VehicleClass,
		Fare:          types.Money{Amount: quote.Total, Currency: quote.Currency},
		CreatedAt:     now,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, b.ID, StatusNone, StatusPending, "rider", &cmd.RiderID)
	return b, nil
}

// Claim transitions pending→accepted and sets the driver, atomically.
// Exactly one of any number of concurrent claims succeeds; the rest see
// ErrAlreadyClaimed, which callers treat as a normal branch.
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		if b.DriverID != nil {
			return nil, ErrAlreadyClaimed
		}
		return nil, ErrInvalidState
	}

	ok, err := s.store.UpdateStatus(ctx, b.ID, StatusPending, StatusAccepted, b.StatusVersion, &cmd.DriverID, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another driver (or a cancel) won the race on this version.
		return nil, ErrAlreadyClaimed
	}
	s.appendEvent(ctx, b.ID, StatusPending, StatusAccepted, "driver", &cmd.DriverID)
	return s.store.Get(ctx, b.ID)
}

// Start transitions accepted→in_progress, restricted to the assigned driver.
func (s *Service) Start(ctx context.Context, cmd StartCommand) error {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return err
	}
	if b.DriverID == nil || *b.DriverID != cmd.DriverID {
		return ErrNotAssignedDriver
	}
	if !CanTransition(b.Status, StatusInProgress) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, b.ID, b.Status, StatusInProgress, b.StatusVersion, nil, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendEvent(ctx, b.ID, StatusAccepted, StatusInProgress, "driver", &cmd.DriverID)
	return nil
}

// Complete transitions in_progress→completed and returns the booking
// with the fare captured at creation; the bill is never recomputed.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.DriverID == nil || *b.DriverID != cmd.DriverID {
		return nil, ErrNotAssignedDriver
	}
	if !CanTransition(b.Status, StatusCompleted) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, b.ID, b.Status, StatusCompleted, b.StatusVersion, nil, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendEvent(ctx, b.ID, StatusInProgress, StatusCompleted, "driver", &cmd.DriverID)
	return s.store.Get(ctx, b.ID)
}

// Cancel is valid only before the trip starts. Riders may cancel their
// own bookings; the assigned driver and the system may cancel theirs.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return err
	}
	switch cmd.ActorType {
	case "rider":
		if b.RiderID != cmd.ActorID {
			return ErrNotAllowed
		}
	case "driver":
		if b.DriverID == nil || *b.DriverID != cmd.ActorID {
			return ErrNotAssignedDriver
		}
	case "system":
	default:
		return ErrBadRequest
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return ErrInvalidState
	}

	reason := cmd.Reason
	ok, err := s.store.UpdateStatus(ctx, b.ID, b.Status, StatusCancelled, b.StatusVersion, nil, &reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	actorID := cmd.ActorID
	var actor *types.ID
	if actorID != "" {
		actor = &actorID
	}
	s.appendEvent(ctx, b.ID, b.Status, StatusCancelled, cmd.ActorType, actor)
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Booking, error) {
	return s.store.ListByStatus(ctx, status)
}

func (s *Service) RiderHistory(ctx context.Context, riderID types.ID) ([]Booking, error) {
	return s.store.ListByRider(ctx, riderID)
}

func (s *Service) DriverHistory(ctx context.Context, driverID types.ID) ([]Booking, error) {
	return s.store.ListByDriver(ctx, driverID)
}

// appendEvent records the audit trail. A failed event write never rolls
// back the transition itself.
func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actorType string, actorID *types.ID) {
	err := s.store.AppendEvent(ctx, &Event{
		BookingID:  id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Printf("append event %s %s→%s: %v", id, from, to, err)
	}
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
