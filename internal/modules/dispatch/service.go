// README: Dispatch broadcaster exposes the claimable set to polling drivers.
package dispatch

import (
	"context"
	"errors"

	"tripease/internal/modules/booking"
	"tripease/internal/modules/pricing"
	"tripease/internal/types"
)

var ErrBadRequest = errors.New("bad request")

// Bookings is the read surface of the booking store that dispatch
// projects over. Dispatch holds no booking state of its own.
type Bookings interface {
	Get(ctx context.Context, id types.ID) (*booking.Booking, error)
	ListByStatus(ctx context.Context, status booking.Status) ([]booking.Booking, error)
}

type Service struct {
	bookings Bookings
	store    *Store
	radiusKm float64
}

func NewService(bookings Bookings, store *Store, radiusKm float64) *Service {
	return &Service{bookings: bookings, store: store, radiusKm: radiusKm}
}

// Query narrows the pending set for one polling driver.
type Query struct {
	DriverID     types.ID
	VehicleClass pricing.VehicleClass // empty: all classes
	Near         *types.Point         // nil: no proximity filter
}

// PendingFor returns every booking that is pending at the instant of the
// read and still visible to this driver. Staleness between this read and
// a later claim is resolved by the booking store's atomic transition,
// not here.
func (s *Service) PendingFor(ctx context.Context, q Query) ([]booking.Booking, error) {
	if q.DriverID == "" {
		return nil, ErrBadRequest
	}
	pending, err := s.bookings.ListByStatus(ctx, booking.StatusPending)
	if err != nil {
		return nil, err
	}
	declined, err := s.store.DeclinedSet(ctx, q.DriverID)
	if err != nil {
		return nil, err
	}
	return FilterForDriver(pending, declined, q, s.radiusKm), nil
}

// Decline hides a booking from this driver's future polls. It is purely
// a per-driver visibility filter; the booking stays claimable by
// everyone else.
func (s *Service) Decline(ctx context.Context, driverID, bookingID types.ID) error {
	if driverID == "" {
		return ErrBadRequest
	}
	if _, err := s.bookings.Get(ctx, bookingID); err != nil {
		return err
	}
	return s.store.MarkDeclined(ctx, driverID, bookingID)
}

// SetAvailability registers or removes a driver from the online pool.
func (s *Service) SetAvailability(ctx context.Context, driverID types.ID, online bool, pos types.Point) error {
	if driverID == "" {
		return ErrBadRequest
	}
	if online {
		return s.store.AddDriver(ctx, driverID, pos)
	}
	return s.store.RemoveDriver(ctx, driverID)
}

// FilterForDriver applies the per-driver visibility rules: declined
// bookings are skipped, the vehicle class must match when requested, and
// pickups outside radiusKm of the driver are dropped when a location is
// supplied.
func FilterForDriver(pending []booking.Booking, declined map[types.ID]struct{}, q Query, radiusKm float64) []booking.Booking {
	out := make([]booking.Booking, 0, len(pending))
	for _, b := range pending {
		if _, skip := declined[b.ID]; skip {
			continue
		}
		if q.VehicleClass != "" && b.VehicleClass != q.VehicleClass {
			continue
		}
		if q.Near != nil && radiusKm > 0 {
			if haversineKm(*q.Near, b.Pickup.Position) > radiusKm {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}
