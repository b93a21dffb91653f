// README: Dispatch store backed by Redis (decline sets and driver GEO pool).
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tripease/internal/types"
)

const (
	driverGeoKey      = "dispatch:drivers"
	declinedKeyPrefix = "dispatch:driver:%s:declined"
	// Declined bookings stay hidden for this long; a booking either
	// resolves or is long stale well inside the window.
	declineTTL = 24 * time.Hour
)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) MarkDeclined(ctx context.Context, driverID, bookingID types.ID) error {
	key := declinedKey(driverID)
	pipe := s.redis.Pipeline()
	pipe.SAdd(ctx, key, string(bookingID))
	pipe.Expire(ctx, key, declineTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) DeclinedSet(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error) {
	members, err := s.redis.SMembers(ctx, declinedKey(driverID)).Result()
	if err != nil {
		return nil, err
	}
	set := make(map[types.ID]struct{}, len(members))
	for _, m := range members {
		set[types.ID(m)] = struct{}{}
	}
	return set, nil
}

func (s *Store) AddDriver(ctx context.Context, driverID types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(driverID),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) RemoveDriver(ctx context.Context, driverID types.ID) error {
	return s.redis.ZRem(ctx, driverGeoKey, string(driverID)).Err()
}

// NearbyDrivers returns online drivers within radiusKm of a point,
// nearest first.
func (s *Store) NearbyDrivers(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := s.redis.GeoSearch(ctx, driverGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

func declinedKey(driverID types.ID) string {
	return fmt.Sprintf(declinedKeyPrefix, string(driverID))
}
