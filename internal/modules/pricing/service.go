// README: Pricing service computes deterministic fare quotes.
package pricing

import (
	"errors"
	"math"
)

var (
	ErrInvalidClass   = errors.New("invalid vehicle class")
	ErrInvalidMetrics = errors.New("invalid trip metrics")
)

// Service holds an immutable rate map fixed at construction, so every
// quote for the same inputs is bit-identical for the process lifetime.
type Service struct {
	rates map[VehicleClass]Rate
}

func NewService(rates map[VehicleClass]Rate) *Service {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Service{rates: rates}
}

// Quote computes the itemized fare for one vehicle class. The minimum
// fare is compared against the unrounded raw total; component fares are
// rounded to whole units independently for display.
func (s *Service) Quote(class VehicleClass, distanceKm, durationMin float64) (Quote, error) {
	rate, ok := s.rates[class]
	if !ok {
		return Quote{}, ErrInvalidClass
	}
	if !validMetric(distanceKm) || !validMetric(durationMin) {
		return Quote{}, ErrInvalidMetrics
	}

	distanceFare := distanceKm * rate.PerKm
	timeFare := durationMin * rate.PerMin
	raw := float64(rate.BaseFare) + distanceFare + timeFare

	floored := raw < float64(rate.MinFare)
	total := int64(math.Round(raw))
	if floored {
		total = rate.MinFare
	}

	return Quote{
		Class:        class,
		BaseFare:     rate.BaseFare,
		DistanceFare: int64(math.Round(distanceFare)),
		TimeFare:     int64(math.Round(timeFare)),
		Total:        total,
		Currency:     rate.Currency,
		FloorApplied: floored,
	}, nil
}

// QuoteAll returns one quote per known vehicle class in canonical order.
func (s *Service) QuoteAll(distanceKm, durationMin float64) ([]Quote, error) {
	quotes := make([]Quote, 0, len(s.rates))
	for _, class := range Classes() {
		if _, ok := s.rates[class]; !ok {
			continue
		}
		q, err := s.Quote(class, distanceKm, durationMin)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func validMetric(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
