// README: Vehicle classes, rate tables, and fare quote definitions.
package pricing

// VehicleClass is one of the fixed ride categories.
type VehicleClass string

const (
	ClassAuto    VehicleClass = "auto"
	ClassBike    VehicleClass = "bike"
	ClassCar     VehicleClass = "car"
	ClassPremium VehicleClass = "premium"
)

// Classes returns all vehicle classes in canonical display order.
// The rider-facing estimate list follows this order, never price order.
func Classes() []VehicleClass {
	return []VehicleClass{ClassAuto, ClassBike, ClassCar, ClassPremium}
}

// Rate is the fare schedule for a single vehicle class.
type Rate struct {
	Class    VehicleClass
	BaseFare int64
	PerKm    float64
	PerMin   float64
	MinFare  int64
	Currency string
}

// Quote is an ephemeral fare computation. Component fares are rounded
// to whole currency units independently; FloorApplied reports whether
// the minimum fare replaced the raw total.
type Quote struct {
	Class        VehicleClass `json:"vehicle_class"`
	BaseFare     int64        `json:"base_fare"`
	DistanceFare int64        `json:"distance_fare"`
	TimeFare     int64        `json:"time_fare"`
	Total        int64        `json:"total_fare"`
	Currency     string       `json:"currency"`
	FloorApplied bool         `json:"floor_applied"`
}

// DefaultRates is the compiled-in fare schedule (INR), used when the
// fare_rates table has not been seeded.
func DefaultRates() map[VehicleClass]Rate {
	return map[VehicleClass]Rate{
		ClassAuto:    {Class: ClassAuto, BaseFare: 25, PerKm: 12, PerMin: 1, MinFare: 30, Currency: "INR"},
		ClassBike:    {Class: ClassBike, BaseFare: 15, PerKm: 8, PerMin: 0.5, MinFare: 20, Currency: "INR"},
		ClassCar:     {Class: ClassCar, BaseFare: 50, PerKm: 15, PerMin: 2, MinFare: 80, Currency: "INR"},
		ClassPremium: {Class: ClassPremium, BaseFare: 100, PerKm: 25, PerMin: 3, MinFare: 150, Currency: "INR"},
	}
}
