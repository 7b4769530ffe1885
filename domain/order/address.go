package order

import "strings"

// Address is the delivery destination owned by exactly one order.
// Coordinates are accepted as given.
type Address struct {
	ID          int64
	City        string
	Street      string
	House       string
	Apartment   *string
	Entrance    *string
	Floor       *string
	Comment     *string
	PrivateHome bool
	Latitude    float64
	Longitude   float64
}

// Validate checks the required geographic fields.
func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.City) == "":
		return NewInvalidOrderError("address.city", "city is required")
	case strings.TrimSpace(a.Street) == "":
		return NewInvalidOrderError("address.street", "street is required")
	case strings.TrimSpace(a.House) == "":
		return NewInvalidOrderError("address.house", "house is required")
	case a.Latitude < -90 || a.Latitude > 90:
		return NewInvalidOrderError("address.coordinates", "latitude out of range")
	case a.Longitude < -180 || a.Longitude > 180:
		return NewInvalidOrderError("address.coordinates", "longitude out of range")
	}
	return nil
}
