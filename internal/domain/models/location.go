package models

import (
	"strconv"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats coordinates as "lat,lng", the form distance providers accept.
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 6, 64)
}

// CachedLocation is the value kept in the location cache for a driver.
type CachedLocation struct {
	Lat       float64              `json:"lat"`
	Lng       float64              `json:"lng"`
	Timestamp time.Time            `json:"timestamp"`
	Source    types.LocationSource `json:"source"`
}

func (l CachedLocation) Coordinates() Coordinates {
	return Coordinates{Lat: l.Lat, Lng: l.Lng}
}

// Restaurant is the single fixed pickup point.
type Restaurant struct {
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
}
