package offer

import (
	"context"
	"strings"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
)

const UnknownZone = "unknown zone"

// zoneKeywords is checked in order. "oeste" comes before "este" because it contains it.
var zoneKeywords = []struct {
	keywords []string
	zone     string
}{
	{keywords: []string{"norte", "busch"}, zone: "Zona Norte"},
	{keywords: []string{"oeste"}, zone: "Zona Oeste"},
	{keywords: []string{"sur", "santos"}, zone: "Zona Sur"},
	{keywords: []string{"este"}, zone: "Zona Este"},
}

// Zoner turns an exact address into the approximate zone shown to drivers.
type Zoner struct {
	geocoder ReverseGeocoder // optional
	log      logger.Logger
}

func NewZoner(geocoder ReverseGeocoder, log logger.Logger) *Zoner {
	return &Zoner{geocoder: geocoder, log: log}
}

// Zone returns the approximate zone of a stop.
func (z *Zoner) Zone(ctx context.Context, address string, coords models.Coordinates) string {
	if strings.TrimSpace(address) == "" {
		return z.reverse(ctx, coords)
	}
	return ZoneFromAddress(address)
}

func (z *Zoner) reverse(ctx context.Context, coords models.Coordinates) string {
	if z == nil || z.geocoder == nil {
		return UnknownZone
	}

	zone, err := z.geocoder.Zone(ctx, coords)
	if err != nil {
		z.log.Warn(ctx, "reverse geocoding failed", "coordinates", coords.String(), "error", err.Error())
		return UnknownZone
	}
	if zone = strings.TrimSpace(zone); zone == "" {
		return UnknownZone
	}
	return zone
}

// ZoneFromAddress matches zone keywords, then falls back to the last comma separated segment.
func ZoneFromAddress(address string) string {
	lower := strings.ToLower(address)
	for _, z := range zoneKeywords {
		for _, kw := range z.keywords {
			if strings.Contains(lower, kw) {
				return z.zone
			}
		}
	}

	parts := strings.Split(address, ",")
	if last := strings.TrimSpace(parts[len(parts)-1]); last != "" {
		return last
	}
	return UnknownZone
}
