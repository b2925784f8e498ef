package offer

import (
	"context"
	"errors"
	"testing"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestZoneFromAddress(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"Av. Busch 450", "Zona Norte"},
		{"Barrio Norte, calle 5", "Zona Norte"},
		{"Av. Santos Dumont, 3er anillo", "Zona Sur"},
		{"Plan Tres Mil, zona sur", "Zona Sur"},
		{"Villa 1ro de Mayo, Este", "Zona Este"},
		{"Radial 17, Oeste", "Zona Oeste"},
		{"Calle Libertad 120, Equipetrol", "Equipetrol"},
		{"Calle Libertad 120", "Calle Libertad 120"},
		{"Calle 1, ", "unknown zone"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, ZoneFromAddress(tt.address))
		})
	}
}

type stubGeocoder struct {
	zone string
	err  error
}

func (g stubGeocoder) Zone(context.Context, models.Coordinates) (string, error) {
	return g.zone, g.err
}

func TestZoner_EmptyAddress(t *testing.T) {
	ctx := context.Background()
	at := models.Coordinates{Lat: -17.78, Lng: -63.18}

	assert.Equal(t, UnknownZone, NewZoner(nil, logger.Nop()).Zone(ctx, "", at))
	assert.Equal(t, "Equipetrol", NewZoner(stubGeocoder{zone: "Equipetrol"}, logger.Nop()).Zone(ctx, "  ", at))
	assert.Equal(t, UnknownZone, NewZoner(stubGeocoder{err: errors.New("quota")}, logger.Nop()).Zone(ctx, "", at))
	assert.Equal(t, "Zona Sur", NewZoner(stubGeocoder{zone: "ignored"}, logger.Nop()).Zone(ctx, "zona sur", at))
}
