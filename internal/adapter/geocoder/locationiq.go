package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

var ErrZoneNotFound = errors.New("no zone for coordinates")

// LocationIQ resolves coordinates to a neighbourhood name with the LocationIQ reverse API.
type LocationIQ struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewLocationIQ(apiKey, baseURL string, timeout time.Duration) *LocationIQ {
	return &LocationIQ{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type reversePayload struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Neighbourhood string `json:"neighbourhood"`
		Suburb        string `json:"suburb"`
		CityDistrict  string `json:"city_district"`
		City          string `json:"city"`
	} `json:"address"`
}

// zone picks the most specific area name, never the street.
func (p reversePayload) zone() string {
	for _, candidate := range []string{p.Address.Neighbourhood, p.Address.Suburb, p.Address.CityDistrict, p.Address.City} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return ""
}

func (c *LocationIQ) Zone(ctx context.Context, coords models.Coordinates) (string, error) {
	const op = "LocationIQ.Zone"

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lng, 'f', 6, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: request failed: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", op, ErrZoneNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: unexpected response status %d", op, resp.StatusCode))
	}

	var payload reversePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	zone := payload.zone()
	if zone == "" {
		return "", fmt.Errorf("%s: %w", op, ErrZoneNotFound)
	}
	return zone, nil
}
