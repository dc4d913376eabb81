package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/simrig-store/internal/money"
	"github.com/noah-isme/simrig-store/internal/obs"
)

// ZoneSource supplies the shipping zone table in its intended resolution order.
type ZoneSource interface {
	Zones(ctx context.Context) ([]Zone, error)
}

// Service quotes shipping against the zone table provided by Zones.
type Service struct {
	Zones  ZoneSource
	Logger zerolog.Logger
}

// Quote loads the current zone table and computes a quote.
func (s *Service) Quote(ctx context.Context, postalCode string, subtotal money.Amount, weightKg decimal.Decimal) (Quote, error) {
	if s == nil || s.Zones == nil {
		return Quote{}, errors.New("shipping zones not configured")
	}
	zones, err := s.Zones.Zones(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("load shipping zones: %w", err)
	}
	q, err := QuoteShipping(postalCode, subtotal, weightKg, zones)
	if err != nil {
		obs.ObserveShippingQuote("", "zone_not_found")
		s.Logger.Debug().Str("postal_code", postalCode).Int("zones", len(zones)).Msg("no shipping zone for postal code")
		return Quote{}, err
	}
	result := "paid"
	if q.IsFreeShipping {
		result = "free"
	}
	obs.ObserveShippingQuote(q.ZoneName, result)
	return q, nil
}

// StaticZones serves a fixed zone table.
type StaticZones []Zone

// Zones returns the table unchanged.
func (z StaticZones) Zones(context.Context) ([]Zone, error) {
	return []Zone(z), nil
}
