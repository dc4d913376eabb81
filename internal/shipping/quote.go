package shipping

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/simrig-store/internal/money"
)

// ErrZoneNotFound is returned when no active zone serves the postal code.
var ErrZoneNotFound = errors.New("shipping zone not found")

// Quote is the computed shipping cost for one destination and cart.
type Quote struct {
	ZoneName                      string       `json:"zoneName"`
	BaseCost                      money.Amount `json:"baseCost"`
	WeightCost                    money.Amount `json:"weightCost"`
	TotalCost                     money.Amount `json:"totalCost"`
	IsFreeShipping                bool         `json:"isFreeShipping"`
	FreeShippingThreshold         money.Amount `json:"freeShippingThreshold"`
	SubtotalNeededForFreeShipping money.Amount `json:"subtotalNeededForFreeShipping"`
}

// QuoteShipping resolves the zone for postalCode and prices a package of weightKg for a cart
// worth subtotal. Negative weights count as zero.
func QuoteShipping(postalCode string, subtotal money.Amount, weightKg decimal.Decimal, zones []Zone) (Quote, error) {
	zone, ok := ResolveZone(postalCode, zones)
	if !ok {
		return Quote{}, ErrZoneNotFound
	}
	return quoteZone(zone, subtotal, weightKg), nil
}

func quoteZone(zone Zone, subtotal money.Amount, weightKg decimal.Decimal) Quote {
	weight := money.Max(weightKg, decimal.Zero)
	weightCost := money.Round2(weight.Mul(zone.CostPerKg))
	baseTotal := zone.BaseCost.Add(weightCost)

	threshold := zone.FreeShippingThreshold
	free := !threshold.IsPositive() || subtotal.GreaterThanOrEqual(threshold)

	q := Quote{
		ZoneName:                      zone.Name,
		BaseCost:                      zone.BaseCost,
		WeightCost:                    weightCost,
		TotalCost:                     baseTotal,
		IsFreeShipping:                free,
		FreeShippingThreshold:         threshold,
		SubtotalNeededForFreeShipping: money.Zero,
	}
	if free {
		q.TotalCost = money.Zero
	} else {
		q.SubtotalNeededForFreeShipping = money.Round2(threshold.Sub(subtotal))
	}
	return q
}
