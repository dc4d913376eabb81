// Package cart prices configured products and shipping for the storefront before checkout.
package cart

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/simrig-store/internal/catalog"
	"github.com/noah-isme/simrig-store/internal/common"
	"github.com/noah-isme/simrig-store/internal/money"
	"github.com/noah-isme/simrig-store/internal/obs"
	"github.com/noah-isme/simrig-store/internal/order"
	"github.com/noah-isme/simrig-store/internal/pricing"
	"github.com/noah-isme/simrig-store/internal/shipping"
)

// Catalog supplies product snapshots.
type Catalog interface {
	Snapshot(ctx context.Context, productID string) (catalog.Snapshot, error)
}

// Shipping quotes a package against the current zone table.
type Shipping interface {
	Quote(ctx context.Context, postalCode string, subtotal money.Amount, weightKg decimal.Decimal) (shipping.Quote, error)
}

// Service prices cart lines and shipping quotes.
type Service struct {
	Catalog  Catalog
	Shipping Shipping
	Logger   zerolog.Logger
}

// LineRequest asks for the price of one configured product.
type LineRequest struct {
	ProductID string   `json:"productId" validate:"required"`
	OptionIDs []string `json:"optionIds"`
	Quantity  int      `json:"quantity" validate:"min=1"`
}

// Line is a priced cart line snapshot.
type Line struct {
	order.Item
	VATRate      decimal.Decimal             `json:"vatRate"`
	Components   []pricing.ResolvedComponent `json:"components"`
	LeadTimeDays int                         `json:"leadTimeDays"`
	WeightKg     decimal.Decimal             `json:"weightKg"`
}

// QuoteRequest asks for a shipping quote.
type QuoteRequest struct {
	PostalCode string          `json:"postalCode" validate:"required,postalcode"`
	Subtotal   decimal.Decimal `json:"subtotal" validate:"decimal_gte0"`
	WeightKg   decimal.Decimal `json:"weightKg"`
}

// DraftRequest asks for a fully priced order draft.
type DraftRequest struct {
	PostalCode string        `json:"postalCode" validate:"required,postalcode"`
	Lines      []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// Draft is an order whose figures the storefront can submit unchanged to checkout.
type Draft struct {
	Order        order.Order    `json:"order"`
	Shipping     shipping.Quote `json:"shipping"`
	WeightKg     money.Amount   `json:"weightKg"`
	LeadTimeDays int            `json:"leadTimeDays"`
}

func (s *Service) ready() error {
	if s == nil || s.Catalog == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// PriceLine validates a selection against the product's option groups and prices it.
func (s *Service) PriceLine(ctx context.Context, req LineRequest) (Line, error) {
	if err := s.ready(); err != nil {
		return Line{}, err
	}
	if err := common.ValidateStruct(req); err != nil {
		return Line{}, err
	}
	snap, err := s.Catalog.Snapshot(ctx, req.ProductID)
	if err != nil {
		return Line{}, err
	}
	priced, err := pricing.PriceSelection(snap.Product, snap.Options, req.OptionIDs)
	if err != nil {
		obs.ObservePricing("rejected")
		s.Logger.Debug().Err(err).Str("product_id", req.ProductID).Strs("option_ids", req.OptionIDs).Msg("selection rejected")
		return Line{}, err
	}
	obs.ObservePricing("ok")
	return Line{
		Item:         order.LineFromPriced(snap.Product, req.OptionIDs, priced, req.Quantity),
		VATRate:      priced.VATRate,
		Components:   priced.Components,
		LeadTimeDays: priced.LeadTimeDays,
		WeightKg:     priced.WeightKg,
	}, nil
}

// Defaults returns the option ids a configurator should pre-select. They are never applied
// implicitly by PriceLine.
func (s *Service) Defaults(ctx context.Context, productID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	snap, err := s.Catalog.Snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	return pricing.DefaultSelection(snap.Product, snap.Options), nil
}

// QuoteShipping quotes shipping for a postal code, cart subtotal and package weight.
func (s *Service) QuoteShipping(ctx context.Context, req QuoteRequest) (shipping.Quote, error) {
	if s == nil || s.Shipping == nil {
		return shipping.Quote{}, errors.New("shipping not configured")
	}
	if err := common.ValidateStruct(req); err != nil {
		return shipping.Quote{}, err
	}
	return s.Shipping.Quote(ctx, req.PostalCode, req.Subtotal, req.WeightKg)
}

// Draft prices every line, quotes shipping on the ex-VAT subtotal and summed weight, and
// assembles the order totals.
func (s *Service) Draft(ctx context.Context, req DraftRequest) (Draft, error) {
	if err := s.ready(); err != nil {
		return Draft{}, err
	}
	if err := common.ValidateStruct(req); err != nil {
		return Draft{}, err
	}
	items := make([]order.Item, 0, len(req.Lines))
	weights := make(map[string]money.Amount, len(req.Lines))
	subtotal := money.Zero
	leadTime := 0
	for _, lr := range req.Lines {
		line, err := s.PriceLine(ctx, lr)
		if err != nil {
			return Draft{}, err
		}
		items = append(items, line.Item)
		weights[line.ProductID] = line.WeightKg
		subtotal = subtotal.Add(line.LineSubtotal)
		leadTime = max(leadTime, line.LeadTimeDays)
	}
	weight := order.WeightKg(items, weights)
	quote, err := s.QuoteShipping(ctx, QuoteRequest{PostalCode: req.PostalCode, Subtotal: subtotal, WeightKg: weight})
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		Order:        order.Build(req.PostalCode, items, quote.TotalCost),
		Shipping:     quote,
		WeightKg:     weight,
		LeadTimeDays: leadTime,
	}, nil
}
