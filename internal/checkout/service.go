// Package checkout accepts client-submitted orders, re-checks every figure and hands the
// order off for persistence.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/simrig-store/internal/cart"
	"github.com/noah-isme/simrig-store/internal/common"
	"github.com/noah-isme/simrig-store/internal/events"
	"github.com/noah-isme/simrig-store/internal/money"
	"github.com/noah-isme/simrig-store/internal/obs"
	"github.com/noah-isme/simrig-store/internal/order"
)

// Drafter prices a cart into an authoritative order draft.
type Drafter interface {
	Draft(ctx context.Context, req cart.DraftRequest) (cart.Draft, error)
}

// Publisher hands events to background workers.
type Publisher interface {
	Emit(ctx context.Context, topic, key string, payload any) error
}

// ItemInput is one client-submitted order line.
type ItemInput struct {
	ProductID    string          `json:"productId" validate:"required"`
	OptionIDs    []string        `json:"optionIds"`
	Quantity     int             `json:"quantity" validate:"min=1"`
	UnitPrice    decimal.Decimal `json:"unitPrice" validate:"decimal_gte0"`
	UnitSubtotal decimal.Decimal `json:"unitSubtotal" validate:"decimal_gte0"`
	LineTotal    decimal.Decimal `json:"lineTotal" validate:"decimal_gte0"`
	LineSubtotal decimal.Decimal `json:"lineSubtotal" validate:"decimal_gte0"`
}

// Input is the order the storefront submits.
type Input struct {
	PostalCode   string          `json:"postalCode" validate:"required,postalcode"`
	Items        []ItemInput     `json:"items" validate:"required,min=1,dive"`
	Subtotal     decimal.Decimal `json:"subtotal" validate:"decimal_gte0"`
	VATAmount    decimal.Decimal `json:"vatAmount" validate:"decimal_gte0"`
	ShippingCost decimal.Decimal `json:"shippingCost" validate:"decimal_gte0"`
	TotalAmount  decimal.Decimal `json:"totalAmount" validate:"decimal_gte0"`
}

// Output describes an accepted order.
type Output struct {
	OrderID      string      `json:"orderId"`
	Status       string      `json:"status"`
	Order        order.Order `json:"order"`
	ZoneName     string      `json:"zoneName"`
	LeadTimeDays int         `json:"leadTimeDays"`
}

// StatusAccepted marks an order that passed every check and was queued for persistence.
const StatusAccepted = "ACCEPTED"

// Service places orders.
type Service struct {
	Cart     Drafter
	Events   Publisher
	Currency string
	Logger   zerolog.Logger
	NewID    func() string
	Now      func() time.Time
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Place validates the submitted order, reconciles its totals, re-prices it against the
// catalog and shipping zones, and publishes it. Nothing is published unless every check passes.
func (s *Service) Place(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Cart == nil || s.Events == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if err := common.ValidateStruct(in); err != nil {
		return Output{}, err
	}

	submitted := in.toOrder()
	if err := reconcileSubmitted(submitted); err != nil {
		obs.ObserveReconciliation("mismatch")
		s.Logger.Debug().Err(err).Str("postal_code", in.PostalCode).Msg("submitted order failed reconciliation")
		return Output{}, err
	}

	draft, err := s.Cart.Draft(ctx, in.draftRequest())
	if err != nil {
		return Output{}, err
	}
	if err := compareWithDraft(submitted, draft.Order); err != nil {
		obs.ObserveReconciliation("stale")
		s.Logger.Debug().Err(err).Str("postal_code", in.PostalCode).Msg("submitted order differs from current prices")
		return Output{}, err
	}
	obs.ObserveReconciliation("ok")

	placed := draft.Order
	placed.ID = s.newID()
	event := events.OrderPlaced{
		Order:        placed,
		Currency:     s.Currency,
		LeadTimeDays: draft.LeadTimeDays,
		PlacedAt:     s.now(),
	}
	if err := s.Events.Emit(ctx, events.TopicOrderPlaced, placed.ID, event); err != nil {
		s.Logger.Error().Err(err).Str("order_id", placed.ID).Msg("order hand-off failed")
		return Output{}, err
	}
	obs.ObserveOrderPlaced()
	s.Logger.Info().Str("order_id", placed.ID).Str("total", placed.TotalAmount.StringFixed(2)).Msg("order placed")

	return Output{
		OrderID:      placed.ID,
		Status:       StatusAccepted,
		Order:        placed,
		ZoneName:     draft.Shipping.ZoneName,
		LeadTimeDays: draft.LeadTimeDays,
	}, nil
}

func (in Input) toOrder() order.Order {
	items := make([]order.Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, order.Item{
			ProductID:    it.ProductID,
			OptionIDs:    it.OptionIDs,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			UnitSubtotal: it.UnitSubtotal,
			LineTotal:    it.LineTotal,
			LineSubtotal: it.LineSubtotal,
		})
	}
	return order.Order{
		PostalCode:   in.PostalCode,
		Items:        items,
		Subtotal:     in.Subtotal,
		VATAmount:    in.VATAmount,
		ShippingCost: in.ShippingCost,
		TotalAmount:  in.TotalAmount,
	}
}

func (in Input) draftRequest() cart.DraftRequest {
	lines := make([]cart.LineRequest, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, cart.LineRequest{ProductID: it.ProductID, OptionIDs: it.OptionIDs, Quantity: it.Quantity})
	}
	return cart.DraftRequest{PostalCode: in.PostalCode, Lines: lines}
}

// reconcileSubmitted checks that the submitted figures add up among themselves, VAT included.
func reconcileSubmitted(o order.Order) error {
	if err := order.Reconcile(o); err != nil {
		return err
	}
	if want := order.VATFromLines(o.Items); !money.WithinTolerance(o.VATAmount, want) {
		return &order.MismatchError{Field: "vatAmount", ItemIndex: -1, Expected: want, Actual: o.VATAmount}
	}
	return nil
}

// compareWithDraft checks every submitted figure against freshly computed ones. Unit prices
// within tolerance can still drift once scaled by quantity, so line and order totals are
// compared as well.
func compareWithDraft(submitted, current order.Order) error {
	for i, it := range submitted.Items {
		want := current.Items[i]
		checks := []struct {
			field       string
			got, expect money.Amount
		}{
			{"unitPrice", it.UnitPrice, want.UnitPrice},
			{"unitSubtotal", it.UnitSubtotal, want.UnitSubtotal},
			{"lineTotal", it.LineTotal, want.LineTotal},
			{"lineSubtotal", it.LineSubtotal, want.LineSubtotal},
		}
		for _, c := range checks {
			if !money.WithinTolerance(c.got, c.expect) {
				return &order.MismatchError{Field: c.field, ItemIndex: i, Expected: c.expect, Actual: c.got}
			}
		}
	}
	totals := []struct {
		field       string
		got, expect money.Amount
	}{
		{"subtotal", submitted.Subtotal, current.Subtotal},
		{"vatAmount", submitted.VATAmount, current.VATAmount},
		{"shippingCost", submitted.ShippingCost, current.ShippingCost},
		{"totalAmount", submitted.TotalAmount, current.TotalAmount},
	}
	for _, c := range totals {
		if !money.WithinTolerance(c.got, c.expect) {
			return &order.MismatchError{Field: c.field, ItemIndex: -1, Expected: c.expect, Actual: c.got}
		}
	}
	return nil
}
