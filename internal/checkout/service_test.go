package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simrig-store/internal/cart"
	"github.com/noah-isme/simrig-store/internal/catalog"
	"github.com/noah-isme/simrig-store/internal/events"
	"github.com/noah-isme/simrig-store/internal/money"
	"github.com/noah-isme/simrig-store/internal/order"
	"github.com/noah-isme/simrig-store/internal/pricing"
	"github.com/noah-isme/simrig-store/internal/shipping"
)

type fakeCatalog map[string]catalog.Snapshot

func (f fakeCatalog) Snapshot(_ context.Context, id string) (catalog.Snapshot, error) {
	snap, ok := f[id]
	if !ok {
		return catalog.Snapshot{}, catalog.ErrProductNotFound
	}
	return snap, nil
}

type capturePublisher struct {
	topic string
	key   string
	event events.OrderPlaced
	calls int
	err   error
}

func (c *capturePublisher) Emit(_ context.Context, topic, key string, payload any) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	c.topic, c.key = topic, key
	c.event = payload.(events.OrderPlaced)
	return nil
}

func newService(pub *capturePublisher) *Service {
	cat := fakeCatalog{
		"wheel": {
			Product: pricing.Product{
				ID: "wheel", SKU: "WB-1", Name: "Wheel Base", BasePrice: money.MustParse("100.00"),
				VATRate: decimal.NewFromInt(21), IsCustomizable: true, WeightKg: money.MustParse("2"),
			},
			Options: []pricing.ComponentOption{
				{ID: "rim-gt", ProductID: "wheel", OptionGroup: "Rim", IsGroupRequired: true, PriceModifier: money.MustParse("20.00"), ComponentName: "GT Rim"},
			},
		},
	}
	zones := shipping.StaticZones{
		{Name: "Baleares", PostalCodePrefixes: "07", BaseCost: money.MustParse("10.00"), CostPerKg: money.MustParse("1.00"), FreeShippingThreshold: money.MustParse("150.00"), IsActive: true},
	}
	return &Service{
		Cart:     &cart.Service{Catalog: cat, Shipping: &shipping.Service{Zones: zones}},
		Events:   pub,
		Currency: "EUR",
		NewID:    func() string { return "order-1" },
		Now:      func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

// validInput is one wheel at 145.20 shipped to 07001: subtotal 120.00 is below the
// threshold, so shipping is 10.00 + 2kg * 1.00.
func validInput() Input {
	return Input{
		PostalCode: "07001",
		Items: []ItemInput{{
			ProductID: "wheel", OptionIDs: []string{"rim-gt"}, Quantity: 1,
			UnitPrice: money.MustParse("145.20"), UnitSubtotal: money.MustParse("120.00"),
			LineTotal: money.MustParse("145.20"), LineSubtotal: money.MustParse("120.00"),
		}},
		Subtotal:     money.MustParse("120.00"),
		VATAmount:    money.MustParse("25.20"),
		ShippingCost: money.MustParse("12.00"),
		TotalAmount:  money.MustParse("157.20"),
	}
}

func TestPlacePublishesOrder(t *testing.T) {
	pub := &capturePublisher{}
	out, err := newService(pub).Place(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, "order-1", out.OrderID)
	require.Equal(t, StatusAccepted, out.Status)
	require.Equal(t, "Baleares", out.ZoneName)

	require.Equal(t, events.TopicOrderPlaced, pub.topic)
	require.Equal(t, "order-1", pub.key)
	require.Equal(t, "order-1", pub.event.Order.ID)
	require.Equal(t, "EUR", pub.event.Currency)
	require.Equal(t, "Wheel Base", pub.event.Order.Items[0].ProductName)
	require.Equal(t, "157.20", pub.event.Order.TotalAmount.StringFixed(2))
	require.NoError(t, order.Reconcile(pub.event.Order))
}

func TestPlaceAcceptsOneCentDrift(t *testing.T) {
	in := validInput()
	in.TotalAmount = money.MustParse("157.21")
	_, err := newService(&capturePublisher{}).Place(context.Background(), in)
	require.NoError(t, err)
}

func TestPlaceRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		target error
		field  string
	}{
		{"total off", func(in *Input) { in.TotalAmount = money.MustParse("150.00") }, order.ErrPriceMismatch, "totalAmount"},
		{"line total off", func(in *Input) { in.Items[0].LineTotal = money.MustParse("140.00") }, order.ErrPriceMismatch, "lineTotal"},
		{"stale unit price", func(in *Input) {
			in.Items[0].UnitPrice = money.MustParse("140.00")
			in.Items[0].LineTotal = money.MustParse("140.00")
			in.VATAmount = money.MustParse("20.00")
			in.TotalAmount = money.MustParse("152.00")
		}, order.ErrPriceMismatch, "unitPrice"},
		{"shipping understated", func(in *Input) {
			in.ShippingCost = money.Zero
			in.TotalAmount = money.MustParse("145.20")
		}, order.ErrPriceMismatch, "shippingCost"},
		{"vat understated", func(in *Input) {
			in.VATAmount = money.MustParse("20.00")
			in.TotalAmount = money.MustParse("152.00")
		}, order.ErrPriceMismatch, "vatAmount"},
		{"vat not backed by lines", func(in *Input) {
			in.VATAmount = money.MustParse("25.00")
			in.ShippingCost = money.MustParse("12.20")
		}, order.ErrPriceMismatch, "vatAmount"},
		{"quantity scaled drift", func(in *Input) {
			// each unit is within a cent of 145.20/120.00 but a hundred of them are not
			in.Items[0].Quantity = 100
			in.Items[0].UnitPrice = money.MustParse("145.19")
			in.Items[0].UnitSubtotal = money.MustParse("119.99")
			in.Items[0].LineTotal = money.MustParse("14519.00")
			in.Items[0].LineSubtotal = money.MustParse("11999.00")
			in.Subtotal = money.MustParse("11999.00")
			in.VATAmount = money.MustParse("2520.00")
			in.ShippingCost = money.Zero
			in.TotalAmount = money.MustParse("14519.00")
		}, order.ErrPriceMismatch, "lineTotal"},
		{"zone missing", func(in *Input) { in.PostalCode = "99999" }, shipping.ErrZoneNotFound, ""},
		{"missing group", func(in *Input) { in.Items[0].OptionIDs = nil }, pricing.ErrMissingRequiredGroup, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &capturePublisher{}
			in := validInput()
			tc.mutate(&in)
			_, err := newService(pub).Place(context.Background(), in)
			require.ErrorIs(t, err, tc.target)
			if tc.field != "" {
				var mismatch *order.MismatchError
				require.ErrorAs(t, err, &mismatch)
				require.Equal(t, tc.field, mismatch.Field)
			}
			require.Zero(t, pub.calls)
		})
	}
}

func TestPlaceStructuralValidation(t *testing.T) {
	pub := &capturePublisher{}
	in := validInput()
	in.PostalCode = "7001"
	_, err := newService(pub).Place(context.Background(), in)
	require.Error(t, err)
	require.Zero(t, pub.calls)

	in = validInput()
	in.Items[0].Quantity = 0
	_, err = newService(pub).Place(context.Background(), in)
	require.Error(t, err)
	require.Zero(t, pub.calls)
}

func TestPlacePublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("queue down")}
	_, err := newService(pub).Place(context.Background(), validInput())
	require.Error(t, err)
}

func TestPlaceOrderHandler(t *testing.T) {
	h := &Handler{Svc: newService(&capturePublisher{})}

	body, err := json.Marshal(validInput())
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.PlaceOrder(rr, httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"orderId":"order-1"`)
	require.Contains(t, rr.Body.String(), `"currency":"EUR"`)

	bad := validInput()
	bad.TotalAmount = money.MustParse("1.00")
	body, err = json.Marshal(bad)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	h.PlaceOrder(rr, httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body)))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "PRICE_MISMATCH")
}
