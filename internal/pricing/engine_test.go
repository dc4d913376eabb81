package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simrig-store/internal/money"
)

func wheelBase() Product {
	return Product{
		ID:               "wb-1",
		SKU:              "WB-DD-12",
		Name:             "Direct Drive Wheel Base",
		BasePrice:        money.MustParse("100.00"),
		VATRate:          decimal.NewFromInt(21),
		IsCustomizable:   true,
		BaseLeadTimeDays: 5,
		WeightKg:         money.MustParse("2"),
	}
}

func wheelBaseOptions() []ComponentOption {
	return []ComponentOption{
		{ID: "rim-gt", ProductID: "wb-1", OptionGroup: "Rim", IsGroupRequired: true, IsDefault: true, PriceModifier: money.MustParse("20.00"), ComponentID: "c-rim-gt", ComponentName: "GT Rim", DisplayOrder: 1, LeadTimeDays: 2},
		{ID: "rim-f1", ProductID: "wb-1", OptionGroup: "Rim", IsGroupRequired: true, PriceModifier: money.MustParse("45.50"), ComponentID: "c-rim-f1", ComponentName: "Formula Rim", DisplayOrder: 2, LeadTimeDays: 7},
		{ID: "qr-std", ProductID: "wb-1", OptionGroup: "Quick Release", PriceModifier: money.MustParse("0"), ComponentID: "c-qr", ComponentName: "Standard QR", DisplayOrder: 0},
		{ID: "qr-pro", ProductID: "wb-1", OptionGroup: "Quick Release", IsDefault: true, PriceModifier: money.MustParse("12.49"), ComponentID: "c-qr-pro", ComponentName: "Pro QR", DisplayOrder: 3, LeadTimeDays: 1},
		{ID: "other-product", ProductID: "pedals-1", OptionGroup: "Rim", PriceModifier: money.MustParse("1"), ComponentID: "c-x", ComponentName: "Foreign"},
	}
}

func TestPriceSelectionNonCustomizable(t *testing.T) {
	p := Product{ID: "p-1", BasePrice: money.MustParse("100.00"), VATRate: decimal.NewFromInt(21)}

	line, err := PriceSelection(p, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "100.00", line.UnitPriceExVAT.StringFixed(2))
	require.Equal(t, "121.00", line.UnitPriceWithVAT.StringFixed(2))
	require.Empty(t, line.Components)
}

func TestPriceSelectionRequiredGroup(t *testing.T) {
	line, err := PriceSelection(wheelBase(), wheelBaseOptions(), []string{"rim-gt"})
	require.NoError(t, err)
	require.Equal(t, "120.00", line.UnitPriceExVAT.StringFixed(2))
	require.Equal(t, "145.20", line.UnitPriceWithVAT.StringFixed(2))
	require.True(t, line.VATRate.Equal(decimal.NewFromInt(21)))
	require.Equal(t, []ResolvedComponent{{Group: "Rim", ComponentID: "c-rim-gt", ComponentName: "GT Rim"}}, line.Components)
	require.Equal(t, 7, line.LeadTimeDays)
}

func TestPriceSelectionMissingRequiredGroup(t *testing.T) {
	_, err := PriceSelection(wheelBase(), wheelBaseOptions(), []string{"qr-pro"})
	require.ErrorIs(t, err, ErrMissingRequiredGroup)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "Rim", verr.Group)
}

func TestPriceSelectionDoesNotInjectDefaults(t *testing.T) {
	_, err := PriceSelection(wheelBase(), wheelBaseOptions(), nil)
	require.ErrorIs(t, err, ErrMissingRequiredGroup)
}

func TestPriceSelectionMultipleInGroup(t *testing.T) {
	_, err := PriceSelection(wheelBase(), wheelBaseOptions(), []string{"rim-gt", "rim-f1"})
	require.ErrorIs(t, err, ErrMultipleSelectionsInGroup)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "Rim", verr.Group)

	_, err = PriceSelection(wheelBase(), wheelBaseOptions(), []string{"rim-gt", "rim-gt"})
	require.ErrorIs(t, err, ErrMultipleSelectionsInGroup)
}

func TestPriceSelectionUnknownOption(t *testing.T) {
	for _, ids := range [][]string{
		{"rim-gt", "does-not-exist"},
		{"rim-gt", "other-product"},
	} {
		_, err := PriceSelection(wheelBase(), wheelBaseOptions(), ids)
		require.ErrorIs(t, err, ErrUnknownOption)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, ids[1], verr.OptionID)
	}
}

func TestPriceSelectionUnknownWinsOverGroupRules(t *testing.T) {
	_, err := PriceSelection(wheelBase(), wheelBaseOptions(), []string{"rim-gt", "rim-f1", "nope"})
	require.ErrorIs(t, err, ErrUnknownOption)
}

func TestPriceSelectionRejectsOptionsOnFixedProduct(t *testing.T) {
	p := wheelBase()
	p.IsCustomizable = false
	_, err := PriceSelection(p, wheelBaseOptions(), []string{"rim-gt"})
	require.ErrorIs(t, err, ErrUnknownOption)

	line, err := PriceSelection(p, wheelBaseOptions(), nil)
	require.NoError(t, err)
	require.Equal(t, "121.00", line.UnitPriceWithVAT.StringFixed(2))
}

func TestPriceSelectionComponentsInDisplayOrder(t *testing.T) {
	line, err := PriceSelection(wheelBase(), wheelBaseOptions(), []string{"rim-f1", "qr-std"})
	require.NoError(t, err)
	require.Len(t, line.Components, 2)
	require.Equal(t, "Quick Release", line.Components[0].Group)
	require.Equal(t, "Rim", line.Components[1].Group)
	require.Equal(t, "145.50", line.UnitPriceExVAT.StringFixed(2))
	require.Equal(t, "176.06", line.UnitPriceWithVAT.StringFixed(2))
}

func TestPriceSelectionIdempotent(t *testing.T) {
	ids := []string{"qr-pro", "rim-f1"}
	first, err := PriceSelection(wheelBase(), wheelBaseOptions(), ids)
	require.NoError(t, err)
	second, err := PriceSelection(wheelBase(), wheelBaseOptions(), ids)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, []string{"qr-pro", "rim-f1"}, ids)
}

func TestPriceSelectionMonotonic(t *testing.T) {
	base, err := PriceSelection(wheelBase(), wheelBaseOptions(), []string{"rim-gt"})
	require.NoError(t, err)
	more, err := PriceSelection(wheelBase(), wheelBaseOptions(), []string{"rim-gt", "qr-pro"})
	require.NoError(t, err)
	require.True(t, more.UnitPriceExVAT.GreaterThanOrEqual(base.UnitPriceExVAT))
	require.True(t, more.UnitPriceWithVAT.GreaterThanOrEqual(base.UnitPriceWithVAT))
}

func TestDefaultSelection(t *testing.T) {
	ids := DefaultSelection(wheelBase(), wheelBaseOptions())
	require.Equal(t, []string{"rim-gt", "qr-pro"}, ids)

	line, err := PriceSelection(wheelBase(), wheelBaseOptions(), ids)
	require.NoError(t, err)
	require.Equal(t, "132.49", line.UnitPriceExVAT.StringFixed(2))

	fixed := wheelBase()
	fixed.IsCustomizable = false
	require.Nil(t, DefaultSelection(fixed, wheelBaseOptions()))
}

func TestSummarize(t *testing.T) {
	lines := []Line{
		{Qty: 2, UnitPriceExVAT: money.MustParse("120.00"), UnitPriceWithVAT: money.MustParse("145.20")},
		{Qty: 1, UnitPriceExVAT: money.MustParse("50.00"), UnitPriceWithVAT: money.MustParse("55.00")},
		{Qty: 0, UnitPriceExVAT: money.MustParse("999"), UnitPriceWithVAT: money.MustParse("999")},
	}
	summary := Summarize(lines, money.MustParse("12.00"))
	require.Equal(t, "290.00", summary.Subtotal.StringFixed(2))
	require.Equal(t, "55.40", summary.VAT.StringFixed(2))
	require.Equal(t, "12.00", summary.Shipping.StringFixed(2))
	require.Equal(t, "357.40", summary.Total.StringFixed(2))

	require.True(t, Summarize(nil, money.MustParse("-3")).Shipping.IsZero())
}
