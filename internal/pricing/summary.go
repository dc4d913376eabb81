package pricing

import "github.com/noah-isme/simrig-store/internal/money"

// Line is a priced cart line used for aggregation.
type Line struct {
	Qty              int
	UnitPriceExVAT   money.Amount
	UnitPriceWithVAT money.Amount
}

// Summary aggregates the money figures of a cart.
type Summary struct {
	Subtotal money.Amount `json:"subtotal"`
	VAT      money.Amount `json:"vatAmount"`
	Shipping money.Amount `json:"shippingCost"`
	Total    money.Amount `json:"totalAmount"`
}

// Summarize totals priced lines and a shipping cost. Each line keeps the VAT rate it was priced
// with, so line VAT is the unit VAT-inclusive and ex-VAT difference times the quantity.
func Summarize(lines []Line, shipping money.Amount) Summary {
	subtotal := money.Zero
	vat := money.Zero
	for _, it := range lines {
		if it.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(money.Mul(it.UnitPriceExVAT, it.Qty))
		vat = vat.Add(money.Mul(it.UnitPriceWithVAT.Sub(it.UnitPriceExVAT), it.Qty))
	}
	if shipping.IsNegative() {
		shipping = money.Zero
	}
	return Summary{
		Subtotal: subtotal,
		VAT:      vat,
		Shipping: shipping,
		Total:    money.Round2(subtotal.Add(vat).Add(shipping)),
	}
}
