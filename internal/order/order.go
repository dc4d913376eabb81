// Package order models placed orders and checks that their money figures add up.
package order

import (
	"github.com/noah-isme/simrig-store/internal/money"
	"github.com/noah-isme/simrig-store/internal/pricing"
)

// SelectionEntry is one name/value pair of a configured product snapshot.
type SelectionEntry struct {
	Group     string `json:"group"`
	Component string `json:"component"`
}

// Item is an immutable order line snapshot.
type Item struct {
	ProductID    string           `json:"productId"`
	ProductName  string           `json:"productName"`
	SKU          string           `json:"sku"`
	OptionIDs    []string         `json:"optionIds"`
	Selection    []SelectionEntry `json:"selection"`
	Quantity     int              `json:"quantity"`
	UnitPrice    money.Amount     `json:"unitPrice"`
	UnitSubtotal money.Amount     `json:"unitSubtotal"`
	LineTotal    money.Amount     `json:"lineTotal"`
	LineSubtotal money.Amount     `json:"lineSubtotal"`
}

// Order aggregates the items and totals of a purchase.
type Order struct {
	ID           string       `json:"id,omitempty"`
	PostalCode   string       `json:"postalCode"`
	Items        []Item       `json:"items"`
	Subtotal     money.Amount `json:"subtotal"`
	VATAmount    money.Amount `json:"vatAmount"`
	ShippingCost money.Amount `json:"shippingCost"`
	TotalAmount  money.Amount `json:"totalAmount"`
}

// SelectionFromComponents converts resolved components into the stored name/value snapshot.
func SelectionFromComponents(components []pricing.ResolvedComponent) []SelectionEntry {
	out := make([]SelectionEntry, 0, len(components))
	for _, c := range components {
		out = append(out, SelectionEntry{Group: c.Group, Component: c.ComponentName})
	}
	return out
}

// LineFromPriced builds an order line from a pricing result.
func LineFromPriced(p pricing.Product, optionIDs []string, priced pricing.PricedLine, qty int) Item {
	return Item{
		ProductID:    p.ID,
		ProductName:  p.Name,
		SKU:          p.SKU,
		OptionIDs:    append([]string(nil), optionIDs...),
		Selection:    SelectionFromComponents(priced.Components),
		Quantity:     qty,
		UnitPrice:    priced.UnitPriceWithVAT,
		UnitSubtotal: priced.UnitPriceExVAT,
		LineTotal:    money.Mul(priced.UnitPriceWithVAT, qty),
		LineSubtotal: money.Mul(priced.UnitPriceExVAT, qty),
	}
}

func summaryLines(items []Item) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{Qty: it.Quantity, UnitPriceExVAT: it.UnitSubtotal, UnitPriceWithVAT: it.UnitPrice})
	}
	return lines
}

// VATFromLines sums Round2((unitPrice-unitSubtotal)*qty) over the items. Lines priced at
// different rates each contribute their own VAT.
func VATFromLines(items []Item) money.Amount {
	return pricing.Summarize(summaryLines(items), money.Zero).VAT
}

// Build assembles an order whose totals are consistent with its lines.
func Build(postalCode string, items []Item, shippingCost money.Amount) Order {
	summary := pricing.Summarize(summaryLines(items), shippingCost)
	return Order{
		PostalCode:   postalCode,
		Items:        items,
		Subtotal:     summary.Subtotal,
		VATAmount:    summary.VAT,
		ShippingCost: summary.Shipping,
		TotalAmount:  summary.Total,
	}
}

// WeightKg sums product weight times quantity. Items whose product has no weight count as zero.
func WeightKg(items []Item, weights map[string]money.Amount) money.Amount {
	total := money.Zero
	for _, it := range items {
		if w, ok := weights[it.ProductID]; ok && it.Quantity > 0 {
			total = total.Add(w.Mul(decimalQty(it.Quantity)))
		}
	}
	return total
}
