package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/simrig-store/internal/money"
)

var (
	// ErrPriceMismatch is returned when submitted order figures do not add up.
	ErrPriceMismatch = errors.New("price mismatch")
	// ErrEmptyOrder is returned when an order has no items.
	ErrEmptyOrder = errors.New("order has no items")
)

// MismatchError pinpoints the first figure that failed reconciliation. ItemIndex is -1 for
// order-level fields.
type MismatchError struct {
	Field     string
	ItemIndex int
	Expected  money.Amount
	Actual    money.Amount
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	if e.ItemIndex >= 0 {
		return fmt.Sprintf("price mismatch: items[%d].%s expected %s got %s", e.ItemIndex, e.Field, e.Expected.StringFixed(2), e.Actual.StringFixed(2))
	}
	return fmt.Sprintf("price mismatch: %s expected %s got %s", e.Field, e.Expected.StringFixed(2), e.Actual.StringFixed(2))
}

// Unwrap lets errors.Is match ErrPriceMismatch.
func (e *MismatchError) Unwrap() error { return ErrPriceMismatch }

// Reconcile verifies line and order totals within money.Tolerance. The VAT amount is trusted as
// given because lines may carry different rates. Nothing is corrected.
func Reconcile(o Order) error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	subtotal := money.Zero
	for i, it := range o.Items {
		if it.Quantity < 1 {
			return &MismatchError{Field: "quantity", ItemIndex: i, Expected: decimal.NewFromInt(1), Actual: decimalQty(it.Quantity)}
		}
		if want := money.Mul(it.UnitPrice, it.Quantity); !money.WithinTolerance(it.LineTotal, want) {
			return &MismatchError{Field: "lineTotal", ItemIndex: i, Expected: want, Actual: it.LineTotal}
		}
		if want := money.Mul(it.UnitSubtotal, it.Quantity); !money.WithinTolerance(it.LineSubtotal, want) {
			return &MismatchError{Field: "lineSubtotal", ItemIndex: i, Expected: want, Actual: it.LineSubtotal}
		}
		subtotal = subtotal.Add(it.LineSubtotal)
	}
	if !money.WithinTolerance(o.Subtotal, subtotal) {
		return &MismatchError{Field: "subtotal", ItemIndex: -1, Expected: subtotal, Actual: o.Subtotal}
	}
	total := money.Round2(o.Subtotal.Add(o.VATAmount).Add(o.ShippingCost))
	if !money.WithinTolerance(o.TotalAmount, total) {
		return &MismatchError{Field: "totalAmount", ItemIndex: -1, Expected: total, Actual: o.TotalAmount}
	}
	return nil
}

func decimalQty(qty int) decimal.Decimal {
	return decimal.NewFromInt(int64(qty))
}
