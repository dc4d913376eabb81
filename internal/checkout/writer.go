package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/simrig-store/internal/events"
)

// TxBeginner is satisfied by pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Writer persists placed orders on the worker side.
type Writer struct {
	DB     TxBeginner
	Logger zerolog.Logger
}

const insertOrderSQL = `
INSERT INTO orders (id, postal_code, subtotal, vat_amount, shipping_cost, total_amount,
                    currency, lead_time_days, placed_at)
VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`

const insertOrderItemSQL = `
INSERT INTO order_items (order_id, line_no, product_id, product_name, sku, option_ids, selection,
                         quantity, unit_price, unit_subtotal, line_total, line_subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9::numeric, $10::numeric, $11::numeric, $12::numeric)`

// HandleOrderPlaced writes the order and its items in one transaction. Orders whose id is
// already present are skipped so task retries stay idempotent.
func (w *Writer) HandleOrderPlaced(ctx context.Context, ev events.OrderPlaced) error {
	if w == nil || w.DB == nil {
		return errors.New("order writer not configured")
	}
	o := ev.Order
	if o.ID == "" {
		return errors.New("order id is required")
	}
	tx, err := w.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.PostalCode,
		o.Subtotal.StringFixed(2), o.VATAmount.StringFixed(2), o.ShippingCost.StringFixed(2), o.TotalAmount.StringFixed(2),
		ev.Currency, ev.LeadTimeDays, ev.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		w.Logger.Info().Str("order_id", o.ID).Msg("order already persisted")
		return nil
	}

	for i, it := range o.Items {
		selection, err := json.Marshal(it.Selection)
		if err != nil {
			return fmt.Errorf("encode selection: %w", err)
		}
		optionIDs := it.OptionIDs
		if optionIDs == nil {
			optionIDs = []string{}
		}
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			o.ID, i+1, it.ProductID, it.ProductName, it.SKU, optionIDs, string(selection), it.Quantity,
			it.UnitPrice.StringFixed(2), it.UnitSubtotal.StringFixed(2), it.LineTotal.StringFixed(2), it.LineSubtotal.StringFixed(2),
		); err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	w.Logger.Info().Str("order_id", o.ID).Int("items", len(o.Items)).Msg("order persisted")
	return nil
}
