package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/simrig-store/internal/money"
	"github.com/noah-isme/simrig-store/internal/pricing"
	"github.com/noah-isme/simrig-store/internal/shipping"
)

// ErrProductNotFound is returned when the product does not exist or is not sellable.
var ErrProductNotFound = errors.New("product not found")

// Store reads catalog and shipping-zone rows.
type Store interface {
	GetProduct(ctx context.Context, id string) (pricing.Product, error)
	ListOptions(ctx context.Context, productID string) ([]pricing.ComponentOption, error)
	ListZones(ctx context.Context) ([]shipping.Zone, error)
}

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	DB DBTX
}

// NewPGStore constructs a PGStore.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{DB: db}
}

const getProductSQL = `
SELECT id::text, sku, name, base_price::text, vat_rate::text, is_customizable,
       base_lead_time_days, COALESCE(weight_kg, 0)::text
FROM products
WHERE id = $1 AND is_active`

// GetProduct loads a sellable product.
func (s *PGStore) GetProduct(ctx context.Context, id string) (pricing.Product, error) {
	var (
		p                      pricing.Product
		basePrice, vat, weight string
	)
	err := s.DB.QueryRow(ctx, getProductSQL, id).Scan(
		&p.ID, &p.SKU, &p.Name, &basePrice, &vat, &p.IsCustomizable, &p.BaseLeadTimeDays, &weight,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Product{}, ErrProductNotFound
		}
		return pricing.Product{}, fmt.Errorf("get product: %w", err)
	}
	if p.BasePrice, err = money.Parse(basePrice); err != nil {
		return pricing.Product{}, err
	}
	if p.VATRate, err = money.Parse(vat); err != nil {
		return pricing.Product{}, err
	}
	if p.WeightKg, err = money.Parse(weight); err != nil {
		return pricing.Product{}, err
	}
	return p, nil
}

const listOptionsSQL = `
SELECT o.id::text, o.product_id::text, o.option_group, o.is_group_required, o.is_default,
       o.price_modifier::text, c.id::text, c.name, o.display_order, c.lead_time_days
FROM product_component_options o
JOIN components c ON c.id = o.component_id
WHERE o.product_id = $1
ORDER BY o.display_order, o.id`

// ListOptions loads every component option of a product, including unselected ones.
func (s *PGStore) ListOptions(ctx context.Context, productID string) ([]pricing.ComponentOption, error) {
	rows, err := s.DB.Query(ctx, listOptionsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()
	var out []pricing.ComponentOption
	for rows.Next() {
		var (
			opt      pricing.ComponentOption
			modifier string
		)
		if err := rows.Scan(
			&opt.ID, &opt.ProductID, &opt.OptionGroup, &opt.IsGroupRequired, &opt.IsDefault,
			&modifier, &opt.ComponentID, &opt.ComponentName, &opt.DisplayOrder, &opt.LeadTimeDays,
		); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if opt.PriceModifier, err = money.Parse(modifier); err != nil {
			return nil, err
		}
		out = append(out, opt)
	}
	return out, rows.Err()
}

const listZonesSQL = `
SELECT name, postal_code_prefixes, base_cost::text, cost_per_kg::text,
       free_shipping_threshold::text, is_active
FROM shipping_zones
WHERE is_active
ORDER BY sort_order, name`

// ListZones loads the active shipping zones in resolution order.
func (s *PGStore) ListZones(ctx context.Context) ([]shipping.Zone, error) {
	rows, err := s.DB.Query(ctx, listZonesSQL)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()
	var out []shipping.Zone
	for rows.Next() {
		var (
			z                          shipping.Zone
			base, perKg, freeThreshold string
		)
		if err := rows.Scan(&z.Name, &z.PostalCodePrefixes, &base, &perKg, &freeThreshold, &z.IsActive); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		if z.BaseCost, err = money.Parse(base); err != nil {
			return nil, err
		}
		if z.CostPerKg, err = money.Parse(perKg); err != nil {
			return nil, err
		}
		if z.FreeShippingThreshold, err = money.Parse(freeThreshold); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}
