package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/simrig-store/internal/events"
	"github.com/noah-isme/simrig-store/internal/obs"
	"github.com/noah-isme/simrig-store/internal/pricing"
	"github.com/noah-isme/simrig-store/internal/shipping"
)

const zonesKey = "zones"

// Snapshot is a product together with every component option it offers.
type Snapshot struct {
	Product pricing.Product           `json:"product"`
	Options []pricing.ComponentOption `json:"options"`
}

// ServiceConfig configures the catalog service.
type ServiceConfig struct {
	Store  Store
	Cache  *Cache
	Logger zerolog.Logger
}

// Service is a read-through cache over the catalog store.
type Service struct {
	store  Store
	cache  *Cache
	logger zerolog.Logger
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}, nil
}

func productKey(id string) string {
	return "product:" + id
}

// Snapshot returns the product and its options, consulting the cache first.
func (s *Service) Snapshot(ctx context.Context, productID string) (Snapshot, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Snapshot{}, ErrProductNotFound
	}
	var snap Snapshot
	if s.readCache(ctx, "product", productKey(productID), &snap) {
		return snap, nil
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return Snapshot{}, err
	}
	options, err := s.store.ListOptions(ctx, productID)
	if err != nil {
		return Snapshot{}, err
	}
	snap = Snapshot{Product: product, Options: options}
	s.writeCache(ctx, productKey(productID), snap)
	return snap, nil
}

// Zones returns the active shipping zones in resolution order.
func (s *Service) Zones(ctx context.Context) ([]shipping.Zone, error) {
	var zones []shipping.Zone
	if s.readCache(ctx, "zones", zonesKey, &zones) {
		return zones, nil
	}
	zones, err := s.store.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, zonesKey, zones)
	return zones, nil
}

// InvalidateProduct drops the cached snapshot of a product.
func (s *Service) InvalidateProduct(ctx context.Context, productID string) error {
	return s.cache.Delete(ctx, productKey(productID))
}

// InvalidateZones drops the cached zone table.
func (s *Service) InvalidateZones(ctx context.Context) error {
	return s.cache.Delete(ctx, zonesKey)
}

// HandleCatalogUpdated drops the cached snapshots named by the event.
func (s *Service) HandleCatalogUpdated(ctx context.Context, ev events.CatalogUpdated) error {
	keys := make([]string, 0, len(ev.ProductIDs)+1)
	for _, id := range ev.ProductIDs {
		if id = strings.TrimSpace(id); id != "" {
			keys = append(keys, productKey(id))
		}
	}
	if ev.Zones {
		keys = append(keys, zonesKey)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return err
	}
	s.logger.Info().Strs("products", ev.ProductIDs).Bool("zones", ev.Zones).Msg("catalog cache invalidated")
	return nil
}

func (s *Service) readCache(ctx context.Context, kind, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		return false
	}
	obs.ObserveCatalogCache(kind, hit)
	return hit
}

func (s *Service) writeCache(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}

var _ shipping.ZoneSource = (*Service)(nil)
