package events

import (
	"time"

	"github.com/noah-isme/simrig-store/internal/order"
)

// Topic constants for domain events emitted by the store.
const (
	TopicOrderPlaced    = "order.placed"
	TopicCatalogUpdated = "catalog.updated"
)

// DefaultTopics returns the topics the worker subscribes to.
func DefaultTopics() []string {
	return []string{TopicOrderPlaced, TopicCatalogUpdated}
}

// OrderPlaced is the payload of TopicOrderPlaced. The order has already passed
// reconciliation and carries its final id.
type OrderPlaced struct {
	Order        order.Order `json:"order"`
	Currency     string      `json:"currency"`
	LeadTimeDays int         `json:"leadTimeDays"`
	PlacedAt     time.Time   `json:"placedAt"`
}

// CatalogUpdated is emitted by back-office tooling after products, options or shipping zones
// change so cached snapshots are dropped before their TTL.
type CatalogUpdated struct {
	ProductIDs []string `json:"productIds"`
	Zones      bool     `json:"zones"`
}
