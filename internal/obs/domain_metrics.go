package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingSelectionsTotal counts configuration pricing outcomes.
	PricingSelectionsTotal *prometheus.CounterVec
	// ShippingQuotesTotal counts shipping quotes by matched zone and outcome.
	ShippingQuotesTotal *prometheus.CounterVec
	// OrderReconciliationsTotal counts order total reconciliation outcomes.
	OrderReconciliationsTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts orders accepted and handed off for persistence.
	OrdersPlacedTotal prometheus.Counter
	// CatalogCacheTotal counts catalog snapshot cache lookups.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingSelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_selections_total",
			Help:      "Count of configured product pricing attempts by outcome.",
		}, []string{"result"})
		ShippingQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_quotes_total",
			Help:      "Count of shipping quotes by zone and outcome.",
		}, []string{"zone", "result"})
		OrderReconciliationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_reconciliations_total",
			Help:      "Count of order total reconciliation checks by outcome.",
		}, []string{"result"})
		OrdersPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Number of orders accepted and handed off for persistence.",
		})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_lookups_total",
			Help:      "Catalog snapshot cache lookups by kind and result.",
		}, []string{"kind", "result"})

		PricingSelectionsTotal = register(reg, PricingSelectionsTotal)
		ShippingQuotesTotal = register(reg, ShippingQuotesTotal)
		OrderReconciliationsTotal = register(reg, OrderReconciliationsTotal)
		OrdersPlacedTotal = register(reg, OrdersPlacedTotal)
		CatalogCacheTotal = register(reg, CatalogCacheTotal)
	})
}

// ObservePricing records a pricing outcome when domain metrics are registered.
func ObservePricing(result string) {
	if PricingSelectionsTotal != nil {
		PricingSelectionsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveShippingQuote records a quote outcome when domain metrics are registered.
func ObserveShippingQuote(zone, result string) {
	if ShippingQuotesTotal != nil {
		ShippingQuotesTotal.WithLabelValues(zone, result).Inc()
	}
}

// ObserveReconciliation records a reconciliation outcome when domain metrics are registered.
func ObserveReconciliation(result string) {
	if OrderReconciliationsTotal != nil {
		OrderReconciliationsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveOrderPlaced counts an accepted order when domain metrics are registered.
func ObserveOrderPlaced() {
	if OrdersPlacedTotal != nil {
		OrdersPlacedTotal.Inc()
	}
}

// ObserveCatalogCache records a cache lookup when domain metrics are registered.
func ObserveCatalogCache(kind string, hit bool) {
	if CatalogCacheTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CatalogCacheTotal.WithLabelValues(kind, result).Inc()
}
