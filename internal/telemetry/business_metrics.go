package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability
// of the cart and catalog.
type BusinessMetrics struct {
	// Product engagement
	ProductViews     *prometheus.CounterVec
	ProductAddToCart *prometheus.CounterVec

	// Cart
	CartsCreated  prometheus.Counter
	CartsCleared  prometheus.Counter
	CartItemsAdd  prometheus.Counter
	CartValue     prometheus.Histogram
	GuestMerges   prometheus.Counter
	CartConflicts prometheus.Counter
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "attar"
	}

	subsystem := "business"

	return &BusinessMetrics{
		ProductViews: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_views_total",
				Help:      "Total product detail requests",
			},
			[]string{"product_slug"},
		),
		ProductAddToCart: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_add_to_cart_total",
				Help:      "Total add to cart actions per product",
			},
			[]string{"product_id"},
		),
		CartsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "carts_created_total",
				Help:      "Total carts persisted for the first time",
			},
		),
		CartsCleared: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "carts_cleared_total",
				Help:      "Total explicit cart clears",
			},
		),
		CartItemsAdd: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total units added to carts",
			},
		),
		CartValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_value",
				Help:      "Cart grand total after each mutation",
				Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
		),
		GuestMerges: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "guest_cart_merges_total",
				Help:      "Total guest carts merged into user carts at login",
			},
		),
		CartConflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_version_conflicts_total",
				Help:      "Total cart saves rejected by the version check",
			},
		),
	}
}
