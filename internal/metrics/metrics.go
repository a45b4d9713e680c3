package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipe_planner_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_planner_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipe_planner_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// 購物清單
	GroceryListsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_planner_grocery_lists_generated_total",
			Help: "Total number of grocery lists generated",
		},
		[]string{"source", "format"},
	)

	GroceryListItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipe_planner_grocery_list_items",
			Help:    "Number of aggregated items per grocery list",
			Buckets: []float64{0, 5, 10, 20, 40, 80, 160},
		},
	)

	GroceryListDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipe_planner_grocery_list_duration_seconds",
			Help:    "Time to assemble a grocery list including ingredient lookups",
			Buckets: prometheus.DefBuckets,
		},
	)

	// 快取
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_planner_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_planner_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// 目錄服務
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_planner_catalog_requests_total",
			Help: "Total number of remote recipe catalog requests",
		},
		[]string{"status"},
	)

	// 事件
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_planner_events_processed_total",
			Help: "Total number of meal plan change events processed",
		},
		[]string{"action", "result"},
	)
)

// ObserveHTTPRequest 記錄一次 HTTP 請求
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// ObserveGroceryList 記錄一次購物清單產生
func ObserveGroceryList(source, format string, items int, duration time.Duration) {
	GroceryListsGenerated.WithLabelValues(source, format).Inc()
	GroceryListItems.Observe(float64(items))
	GroceryListDuration.Observe(duration.Seconds())
}
