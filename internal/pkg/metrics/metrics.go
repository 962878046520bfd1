// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	orderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions by target status",
		},
		[]string{"status"},
	)

	transactionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_transitions_total",
			Help: "Payment transaction transitions by target status",
		},
		[]string{"status"},
	)

	stockRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_rejections_total",
			Help: "Stock debits rejected for insufficient stock",
		},
	)

	platformFeeAccrued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "platform_fee_accrued_total",
			Help: "Platform fee accrued on confirmed orders, in currency units",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(orderTransitionsTotal)
	prometheus.MustRegister(transactionTransitionsTotal)
	prometheus.MustRegister(stockRejectionsTotal)
	prometheus.MustRegister(platformFeeAccrued)
}

// Middleware 记录请求数与耗时，endpoint 使用 chi 的路由模板而非原始路径
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordOrderTransition(status string) {
	orderTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordTransactionTransition(status string) {
	transactionTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordStockRejection() {
	stockRejectionsTotal.Inc()
}

func RecordFeeAccrued(fee decimal.Decimal) {
	platformFeeAccrued.Add(fee.InexactFloat64())
}
