package observ

import (
	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// OrderMetrics implements usecase.OrderMetrics with Prometheus collectors.
type OrderMetrics struct {
	placed      prometheus.Counter
	revenue     prometheus.Counter
	cancelled   *prometheus.CounterVec
	reserveFail *prometheus.CounterVec
}

// NewOrderMetrics registers the order collectors on reg (prometheus.DefaultRegisterer in the app).
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	f := promauto.With(reg)
	return &OrderMetrics{
		placed: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of orders placed",
		}),
		revenue: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_amount_total",
			Help: "Sum of totalAmount over placed orders",
		}),
		cancelled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Total number of cancelled orders",
		}, []string{"actor"}),
		reserveFail: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_reservation_failures_total",
			Help: "Stock reservations rejected, by reason",
		}, []string{"reason"}),
	}
}

func (m *OrderMetrics) OrderPlaced(total decimal.Decimal) {
	m.placed.Inc()
	m.revenue.Add(total.InexactFloat64())
}

func (m *OrderMetrics) OrderCancelled(by domain.Actor) {
	m.cancelled.WithLabelValues(string(by)).Inc()
}

func (m *OrderMetrics) ReservationFailed(reason string) {
	m.reserveFail.WithLabelValues(reason).Inc()
}

var _ usecase.OrderMetrics = (*OrderMetrics)(nil)
