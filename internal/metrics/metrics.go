package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eggmart_orders_created_total",
		Help: "Total number of orders created",
	})

	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eggmart_sales_created_total",
		Help: "Total number of sales admitted",
	})

	SalesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eggmart_sales_rejected_total",
		Help: "Total number of sale admissions rejected",
	}, []string{"reason"})

	CartRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eggmart_cart_rejections_total",
		Help: "Total number of cart mutations rejected for insufficient stock",
	})
)
