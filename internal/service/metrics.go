package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checkoutTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shop_checkout_total",
		Help: "Checkout attempts by outcome.",
	},
	[]string{"result"},
)
