package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	payloadsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "laundry_promptpay_payloads_total",
		Help: "PromptPay payloads generated, by target kind and static/dynamic mode",
	}, []string{"kind", "mode"})

	payloadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "laundry_promptpay_failures_total",
		Help: "PromptPay payload requests rejected, by reason",
	}, []string{"reason"})

	paymentsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "laundry_payments_completed_total",
		Help: "Order payments settled, by payment method",
	}, []string{"method"})
)

func modeLabel(static bool) string {
	if static {
		return "static"
	}
	return "dynamic"
}
