package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"rbac-vault/internal/domain"
)

var userOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vault_user_operations_total",
		Help: "User administration operations by outcome",
	},
	[]string{"op", "result"},
)

func init() { prometheus.MustRegister(userOps) }

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
	}
	userOps.WithLabelValues(op, result).Inc()
}
