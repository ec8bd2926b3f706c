package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submitCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "aegis_submit_count",
	Help: "Number of agent message submissions, by outcome",
}, []string{"outcome"})

var oracleFallbackCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "aegis_oracle_fallback_count",
	Help: "Number of submissions resolved by the oracle fallback policy, by mode",
}, []string{"mode"})

var accountLockCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "aegis_account_lock_count",
	Help: "Number of agent accounts locked by the enforcement state machine",
})

var accountUnlockCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "aegis_account_unlock_count",
	Help: "Number of agent accounts unlocked by admin action",
})
