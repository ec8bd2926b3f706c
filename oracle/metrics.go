package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var oracleAPIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "aegis_oracle_api_duration_sec",
	Help: "Duration of policy oracle API calls, by call kind",
}, []string{"kind"})

var oracleAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "aegis_oracle_api_count",
	Help: "Number of policy oracle API calls, by call kind and HTTP status code",
}, []string{"kind", "status"})
