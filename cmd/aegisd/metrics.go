package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var scanCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "aegis_fraud_scan_count",
	Help: "Number of fraud scans executed",
})

var scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "aegis_fraud_scan_duration_sec",
	Help: "Duration of fraud scans, including the snapshot read",
})
