package syncqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var syncAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kedaipos_sync_attempts_total",
	Help: "Sync queue drain outcomes by result.",
}, []string{"outcome"})
