package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TenantsRegistered prometheus.Counter
	TenantsDeleted    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		TenantsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vras_tenants_registered_total",
			Help: "Total number of tenants registered",
		}),
		TenantsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vras_tenants_deleted_total",
			Help: "Total number of tenants deleted",
		}),
	}
}

func (m *Metrics) IncrementTenantsRegistered() {
	m.TenantsRegistered.Inc()
}

func (m *Metrics) IncrementTenantsDeleted() {
	m.TenantsDeleted.Inc()
}
