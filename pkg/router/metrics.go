package router

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	sourceCache   = "cache"
	sourceNetwork = "network"
)

// Metrics counts the work of a Client.  Pass the same Metrics to several clients to aggregate them.
type Metrics struct {
	Lookups            *prometheus.CounterVec // by source
	NetworkLookups     *prometheus.CounterVec // by port
	LookupErrors       prometheus.Counter
	Notifications      *prometheus.CounterVec // by event
	NotificationErrors prometheus.Counter
}

// NewMetrics creates a Metrics and registers it with reg, if reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anna",
			Subsystem: "router_client",
			Name:      "lookups_total",
			Help:      "Key lookups, by source",
		}, []string{"source"}),
		NetworkLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anna",
			Subsystem: "router_client",
			Name:      "network_lookups_total",
			Help:      "Key lookups sent to the routing tier, by routing-query port",
		}, []string{"port"}),
		LookupErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anna",
			Subsystem: "router_client",
			Name:      "lookup_errors_total",
			Help:      "Network key lookups which failed",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anna",
			Subsystem: "router_client",
			Name:      "notifications_total",
			Help:      "Membership notifications sent, by event",
		}, []string{"event"}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anna",
			Subsystem: "router_client",
			Name:      "notification_errors_total",
			Help:      "Membership notifications which could not be sent",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Lookups, m.NetworkLookups, m.LookupErrors, m.Notifications, m.NotificationErrors)
	}
	return m
}

func portLabel(port int) string {
	return strconv.Itoa(port)
}
