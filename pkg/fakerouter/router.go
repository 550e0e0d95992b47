// Package fakerouter is an in-process stand-in for the routing tier, for tests and local development.  It keeps one
// consistent hash ring per storage tier, applies membership notifications to the rings, and answers key address
// requests from them.  It does not rebalance data or track node health.
package fakerouter

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/pkg/lookup"
	"github.com/annakv/routerclient/pkg/membership"
	"github.com/annakv/routerclient/pkg/transport"
)

const (
	// StorageBasePort is the port of storage thread 0 on a node.  Numeric virtual ids are added to it.
	StorageBasePort = 6200
	// DefaultReplication is the number of owners returned per key.
	DefaultReplication = 1

	ringReplicas = 20
)

// Router holds the rings of the storage tiers.  It is safe for concurrent use.
type Router struct {
	logger      logrus.FieldLogger
	replication int
	rings       map[routerclient.Tier]*Ring
	badLines    *rate.Limiter

	lookups       *prometheus.CounterVec // by error code
	notifications *prometheus.CounterVec // by event
	rejected      prometheus.Counter
}

// NewRouter creates a Router returning replication owners per key.  Metrics are registered with reg, if it is not
// nil.
func NewRouter(logger logrus.FieldLogger, replication int, reg prometheus.Registerer) *Router {
	if replication <= 0 {
		replication = DefaultReplication
	}
	r := &Router{
		logger:      logger,
		replication: replication,
		rings: map[routerclient.Tier]*Ring{
			routerclient.TierMemory: NewRing(ringReplicas),
			routerclient.TierDisk:   NewRing(ringReplicas),
		},
		badLines: rate.NewLimiter(rate.Every(time.Second), 5),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anna",
			Subsystem: "fakerouter",
			Name:      "lookups_total",
			Help:      "Key address requests answered, by error code",
		}, []string{"error"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anna",
			Subsystem: "fakerouter",
			Name:      "notifications_total",
			Help:      "Membership notifications applied, by event",
		}, []string{"event"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anna",
			Subsystem: "fakerouter",
			Name:      "rejected_notifications_total",
			Help:      "Membership notification lines which could not be parsed",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.lookups, r.notifications, r.rejected)
	}
	return r
}

// Apply parses a membership notification line and applies it.  Join adds the node to its tier's ring, depart
// removes it, and replace removes and re-adds it.
func (r *Router) Apply(line string) error {
	e, err := membership.Parse(line)
	if err != nil {
		r.rejected.Inc()
		return err
	}
	ring := r.rings[e.Tier]
	node := e.Node()
	switch e.Kind {
	case membership.Join:
		ring.Add(node)
	case membership.Depart:
		ring.Remove(node)
	case membership.Replace:
		ring.Remove(node)
		ring.Add(node)
	}
	r.notifications.WithLabelValues(string(e.Kind)).Inc()
	r.logger.WithFields(logrus.Fields{
		"event": e.Kind,
		"tier":  e.Tier,
		"node":  node,
	}).Info("Applied membership change")
	return nil
}

// HandleLine applies line, logging failures through a rate limiter.
func (r *Router) HandleLine(line string) {
	if err := r.Apply(line); err != nil && r.badLines.Allow() {
		r.logger.WithError(err).WithField("line", line).Warn("Rejected membership notification")
	}
}

// Answer resolves the keys of req against the memory tier.
func (r *Router) Answer(req *lookup.KeyAddressRequest) *lookup.KeyAddressResponse {
	resp := &lookup.KeyAddressResponse{
		ResponseID: req.RequestID,
	}
	ring := r.rings[routerclient.TierMemory]
	if ring.Len() == 0 {
		resp.Error = lookup.NoServers
		r.lookups.WithLabelValues(resp.Error.String()).Inc()
		return resp
	}
	for _, key := range req.Keys {
		ka := lookup.KeyAddress{Key: key}
		if key != "" {
			owners, err := ring.Owners(key, r.replication)
			if err != nil {
				// The ring emptied since the check above.
				resp.Addresses = nil
				resp.Error = lookup.NoServers
				break
			}
			for _, owner := range owners {
				ka.IPs = append(ka.IPs, storageAddress(owner))
			}
		} else {
			ka.IPs = []string{}
		}
		resp.Addresses = append(resp.Addresses, ka)
	}
	r.lookups.WithLabelValues(resp.Error.String()).Inc()
	return resp
}

// Nodes returns the members of every storage tier ring, by tier name.
func (r *Router) Nodes() map[string][]string {
	nodes := make(map[string][]string, len(r.rings))
	for tier, ring := range r.rings {
		nodes[tier.String()] = ring.Members()
	}
	return nodes
}

// Ring returns the ring of tier, or nil if tier is not a storage tier.
func (r *Router) Ring(tier routerclient.Tier) *Ring {
	return r.rings[tier]
}

// storageAddress turns a "<private ip>/<virtual id>" member into the address of its storage thread.
func storageAddress(member string) string {
	host, vid := member, ""
	for i := len(member) - 1; i >= 0; i-- {
		if member[i] == '/' {
			host, vid = member[:i], member[i+1:]
			break
		}
	}
	port := StorageBasePort
	if tid, err := strconv.Atoi(vid); err == nil && tid >= 0 && tid < 1000 {
		port += tid
	}
	return transport.Destination(host, port)
}
