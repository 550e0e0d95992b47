// Package router is the client of the routing tier.  It resolves keys to the storage nodes owning them, either
// from a local cache or by asking one of the routers, and tells the routers about storage node membership changes.
package router

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/annakv/routerclient/pkg/addresscache"
	"github.com/annakv/routerclient/pkg/lookup"
	"github.com/annakv/routerclient/pkg/membership"
	"github.com/annakv/routerclient/pkg/transport"
)

// ErrEmptyKey is returned by Resolve for an empty key.
var ErrEmptyKey = errors.New("key must not be empty")

// SocketCache hands out cached sockets by destination.  *transport.SocketPool is a SocketCache.
type SocketCache interface {
	Get(ctx context.Context, host string, port int) (*transport.Socket, error)
}

// LocalCache answers cached lookups.  It returns nil for keys it does not know.
type LocalCache interface {
	Lookup(ctx context.Context, key string) []string
}

// cacheStore is implemented by local caches which accept the results of network lookups.
type cacheStore interface {
	Store(ctx context.Context, key string, addresses []string)
}

// Client talks to the routing tier.  It is safe for concurrent use.  It owns its socket cache, which is closed
// by Close.
type Client struct {
	logger  logrus.FieldLogger
	cfg     Config
	sockets SocketCache
	cache   LocalCache
	sink    membership.Sink
	metrics *Metrics
	closers []io.Closer

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option customises a Client.
type Option func(*Client)

// WithMetrics records the client's work in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithSink sends membership notifications to sink instead of the routers' notify port.
func WithSink(sink membership.Sink) Option {
	return func(c *Client) {
		c.sink = sink
	}
}

// WithRandom uses rnd to choose routing-query ports.
func WithRandom(rnd *rand.Rand) Option {
	return func(c *Client) {
		c.rnd = rnd
	}
}

// withCloser makes Close release closer as well.
func withCloser(closer io.Closer) Option {
	return func(c *Client) {
		c.closers = append(c.closers, closer)
	}
}

// NewClient creates a Client.  The configuration must be valid, see Config.Validate.  A nil cache is replaced by an
// empty addresscache.Cache without expiry.
func NewClient(logger logrus.FieldLogger, cfg Config, sockets SocketCache, cache LocalCache, options ...Option) *Client {
	if cache == nil {
		cache = addresscache.New(0)
	}
	c := &Client{
		logger:  logger,
		cfg:     cfg,
		sockets: sockets,
		cache:   cache,
		metrics: NewMetrics(nil),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, option := range options {
		option(c)
	}
	if c.sink == nil {
		c.sink = &socketSink{
			sockets: sockets,
			host:    cfg.ELBAddr,
			port:    cfg.NotifyPort,
		}
	}
	return c
}

// Resolve returns the addresses of the storage nodes owning key.
//
// With useCache the local cache is consulted and its answer returned as is, nil if it does not know the key.  No
// network I/O happens on that path.  Otherwise one routing-query port is picked at random and a single lookup is
// sent to it.  Failures are returned to the caller without retrying.
func (c *Client) Resolve(ctx context.Context, key string, useCache bool) ([]string, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	if useCache {
		c.metrics.Lookups.WithLabelValues(sourceCache).Inc()
		return c.cache.Lookup(ctx, key), nil
	}

	c.metrics.Lookups.WithLabelValues(sourceNetwork).Inc()
	addresses, err := c.resolve(ctx, key)
	if err != nil {
		c.metrics.LookupErrors.Inc()
		return nil, err
	}
	return addresses, nil
}

func (c *Client) resolve(ctx context.Context, key string) ([]string, error) {
	port := c.pickPort()
	c.metrics.NetworkLookups.WithLabelValues(portLabel(port)).Inc()

	socket, err := c.sockets.Get(ctx, c.cfg.ELBAddr, port)
	if err != nil {
		return nil, err
	}

	req := &lookup.KeyAddressRequest{
		ResponseAddress: c.cfg.ResponseAddress(),
		Keys:            []string{key},
		RequestID:       uuid.New().String(),
	}
	resp, err := lookup.Query(ctx, socket, req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"destination": socket.Destination(),
			"request_id":  req.RequestID,
		}).Debug("lookup failed")
		return nil, err
	}

	addresses := resp.AddressesFor(key)
	if store, ok := c.cache.(cacheStore); ok && len(addresses) > 0 {
		store.Store(ctx, key, addresses)
	}
	return addresses, nil
}

func (c *Client) pickPort() int {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.cfg.ELBPorts[c.rnd.Intn(len(c.cfg.ELBPorts))]
}

// NotifyJoin tells the routers that a memory tier node has joined.
func (c *Client) NotifyJoin(ctx context.Context, publicIP, privateIP, virtualID string) error {
	return c.notify(ctx, membership.Join, publicIP, privateIP, virtualID)
}

// NotifyDepart tells the routers that a memory tier node has departed.
func (c *Client) NotifyDepart(ctx context.Context, publicIP, privateIP, virtualID string) error {
	return c.notify(ctx, membership.Depart, publicIP, privateIP, virtualID)
}

// NotifyReplace tells the routers that a memory tier node has been replaced.
func (c *Client) NotifyReplace(ctx context.Context, publicIP, privateIP, virtualID string) error {
	return c.notify(ctx, membership.Replace, publicIP, privateIP, virtualID)
}

// Notify sends a membership notification for an event of the given kind.  Every call sends one message,
// identical calls are not deduplicated.
func (c *Client) Notify(ctx context.Context, kind membership.EventKind, publicIP, privateIP, virtualID string) error {
	return c.notify(ctx, kind, publicIP, privateIP, virtualID)
}

func (c *Client) notify(ctx context.Context, kind membership.EventKind, publicIP, privateIP, virtualID string) error {
	line, err := membership.Encode(membership.NewEvent(kind, publicIP, privateIP, virtualID))
	if err != nil {
		return err
	}

	c.metrics.Notifications.WithLabelValues(string(kind)).Inc()
	if err := c.sink.Send(ctx, line); err != nil {
		c.metrics.NotificationErrors.Inc()
		return err
	}
	c.logger.WithField("event", line).Debug("sent membership notification")
	return nil
}

// Close releases the client's sockets and any other resources it owns.
func (c *Client) Close() error {
	var err error
	if closer, ok := c.sockets.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	for _, closer := range c.closers {
		err = multierr.Append(err, closer.Close())
	}
	return err
}
