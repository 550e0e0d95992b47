package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/annakv/routerclient/internal/util"
)

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("socket pool is closed")

// Dialer creates connections.  *net.Dialer is a Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Options configures the sockets created by a SocketPool.
type Options struct {
	// Network is passed to the Dialer, typically "tcp".
	Network string
	// IOTimeout bounds each Send or RoundTrip when the context has no deadline.  0 means no timeout.
	IOTimeout time.Duration
	// MaxFrameSize is the largest response frame a RoundTrip accepts.
	MaxFrameSize int
}

// SocketPool caches one outbound Socket per destination.  Sockets are created lazily by Get and stay cached until
// they fail or the pool is closed.
type SocketPool struct {
	dials uint64 // atomic - dial attempts, including failed ones

	logger  logrus.FieldLogger
	dialer  Dialer
	options Options

	mu      sync.Mutex
	closed  bool
	sockets map[string]*Socket
}

// NewSocketPool creates a SocketPool which dials with dialer.
func NewSocketPool(logger logrus.FieldLogger, dialer Dialer, options Options) *SocketPool {
	if options.Network == "" {
		options.Network = defaultNetwork
	}
	if options.MaxFrameSize <= 0 {
		options.MaxFrameSize = defaultMaxFrameSize
	}
	return &SocketPool{
		logger:  logger,
		dialer:  dialer,
		options: options,
		sockets: map[string]*Socket{},
	}
}

// NewSocketPoolFromViper creates a SocketPool configured from the "transport" section of v.
func NewSocketPoolFromViper(logger logrus.FieldLogger, v *viper.Viper) (*SocketPool, error) {
	dialer, options, err := newDialer(logger, util.GetSubViper(v, "transport"))
	if err != nil {
		return nil, err
	}
	return NewSocketPool(logger, dialer, options), nil
}

// Get returns the cached Socket for host:port, dialing a new one if there is none.  A failed dial is not cached.
func (sp *SocketPool) Get(ctx context.Context, host string, port int) (*Socket, error) {
	destination := Destination(host, port)

	sp.mu.Lock()
	if sp.closed {
		sp.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if s, ok := sp.sockets[destination]; ok {
		sp.mu.Unlock()
		return s, nil
	}
	sp.mu.Unlock()

	// Dial without holding the lock, so an unreachable destination does not hold up the others.
	atomic.AddUint64(&sp.dials, 1)
	conn, err := sp.dialer.DialContext(ctx, sp.options.Network, net.JoinHostPort(host, itoa(port)))
	if err != nil {
		sp.logger.WithError(err).WithField("destination", destination).Debug("dial failed")
		return nil, err
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.closed {
		_ = conn.Close()
		return nil, ErrPoolClosed
	}
	if s, ok := sp.sockets[destination]; ok {
		// Lost a race with a concurrent Get for the same destination.
		_ = conn.Close()
		return s, nil
	}
	s := newSocket(sp, destination, conn)
	sp.sockets[destination] = s

	sp.logger.WithFields(logrus.Fields{
		"destination": destination,
		"local":       conn.LocalAddr().String(),
	}).Info("created socket")

	return s, nil
}

// Len returns the number of cached sockets.
func (sp *SocketPool) Len() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return len(sp.sockets)
}

// Dials returns the number of dial attempts made by the pool.
func (sp *SocketPool) Dials() uint64 {
	return atomic.LoadUint64(&sp.dials)
}

// Close closes every cached socket.  Further calls to Get fail with ErrPoolClosed.
func (sp *SocketPool) Close() error {
	sp.mu.Lock()
	sockets := sp.sockets
	sp.sockets = map[string]*Socket{}
	sp.closed = true
	sp.mu.Unlock()

	var err error
	for _, s := range sockets {
		err = multierr.Append(err, s.close())
	}
	return err
}

// evict removes s from the cache, unless it has already been replaced.
func (sp *SocketPool) evict(s *Socket) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if cached, ok := sp.sockets[s.destination]; ok && cached == s {
		delete(sp.sockets, s.destination)
		sp.logger.WithField("destination", s.destination).Info("evicted failed socket")
	}
}
