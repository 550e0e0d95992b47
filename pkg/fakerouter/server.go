package fakerouter

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ash2k/stager/wait"
	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/annakv/routerclient/pkg/lookup"
	"github.com/annakv/routerclient/pkg/transport"
)

// ServerConfig configures the listeners of a Server.  Port 0 picks a free port.
type ServerConfig struct {
	Host         string
	QueryPorts   []int
	NotifyPort   int
	AdminAddr    string // empty disables the admin server
	ReusePort    bool
	MaxFrameSize int
}

// Server exposes a Router over the network: key address requests on the query ports, newline separated membership
// notifications on the notify port, and an admin HTTP server.
type Server struct {
	logger   logrus.FieldLogger
	router   *Router
	registry *prometheus.Registry
	cfg      ServerConfig

	queryListeners []net.Listener
	notifyListener net.Listener
	adminListener  net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a Server for router.  registry is served on the admin server's /metrics, it may be nil.
func NewServer(logger logrus.FieldLogger, router *Router, registry *prometheus.Registry, cfg ServerConfig) *Server {
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = 1 << 20
	}
	return &Server{
		logger:   logger,
		router:   router,
		registry: registry,
		cfg:      cfg,
		conns:    map[net.Conn]struct{}{},
	}
}

// Listen binds every listener.  On failure the listeners bound so far are closed.
func (s *Server) Listen() error {
	if len(s.cfg.QueryPorts) == 0 {
		return errors.New("at least one query port is required")
	}
	var err error
	defer func() {
		if err != nil {
			_ = s.closeListeners()
		}
	}()

	for _, port := range s.cfg.QueryPorts {
		var l net.Listener
		l, err = s.listen(port)
		if err != nil {
			return err
		}
		s.queryListeners = append(s.queryListeners, l)
	}
	if s.notifyListener, err = s.listen(s.cfg.NotifyPort); err != nil {
		return err
	}
	if s.cfg.AdminAddr != "" {
		if s.adminListener, err = net.Listen("tcp", s.cfg.AdminAddr); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) listen(port int) (net.Listener, error) {
	address := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
	if s.cfg.ReusePort {
		return reuseport.Listen("tcp", address)
	}
	return net.Listen("tcp", address)
}

// QueryPorts returns the bound query ports.  Listen must have succeeded.
func (s *Server) QueryPorts() []int {
	ports := make([]int, 0, len(s.queryListeners))
	for _, l := range s.queryListeners {
		ports = append(ports, l.Addr().(*net.TCPAddr).Port)
	}
	return ports
}

// NotifyPort returns the bound notify port.  Listen must have succeeded.
func (s *Server) NotifyPort() int {
	return s.notifyListener.Addr().(*net.TCPAddr).Port
}

// AdminAddr returns the bound admin address, or "" if the admin server is disabled.
func (s *Server) AdminAddr() string {
	if s.adminListener == nil {
		return ""
	}
	return s.adminListener.Addr().String()
}

// Run serves until ctx is done, then closes every listener and connection and waits for them to finish.
func (s *Server) Run(ctx context.Context) {
	var wg wait.Group
	defer wg.Wait()

	for _, l := range s.queryListeners {
		l := l
		wg.Start(func() {
			s.accept(&wg, l, s.serveQueries)
		})
	}
	wg.Start(func() {
		s.accept(&wg, s.notifyListener, s.serveNotifications)
	})

	var admin *http.Server
	if s.adminListener != nil {
		admin = &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Start(func() {
			if err := admin.Serve(s.adminListener); err != nil && err != http.ErrServerClosed {
				s.logger.WithError(err).Error("Admin server failed")
			}
		})
	}

	s.logger.WithFields(logrus.Fields{
		"query_ports": s.QueryPorts(),
		"notify_port": s.NotifyPort(),
		"admin_addr":  s.AdminAddr(),
	}).Info("Routing tier stand-in started")

	<-ctx.Done()

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := admin.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("Admin server shutdown failed")
		}
		cancel()
	}
	if err := s.closeListeners(); err != nil {
		s.logger.WithError(err).Warn("Failed to close listeners")
	}
	s.closeConns()
}

func (s *Server) accept(wg *wait.Group, l net.Listener, serve func(net.Conn)) {
	for {
		conn, err := l.Accept()
		if err != nil {
			// Closed on shutdown.
			return
		}
		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		wg.Start(func() {
			defer s.untrack(conn)
			serve(conn)
		})
	}
}

func (s *Server) serveQueries(conn net.Conn) {
	for {
		raw, err := transport.ReadFrame(conn, s.cfg.MaxFrameSize)
		if err != nil {
			return
		}
		req := &lookup.KeyAddressRequest{}
		if err := req.Unmarshal(raw); err != nil {
			s.logger.WithError(err).WithField("remote", conn.RemoteAddr().String()).Warn("Malformed key address request")
			return
		}
		if err := transport.WriteFrame(conn, s.router.Answer(req).Marshal()); err != nil {
			return
		}
	}
}

func (s *Server) serveNotifications(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		s.router.HandleLine(scanner.Text())
	}
}

// track records conn, unless the server is shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	_ = conn.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for conn := range conns {
		_ = conn.Close()
	}
}

func (s *Server) closeListeners() error {
	var err error
	for _, l := range s.queryListeners {
		err = multierr.Append(err, ignoreClosed(l.Close()))
	}
	if s.notifyListener != nil {
		err = multierr.Append(err, ignoreClosed(s.notifyListener.Close()))
	}
	if s.adminListener != nil {
		err = multierr.Append(err, ignoreClosed(s.adminListener.Close()))
	}
	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
