package router

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annakv/routerclient/internal/fixtures"
	"github.com/annakv/routerclient/pkg/addresscache"
	"github.com/annakv/routerclient/pkg/lookup"
	"github.com/annakv/routerclient/pkg/transport"
)

// fakeRouter answers lookups from a fixed table, and records notification lines.
type fakeRouter struct {
	owners map[string][]string
	code   lookup.ErrorCode
	lines  chan string

	mu       sync.Mutex
	requests []*lookup.KeyAddressRequest
}

func newFakeRouter(owners map[string][]string) *fakeRouter {
	return &fakeRouter{
		owners: owners,
		lines:  make(chan string, 100),
	}
}

func (fr *fakeRouter) accept(address string, conn net.Conn) {
	defer conn.Close()
	if strings.HasSuffix(address, ":6400") {
		fr.readLines(conn)
		return
	}
	for {
		raw, err := transport.ReadFrame(conn, 1<<20)
		if err != nil {
			return
		}
		req := &lookup.KeyAddressRequest{}
		if err := req.Unmarshal(raw); err != nil {
			return
		}
		fr.mu.Lock()
		fr.requests = append(fr.requests, req)
		fr.mu.Unlock()

		resp := &lookup.KeyAddressResponse{
			Error:      fr.code,
			ResponseID: req.RequestID,
		}
		for _, key := range req.Keys {
			resp.Addresses = append(resp.Addresses, lookup.KeyAddress{Key: key, IPs: fr.owners[key]})
		}
		if err := transport.WriteFrame(conn, resp.Marshal()); err != nil {
			return
		}
	}
}

func (fr *fakeRouter) readLines(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		fr.lines <- scanner.Text()
	}
}

func (fr *fakeRouter) lastRequest() *lookup.KeyAddressRequest {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if len(fr.requests) == 0 {
		return nil
	}
	return fr.requests[len(fr.requests)-1]
}

func (fr *fakeRouter) nextLine(t *testing.T) string {
	select {
	case line := <-fr.lines:
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return ""
	}
}

func newTestClient(t *testing.T, cfg Config, d *fixtures.Dialer, options ...Option) (*Client, *transport.SocketPool, *addresscache.Cache) {
	logger := fixtures.NewTestLogger(t)
	pool := transport.NewSocketPool(logger, d, transport.Options{IOTimeout: 5 * time.Second})
	cache := addresscache.New(0)
	c := NewClient(logger, cfg, pool, cache, options...)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c, pool, cache
}
