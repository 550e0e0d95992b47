package fixtures

import (
	"context"
	"net"
	"sync"
)

// Dialer is a transport dialer which connects to in-memory pipes.  It counts dials per address, and hands the
// server side of each pipe to Accept.  If Accept is nil the server side is closed immediately.
type Dialer struct {
	Accept func(address string, conn net.Conn)

	mu       sync.Mutex
	dials    map[string]int
	failures map[string]error
}

// Fail makes every future dial to address return err.
func (d *Dialer) Fail(address string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures == nil {
		d.failures = map[string]error{}
	}
	d.failures[address] = err
}

func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.dials == nil {
		d.dials = map[string]int{}
	}
	d.dials[address]++
	err := d.failures[address]
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	client, server := net.Pipe()
	if d.Accept != nil {
		go d.Accept(address, server)
	} else {
		_ = server.Close()
	}
	return client, nil
}

// Dials returns the number of dials to address, including failed ones.
func (d *Dialer) Dials(address string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[address]
}

// TotalDials returns the number of dials to any address.
func (d *Dialer) TotalDials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, n := range d.dials {
		total += n
	}
	return total
}
