package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSocketClosed is returned when a Socket is used after it was closed, either explicitly or because an earlier
// exchange failed.
var ErrSocketClosed = errors.New("socket is closed")

// aLongTimeAgo is a deadline in the past, used to interrupt blocked I/O when a context is cancelled.
var aLongTimeAgo = time.Unix(1, 0)

// Socket is a cached outbound connection to one destination.  Exchanges on a Socket are serialised.  Any I/O
// failure closes the Socket and removes it from its SocketPool, so the next Get dials again.
type Socket struct {
	closed int32 // atomic

	pool         *SocketPool
	destination  string
	conn         net.Conn
	ioTimeout    time.Duration
	maxFrameSize int

	mu sync.Mutex // serialises exchanges
}

func newSocket(pool *SocketPool, destination string, conn net.Conn) *Socket {
	return &Socket{
		pool:         pool,
		destination:  destination,
		conn:         conn,
		ioTimeout:    pool.options.IOTimeout,
		maxFrameSize: pool.options.MaxFrameSize,
	}
}

// Destination returns the tcp://host:port string this Socket is cached under.
func (s *Socket) Destination() string {
	return s.destination
}

// Send writes payload as is.  It is used for one-way messages.
func (s *Socket) Send(ctx context.Context, payload []byte) error {
	return s.exchange(ctx, func() error {
		_, err := s.conn.Write(payload)
		return err
	})
}

// RoundTrip writes request as a single frame and reads a single response frame.
func (s *Socket) RoundTrip(ctx context.Context, request []byte) ([]byte, error) {
	var response []byte
	err := s.exchange(ctx, func() error {
		if err := writeFrame(s.conn, request); err != nil {
			return err
		}
		var err error
		response, err = readFrame(s.conn, s.maxFrameSize)
		return err
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Close closes the Socket and removes it from its pool.
func (s *Socket) Close() error {
	err := s.close()
	s.pool.evict(s)
	return err
}

func (s *Socket) exchange(ctx context.Context, f func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if atomic.LoadInt32(&s.closed) != 0 {
		return ErrSocketClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.conn.SetDeadline(s.deadline(ctx)); err != nil {
		s.fail()
		return err
	}

	stop := s.watch(ctx)
	err := f()
	stop()

	if err != nil {
		s.fail()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// deadline returns the earliest of the context deadline and the io timeout, or the zero time for none.
func (s *Socket) deadline(ctx context.Context) time.Time {
	var deadline time.Time
	if s.ioTimeout > 0 {
		deadline = time.Now().Add(s.ioTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

// watch interrupts blocked I/O when ctx is cancelled, until the returned function is called.
func (s *Socket) watch(ctx context.Context) func() {
	if ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case <-ctx.Done():
			_ = s.conn.SetDeadline(aLongTimeAgo)
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (s *Socket) fail() {
	_ = s.close()
	s.pool.evict(s)
}

func (s *Socket) close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	return s.conn.Close()
}
