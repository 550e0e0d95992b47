package membership

import (
	"context"
)

// Sink delivers encoded notification lines.  Delivery is fire-and-forget: a nil error means the line was handed
// to the transport, not that a router applied it.
type Sink interface {
	Send(ctx context.Context, line string) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, line string) error

func (f SinkFunc) Send(ctx context.Context, line string) error {
	return f(ctx, line)
}
