package router

import (
	"context"
)

// socketSink sends notification lines, newline terminated, to the routers' notify port through the socket cache.
type socketSink struct {
	sockets SocketCache
	host    string
	port    int
}

func (s *socketSink) Send(ctx context.Context, line string) error {
	socket, err := s.sockets.Get(ctx, s.host, s.port)
	if err != nil {
		return err
	}
	return socket.Send(ctx, []byte(line+"\n"))
}
