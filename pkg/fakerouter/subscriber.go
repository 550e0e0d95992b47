package fakerouter

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisClient is the subset of *redis.Client used to receive notifications.
type RedisClient interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Subscriber applies membership notification lines published on a Redis channel.
type Subscriber struct {
	logger  logrus.FieldLogger
	router  *Router
	client  RedisClient
	channel string
}

// NewSubscriber returns a Subscriber applying lines from channel to router.
func NewSubscriber(logger logrus.FieldLogger, router *Router, client RedisClient, channel string) *Subscriber {
	return &Subscriber{
		logger:  logger,
		router:  router,
		client:  client,
		channel: channel,
	}
}

// Run applies notifications until the context is closed.
func (s *Subscriber) Run(ctx context.Context) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed, so nothing published after Run logs "Subscribed" is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to subscribe to membership notifications")
		return
	}
	s.logger.WithField("channel", s.channel).Info("Subscribed to membership notifications")

	psChan := pubsub.Channel() // Closed when pubsub is Closed

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-psChan:
			if !ok {
				return
			}
			s.router.HandleLine(msg.Payload)
		}
	}
}
