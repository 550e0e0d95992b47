package redispub

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/annakv/routerclient/internal/util"
)

const (
	paramAddr    = "addr"
	paramChannel = "channel"
	paramDB      = "db"

	defaultAddr    = "127.0.0.1:6379"
	defaultChannel = "anna.membership"
	defaultDB      = 0
)

// RedisClient is the subset of *redis.Client used to publish notifications.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Sink publishes membership notification lines on a Redis pub/sub channel.
type Sink struct {
	logger  logrus.FieldLogger
	client  RedisClient
	channel string
}

// New returns a Sink which publishes to channel using client.
func New(logger logrus.FieldLogger, client RedisClient, channel string) *Sink {
	return &Sink{
		logger:  logger,
		client:  client,
		channel: channel,
	}
}

// NewFromViper creates a Sink and the *redis.Client behind it from the "redis" section of v.
// The caller owns the returned client and must close it.
func NewFromViper(logger logrus.FieldLogger, v *viper.Viper) (*Sink, *redis.Client, error) {
	r := util.GetSubViper(v, "redis")
	r.SetDefault(paramAddr, defaultAddr)
	r.SetDefault(paramChannel, defaultChannel)
	r.SetDefault(paramDB, defaultDB)

	channel := r.GetString(paramChannel)
	if channel == "" {
		return nil, nil, errors.New(paramChannel + " must not be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr: r.GetString(paramAddr),
		DB:   r.GetInt(paramDB),
	})
	logger.WithFields(logrus.Fields{
		paramAddr:    r.GetString(paramAddr),
		paramChannel: channel,
	}).Info("created redis notification sink")
	return New(logger, client, channel), client, nil
}

// Send publishes line.  Whether any router is subscribed is not checked.
func (s *Sink) Send(ctx context.Context, line string) error {
	receivers, err := s.client.Publish(ctx, s.channel, line).Result()
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"channel":   s.channel,
		"receivers": receivers,
	}).Debug("published membership notification")
	return nil
}
