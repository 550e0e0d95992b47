package router

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/pkg/addresscache"
	"github.com/annakv/routerclient/pkg/membership/redispub"
	"github.com/annakv/routerclient/pkg/transport"
)

// NewClientFromViper creates a Client with its socket pool, local cache and notification sink configured from v.
// Metrics are registered with reg, if it is not nil.
func NewClientFromViper(logger logrus.FieldLogger, v *viper.Viper, reg prometheus.Registerer) (*Client, error) {
	cfg, err := ConfigFromViper(v)
	if err != nil {
		return nil, err
	}

	v.SetDefault(routerclient.ParamCacheTTL, routerclient.DefaultCacheTTL)
	v.SetDefault(routerclient.ParamNotifySink, routerclient.DefaultNotifySink)
	cacheTTL := v.GetDuration(routerclient.ParamCacheTTL)
	if cacheTTL < 0 {
		return nil, fmt.Errorf("%s must not be negative", routerclient.ParamCacheTTL)
	}

	sockets, err := transport.NewSocketPoolFromViper(logger, v)
	if err != nil {
		return nil, err
	}

	options := []Option{
		WithMetrics(NewMetrics(reg)),
	}

	switch sink := v.GetString(routerclient.ParamNotifySink); sink {
	case routerclient.NotifySinkSocket:
	case routerclient.NotifySinkRedis:
		redisSink, redisClient, err := redispub.NewFromViper(logger, v)
		if err != nil {
			return nil, err
		}
		options = append(options, WithSink(redisSink), withCloser(redisClient))
	default:
		return nil, fmt.Errorf("unknown %s %q", routerclient.ParamNotifySink, sink)
	}

	logger.WithFields(logrus.Fields{
		routerclient.ParamELBAddr:    cfg.ELBAddr,
		routerclient.ParamELBPorts:   cfg.ELBPorts,
		routerclient.ParamNotifyPort: cfg.NotifyPort,
		"response-address":           cfg.ResponseAddress(),
	}).Info("created router client")

	return NewClient(logger, cfg, sockets, addresscache.New(cacheTTL), options...), nil
}
