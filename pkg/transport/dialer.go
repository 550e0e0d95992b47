package transport

import (
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const paramDialerKeepAlive = "dialer-keep-alive"
const paramDialerTimeout = "dialer-timeout"
const paramIOTimeout = "io-timeout"
const paramMaxFrameSize = "max-frame-size"
const paramNetwork = "network"

const defaultDialerKeepAlive = 30 * time.Second
const defaultDialerTimeout = 5 * time.Second
const defaultIOTimeout = 10 * time.Second
const defaultMaxFrameSize = 4 << 20
const defaultNetwork = "tcp"

func newDialer(logger logrus.FieldLogger, v *viper.Viper) (*net.Dialer, Options, error) {
	v.SetDefault(paramDialerKeepAlive, defaultDialerKeepAlive)
	v.SetDefault(paramDialerTimeout, defaultDialerTimeout)
	v.SetDefault(paramIOTimeout, defaultIOTimeout)
	v.SetDefault(paramMaxFrameSize, defaultMaxFrameSize)
	v.SetDefault(paramNetwork, defaultNetwork)

	dialerKeepAlive := v.GetDuration(paramDialerKeepAlive)
	dialerTimeout := v.GetDuration(paramDialerTimeout)
	ioTimeout := v.GetDuration(paramIOTimeout)
	maxFrameSize := v.GetInt(paramMaxFrameSize)
	network := v.GetString(paramNetwork)

	if dialerKeepAlive < -1 {
		return nil, Options{}, errors.New(paramDialerKeepAlive + " must be -1, 0, or positive") // -1 = disabled, 0 = keepalives enabled, not configured, >0 = keepalive interval
	}
	if dialerTimeout < 0 {
		return nil, Options{}, errors.New(paramDialerTimeout + " must not be negative") // 0 = no timeout, but OS may impose a limit
	}
	if ioTimeout < 0 {
		return nil, Options{}, errors.New(paramIOTimeout + " must not be negative") // 0 = no timeout
	}
	if maxFrameSize <= 0 {
		return nil, Options{}, errors.New(paramMaxFrameSize + " must be positive")
	}
	switch network {
	case "tcp", "tcp4", "tcp6", "unix":
	default:
		return nil, Options{}, errors.New(paramNetwork + " must be one of tcp, tcp4, tcp6, or unix")
	}

	logger.WithFields(logrus.Fields{
		paramDialerKeepAlive: dialerKeepAlive,
		paramDialerTimeout:   dialerTimeout,
		paramIOTimeout:       ioTimeout,
		paramMaxFrameSize:    maxFrameSize,
		paramNetwork:         network,
	}).Debug("configured transport")

	return &net.Dialer{
			Timeout:   dialerTimeout,
			KeepAlive: dialerKeepAlive,
		}, Options{
			Network:      network,
			IOTimeout:    ioTimeout,
			MaxFrameSize: maxFrameSize,
		}, nil
}
