package router

import (
	"errors"
	"fmt"
	"net"

	"github.com/spf13/viper"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/pkg/transport"
)

// Config holds the addressing of a Client.
type Config struct {
	// ELBAddr is the address of the routing tier's load balancer.
	ELBAddr string
	// ELBPorts is the set of routing-query ports.  Each network lookup picks one uniformly at random.
	ELBPorts []int
	// IP is the address this client advertises as its response address.
	IP string
	// Offset is added to the response port, so several clients can share an IP.
	Offset int
	// NotifyPort is where routers accept membership notifications.
	NotifyPort int
}

// DefaultConfig returns the configuration of a client talking to a router in the given locality mode.
func DefaultConfig(local bool) Config {
	return Config{
		ELBAddr:    routerclient.DefaultELBAddr,
		ELBPorts:   routerclient.DefaultELBPorts(local),
		IP:         routerclient.DefaultIP,
		Offset:     routerclient.DefaultOffset,
		NotifyPort: routerclient.DefaultNotifyPort,
	}
}

// ConfigFromViper reads a Config from the top level of v.  An explicit elb-ports list takes precedence over the
// ports implied by local.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	v.SetDefault(routerclient.ParamELBAddr, routerclient.DefaultELBAddr)
	v.SetDefault(routerclient.ParamIP, routerclient.DefaultIP)
	v.SetDefault(routerclient.ParamLocal, routerclient.DefaultLocal)
	v.SetDefault(routerclient.ParamOffset, routerclient.DefaultOffset)
	v.SetDefault(routerclient.ParamNotifyPort, routerclient.DefaultNotifyPort)

	cfg := DefaultConfig(v.GetBool(routerclient.ParamLocal))
	cfg.ELBAddr = v.GetString(routerclient.ParamELBAddr)
	cfg.IP = v.GetString(routerclient.ParamIP)
	cfg.Offset = v.GetInt(routerclient.ParamOffset)
	cfg.NotifyPort = v.GetInt(routerclient.ParamNotifyPort)

	ports, err := routerclient.ParsePorts(v.GetString(routerclient.ParamELBPorts))
	if err != nil {
		return Config{}, err
	}
	if len(ports) > 0 {
		cfg.ELBPorts = ports
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can address a router.
func (c Config) Validate() error {
	if c.ELBAddr == "" {
		return errors.New(routerclient.ParamELBAddr + " must not be empty")
	}
	if len(c.ELBPorts) == 0 {
		return errors.New(routerclient.ParamELBPorts + " must not be empty")
	}
	for _, port := range c.ELBPorts {
		if !validPort(port) {
			return fmt.Errorf("%s: %w", routerclient.ParamELBPorts, &routerclient.PortError{Value: fmt.Sprint(port)})
		}
	}
	if net.ParseIP(c.IP) == nil {
		return errors.New(routerclient.ParamIP + " must be an IP address")
	}
	if c.Offset < 0 || !validPort(routerclient.KeyAddressResponseBasePort+c.Offset) {
		return errors.New(routerclient.ParamOffset + " is out of range")
	}
	if !validPort(c.NotifyPort) {
		return fmt.Errorf("%s: %w", routerclient.ParamNotifyPort, &routerclient.PortError{Value: fmt.Sprint(c.NotifyPort)})
	}
	return nil
}

// ResponseAddress is the address a router answers key address requests to.
func (c Config) ResponseAddress() string {
	return transport.Destination(c.IP, routerclient.KeyAddressResponseBasePort+c.Offset)
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}
