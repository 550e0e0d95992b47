package routerclient

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const (
	// DefaultELBAddr is the default address of the routing tier's load balancer.
	DefaultELBAddr = "127.0.0.1"
	// DefaultIP is the default address this client advertises for responses.
	DefaultIP = "127.0.0.1"
	// DefaultLocal is the default locality mode.  A local cluster exposes a single routing port.
	DefaultLocal = true
	// DefaultOffset is the default port offset, used when several clients share one IP.
	DefaultOffset = 0
	// DefaultNotifyPort is the port on which routers listen for node join/depart messages.
	DefaultNotifyPort = 6400
	// DefaultCacheTTL is the default lifetime of a locally cached key address. 0 means no expiry.
	DefaultCacheTTL = time.Duration(0)
	// DefaultNotifySink is the default transport for membership notifications.
	DefaultNotifySink = NotifySinkSocket

	// RoutingBasePort is the first routing-query port of a router.
	RoutingBasePort = 6450
	// RoutingThreads is the number of routing-query ports a non-local router exposes.
	RoutingThreads = 4
	// KeyAddressResponseBasePort is the base port on which clients receive key address responses.
	KeyAddressResponseBasePort = 6460
)

const (
	// NotifySinkSocket sends membership notifications to the notify port of the load balancer.
	NotifySinkSocket = "socket"
	// NotifySinkRedis publishes membership notifications on a Redis channel.
	NotifySinkRedis = "redis"
)

const (
	// ParamELBAddr is the name of parameter with the address of the routing tier's load balancer.
	ParamELBAddr = "elb-addr"
	// ParamELBPorts is the name of parameter with the list of routing-query ports.
	ParamELBPorts = "elb-ports"
	// ParamIP is the name of parameter with the IP this client advertises.
	ParamIP = "ip"
	// ParamLocal is the name of parameter which selects local (single routing port) mode.
	ParamLocal = "local"
	// ParamOffset is the name of parameter with the client port offset.
	ParamOffset = "offset"
	// ParamNotifyPort is the name of parameter with the membership notification port.
	ParamNotifyPort = "notify-port"
	// ParamCacheTTL is the name of parameter with the local key address cache TTL.
	ParamCacheTTL = "cache-ttl"
	// ParamNotifySink is the name of parameter selecting the membership notification transport.
	ParamNotifySink = "notify-sink"
)

// DefaultELBPorts returns the routing-query ports of a router in the given locality mode.
func DefaultELBPorts(local bool) []int {
	if local {
		return []int{RoutingBasePort}
	}
	ports := make([]int, 0, RoutingThreads)
	for i := 0; i < RoutingThreads; i++ {
		ports = append(ports, RoutingBasePort+i)
	}
	return ports
}

// AddFlags adds flags to the specified FlagSet.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ParamELBAddr, DefaultELBAddr, "Address of the routing tier load balancer")
	//TODO Remove workaround when https://github.com/spf13/viper/issues/112 is fixed
	fs.String(ParamELBPorts, "", "Comma-separated list of routing-query ports (default depends on --"+ParamLocal+")")
	fs.String(ParamIP, DefaultIP, "IP address this client advertises for responses")
	fs.Bool(ParamLocal, DefaultLocal, "Talk to a local cluster with a single routing port")
	fs.Int(ParamOffset, DefaultOffset, "Port offset of this client")
	fs.Int(ParamNotifyPort, DefaultNotifyPort, "Port on which routers accept membership notifications")
	fs.Duration(ParamCacheTTL, DefaultCacheTTL, "Lifetime of locally cached key addresses (0 to disable expiry)")
	fs.String(ParamNotifySink, DefaultNotifySink, "Membership notification transport, one of "+NotifySinkSocket+" or "+NotifySinkRedis)
}

// ParsePorts parses a comma-separated list of ports.  An empty string returns nil.
func ParsePorts(s string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		port, err := strconv.ParseUint(part, 10, 16)
		if err != nil || port == 0 {
			return nil, &PortError{Value: part}
		}
		ports = append(ports, int(port))
	}
	return ports, nil
}

// PortError reports an unparseable port.
type PortError struct {
	Value string
}

func (e *PortError) Error() string {
	return "invalid port " + strconv.Quote(e.Value)
}
