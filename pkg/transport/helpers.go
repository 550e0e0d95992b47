package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Scheme prefixes every destination string.
const Scheme = "tcp://"

// Destination returns the canonical name of host:port, which is the key of the socket cache.
func Destination(host string, port int) string {
	return Scheme + net.JoinHostPort(host, itoa(port))
}

// ParseDestination splits a destination string created by Destination.
func ParseDestination(destination string) (string, int, error) {
	if !strings.HasPrefix(destination, Scheme) {
		return "", 0, fmt.Errorf("destination %q does not start with %s", destination, Scheme)
	}
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(destination, Scheme))
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("destination %q has an invalid port: %w", destination, err)
	}
	return host, int(port), nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
