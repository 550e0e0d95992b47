package membership

import (
	"errors"
	"net"
	"strings"

	"github.com/annakv/routerclient"
)

// EventKind is the kind of membership change.
type EventKind string

const (
	Join    EventKind = "join"
	Depart  EventKind = "depart"
	Replace EventKind = "replace"
)

// ReservedField is the value of the reserved field in every event.
const ReservedField = "0"

var (
	ErrUnknownEvent     = errors.New("unknown membership event")
	ErrInvalidTier      = errors.New("tier is not a storage tier")
	ErrInvalidIP        = errors.New("invalid IPv4 address")
	ErrEmptyVirtualID   = errors.New("virtual id must not be empty")
	ErrInvalidVirtualID = errors.New("virtual id must not contain the delimiter or whitespace")
	ErrInvalidReserved  = errors.New("reserved field must be " + ReservedField)
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case Join, Depart, Replace:
		return true
	}
	return false
}

// Event describes one storage node joining, departing, or being replaced.
type Event struct {
	Kind      EventKind
	Tier      routerclient.Tier
	PublicIP  string
	PrivateIP string
	Reserved  string
	VirtualID string
}

// NewEvent creates an Event for a memory tier node, which is the only tier this client announces.
func NewEvent(kind EventKind, publicIP, privateIP, virtualID string) Event {
	return Event{
		Kind:      kind,
		Tier:      routerclient.TierMemory,
		PublicIP:  publicIP,
		PrivateIP: privateIP,
		Reserved:  ReservedField,
		VirtualID: virtualID,
	}
}

// Validate checks that the event can be encoded and parsed back unchanged.
func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return ErrUnknownEvent
	}
	if !e.Tier.IsStorage() {
		return ErrInvalidTier
	}
	if !isIPv4(e.PublicIP) || !isIPv4(e.PrivateIP) {
		return ErrInvalidIP
	}
	if e.Reserved != ReservedField {
		return ErrInvalidReserved
	}
	if e.VirtualID == "" {
		return ErrEmptyVirtualID
	}
	if strings.ContainsAny(e.VirtualID, Delimiter+" \t\r\n") {
		return ErrInvalidVirtualID
	}
	return nil
}

// Node returns the identity of the node on the ring, independent of the event kind.
func (e Event) Node() string {
	return e.PrivateIP + "/" + e.VirtualID
}

// isIPv4 only accepts dotted quads, IPv6 addresses contain the delimiter.
func isIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && !strings.Contains(s, Delimiter)
}
