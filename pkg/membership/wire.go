package membership

import (
	"fmt"
	"strings"

	"github.com/annakv/routerclient"
)

const (
	// WireVersion is the version of the notification line format.
	WireVersion = 1
	// Delimiter separates the fields of a notification line.
	Delimiter = ":"
	// FieldCount is the number of fields in a version 1 notification line.
	FieldCount = 6
)

// Encode serializes e into a notification line.  The line has no trailing newline.
func Encode(e Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	return strings.Join([]string{
		string(e.Kind),
		e.Tier.String(),
		e.PublicIP,
		e.PrivateIP,
		e.Reserved,
		e.VirtualID,
	}, Delimiter), nil
}

// Parse deserializes a notification line, as the routing tier does.  A single trailing newline is ignored.
func Parse(line string) (Event, error) {
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	fields := strings.Split(line, Delimiter)
	if len(fields) != FieldCount {
		return Event{}, fmt.Errorf("expected %d fields, got %d", FieldCount, len(fields))
	}
	tier, err := routerclient.ParseTier(fields[1])
	if err != nil {
		return Event{}, err
	}
	e := Event{
		Kind:      EventKind(fields[0]),
		Tier:      tier,
		PublicIP:  fields[2],
		PrivateIP: fields[3],
		Reserved:  fields[4],
		VirtualID: fields[5],
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
