package routerclient

import (
	"fmt"
)

// Tier is a storage class of the key-value store. The numeric values and names
// match the routing tier's enumeration and must not be changed.
type Tier int32

const (
	TierUnspecified Tier = 0
	TierMemory      Tier = 1
	TierDisk        Tier = 2
	TierRouting     Tier = 3
)

var tierNames = map[Tier]string{
	TierUnspecified: "TIER_UNSPECIFIED",
	TierMemory:      "MEMORY",
	TierDisk:        "DISK",
	TierRouting:     "ROUTING",
}

var tierValues = map[string]Tier{
	"TIER_UNSPECIFIED": TierUnspecified,
	"MEMORY":           TierMemory,
	"DISK":             TierDisk,
	"ROUTING":          TierRouting,
}

// String returns the canonical name of the tier as the routing tier parses it.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tier(%d)", int32(t))
}

// IsStorage reports whether nodes of this tier hold keys.
func (t Tier) IsStorage() bool {
	return t == TierMemory || t == TierDisk
}

// ParseTier returns the Tier with the given canonical name.
func ParseTier(name string) (Tier, error) {
	if t, ok := tierValues[name]; ok {
		return t, nil
	}
	return TierUnspecified, fmt.Errorf("unknown tier %q", name)
}
