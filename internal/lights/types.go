package lights

import (
	"time"

	"github.com/goveedeck/core/internal/transport"
)

// Light is a discovered device enriched with catalogue metadata.
// Capabilities is always populated after normalization.
type Light struct {
	transport.Device

	// FirstSeen is when the catalogue first recorded this device.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is when discovery last reported this device.
	LastSeen time.Time `json:"last_seen"`
}

// copyLights returns an independent copy of a light slice.
// Capabilities pointers are duplicated so callers cannot mutate shared
// state through a returned snapshot.
func copyLights(in []Light) []Light {
	out := make([]Light, len(in))
	copy(out, in)
	for i := range out {
		if out[i].Capabilities != nil {
			caps := *out[i].Capabilities
			out[i].Capabilities = &caps
		}
	}
	return out
}
