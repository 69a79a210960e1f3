package lights

import (
	"strings"

	"github.com/goveedeck/core/internal/transport"
)

// normalize fills in the Capabilities of a discovery record when the
// transport only reported command names. Records that already carry
// capabilities pass through untouched.
func normalize(d transport.Device) transport.Device {
	if d.Capabilities != nil {
		return d
	}
	caps := deriveCapabilities(d.SupportedCommands)
	d.Capabilities = &caps
	return d
}

// deriveCapabilities maps the API command vocabulary onto capability
// flags. Matching is case-insensitive; unknown commands are ignored so
// new API commands never break discovery. Every Govee light can be
// switched, so power is asserted regardless of the reported commands.
func deriveCapabilities(cmds []string) transport.Capabilities {
	caps := transport.Capabilities{Power: true}
	for _, cmd := range cmds {
		switch strings.ToLower(cmd) {
		case "brightness":
			caps.Brightness = true
		case "color":
			caps.Color = true
		case "colortem", "color_tem":
			caps.ColorTem = true
		case "scene", "lightscene":
			caps.Scenes = true
		case "segmentcolor":
			caps.SegmentColor = true
		case "musicmode":
			caps.Music = true
		}
	}
	return caps
}
