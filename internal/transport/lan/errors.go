package lan

import "errors"

// ErrNoDevices is reported in the health status when a scan pass found
// no LAN-controllable devices on the network.
var ErrNoDevices = errors.New("lan: no devices responded to scan")
