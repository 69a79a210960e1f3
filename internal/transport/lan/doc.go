// Package lan implements the Govee LAN protocol transport.
//
// It rides on the go-vee multicast controller: a background listener
// collects scan responses from devices with LAN control enabled, and
// commands go straight to the device over UDP. The LAN channel knows
// devices only by IP and SKU, supports the basic command set (power,
// brightness, color, color temperature), and answers state reads from
// the last commanded values, since the protocol offers no query.
package lan
