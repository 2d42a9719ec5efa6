// Package domain holds the core value types shared across the daemon:
// devices, sessions, snapshots, selectors, and the wire envelopes that
// carry them between the CLI and the daemon.
package domain

import "strings"

// Platform identifies which automation backend a device belongs to.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// DeviceKind distinguishes simulators/emulators from physical hardware.
type DeviceKind string

const (
	DeviceKindSimulator DeviceKind = "simulator"
	DeviceKindDevice    DeviceKind = "device"
	DeviceKindEmulator  DeviceKind = "emulator"
	DeviceKindUnknown   DeviceKind = "unknown"
)

// Device identifies a single iOS or Android target. Identity is the pair
// (Platform, ID); Device is immutable once a session has bound it.
type Device struct {
	Platform Platform   `json:"platform"`
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     DeviceKind `json:"kind"`
	Booted   bool       `json:"booted"`
}

// Key returns the identity used by the keyed device lock and by
// DEVICE_IN_USE checks: (platform, id).
func (d Device) Key() string {
	return string(d.Platform) + ":" + d.ID
}

// MatchesName reports whether a human-supplied name or id equals this
// device's name or id, case-insensitively. Used only for the
// session-selector cross-check (equality, never substring — see
// SPEC_FULL.md's Open Question decision on device matching).
func (d Device) MatchesName(name string) bool {
	return strings.EqualFold(d.Name, name) || strings.EqualFold(d.ID, name)
}
