package platform

import (
	"context"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
)

// SnapshotOptions shapes a single accessibility-tree capture, mirroring
// the `snapshot*` flag set from spec.md §6.
type SnapshotOptions struct {
	InteractiveOnly bool
	Compact         bool
	Depth           int
	Scope           string // a selector chain string, or empty for whole-screen
	Raw             bool
}

// AppInfo describes one installed application, returned by `apps`.
type AppInfo struct {
	BundleID string `json:"bundleId"`
	Name     string `json:"name,omitempty"`
	Version  string `json:"version,omitempty"`
	Build    string `json:"build,omitempty"`
}

// AlertInfo describes a system alert currently on screen, if any.
type AlertInfo struct {
	Present bool     `json:"present"`
	Title   string   `json:"title,omitempty"`
	Message string   `json:"message,omitempty"`
	Buttons []string `json:"buttons,omitempty"`
}

// ReadyResult is the outcome of a device readiness probe (spec.md §4.E).
type ReadyResult struct {
	Ready bool
	Hint  string
	// Reason, when set and Ready is false, classifies the failure for
	// retry.Classifier (e.g. "IOS_BOOT_TIMEOUT", "ADB_TRANSPORT_UNAVAILABLE").
	Reason string
}

// RecordHandle is returned by RecordStart; Stop finalizes the capture
// and returns the local path the video/trace ended up at.
type RecordHandle interface {
	Stop(ctx context.Context) (localPath string, err error)
}

// Adapter is the per-platform automation backend the daemon's handlers
// dispatch through. AndroidAdapter (ADB) and IOSAdapter (simctl +
// devicectl + an XCTest runner RPC) both implement it; handlers never
// branch on domain.Platform themselves beyond picking which Adapter to
// call (spec.md §1's "Out of scope: platform adapters" boundary — this
// interface is the seam).
type Adapter interface {
	Platform() domain.Platform

	ListDevices(ctx context.Context) ([]domain.Device, error)
	FindDevice(ctx context.Context, query string) (*domain.Device, error)
	EnsureReady(ctx context.Context, device domain.Device, timeout time.Duration) ReadyResult
	Boot(ctx context.Context, device domain.Device) error

	OpenApp(ctx context.Context, device domain.Device, target string, relaunch bool) (bundleID string, err error)
	TerminateApp(ctx context.Context, device domain.Device, bundleID string) error
	AppState(ctx context.Context, device domain.Device, bundleID string) (string, error)
	Apps(ctx context.Context, device domain.Device, metadata bool) ([]AppInfo, error)
	Reinstall(ctx context.Context, device domain.Device, appPath string) error
	Push(ctx context.Context, device domain.Device, localPath, remotePath string) error
	Settings(ctx context.Context, device domain.Device, key, value string) error

	Snapshot(ctx context.Context, device domain.Device, opts SnapshotOptions) ([]domain.RawNode, domain.Backend, error)
	Tap(ctx context.Context, device domain.Device, x, y float64) error
	LongPress(ctx context.Context, device domain.Device, x, y float64, holdMs int) error
	TypeText(ctx context.Context, device domain.Device, text string) error
	Scroll(ctx context.Context, device domain.Device, dx, dy float64) error
	Pinch(ctx context.Context, device domain.Device, x, y, scale float64) error
	Screenshot(ctx context.Context, device domain.Device, outPath string) error
	Home(ctx context.Context, device domain.Device) error
	Back(ctx context.Context, device domain.Device) error
	AppSwitcher(ctx context.Context, device domain.Device) error
	Alert(ctx context.Context, device domain.Device, action string) (AlertInfo, error)

	RecordStart(ctx context.Context, device domain.Device, outPath string) (RecordHandle, error)
}
