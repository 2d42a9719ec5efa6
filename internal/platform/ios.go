package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
)

// runnerDataContainerBundleID is the XCTest runner's own bundle id,
// whose app data container holds staged recording files copied off a
// physical device via devicectl (spec.md §4.G).
const runnerDataContainerBundleID = "com.agentdevice.xctest-runner"

// IOSAdapter implements platform.Adapter for both iOS simulators and
// physical devices: simulator lifecycle/listing goes through
// IOSSimulatorAdapter (`xcrun simctl`), physical-device readiness goes
// through devicectl, and UI inspection/interaction for both goes
// through the XCTest runner RPC client, per spec.md §1's platform split.
type IOSAdapter struct {
	sim       *IOSSimulatorAdapter
	runner    *XCTestRunnerClient
	xcrunPath string
}

// NewIOSAdapter wires a simulator adapter and an XCTest runner client
// whose base URL is resolved per device (simulators and devices each
// forward the runner's RPC port differently; that resolution is left to
// runnerBaseURL since it depends on how the runner was launched).
func NewIOSAdapter(sim *IOSSimulatorAdapter, runnerBaseURL func(domain.Device) string) *IOSAdapter {
	return &IOSAdapter{
		sim:       sim,
		runner:    NewXCTestRunnerClient(runnerBaseURL),
		xcrunPath: "xcrun",
	}
}

func (a *IOSAdapter) Platform() domain.Platform { return domain.PlatformIOS }

func (a *IOSAdapter) ListDevices(ctx context.Context) ([]domain.Device, error) {
	return a.sim.ListDevices(ctx)
}

func (a *IOSAdapter) FindDevice(ctx context.Context, query string) (*domain.Device, error) {
	return a.sim.FindDevice(ctx, query)
}

// EnsureReady dispatches by device kind: devicectl's tunnel-state probe
// for physical devices, simctl bootstatus semantics for simulators.
func (a *IOSAdapter) EnsureReady(ctx context.Context, device domain.Device, timeout time.Duration) ReadyResult {
	if device.Kind == domain.DeviceKindDevice {
		return probeDevicectlReady(ctx, a.xcrunPath, device.ID, timeout)
	}
	booted, err := a.sim.IsBooted(ctx, device.ID)
	if err != nil {
		return ReadyResult{Ready: false, Hint: err.Error(), Reason: "IOS_BOOT_TIMEOUT"}
	}
	if booted {
		return ReadyResult{Ready: true}
	}
	return ReadyResult{Ready: false, Hint: "simulator is not booted", Reason: "IOS_BOOT_TIMEOUT"}
}

func (a *IOSAdapter) Boot(ctx context.Context, device domain.Device) error {
	if device.Kind == domain.DeviceKindDevice {
		return nil // physical devices are always "booted"; EnsureReady governs readiness
	}
	return a.sim.BootDevice(ctx, device.ID)
}

func (a *IOSAdapter) OpenApp(ctx context.Context, device domain.Device, target string, relaunch bool) (string, error) {
	if target == "" {
		return "", fmt.Errorf("app bundle id or URL required")
	}
	if relaunch {
		_ = a.TerminateApp(ctx, device, target)
	}
	if device.Kind == domain.DeviceKindDevice {
		_, err := Run(ctx, a.xcrunPath, []string{"devicectl", "device", "process", "launch", "--device", device.ID, target}, RunOptions{Timeout: 30 * time.Second})
		return target, err
	}
	_, err := Run(ctx, a.xcrunPath, []string{"simctl", "launch", device.ID, target}, RunOptions{Timeout: 30 * time.Second})
	return target, err
}

func (a *IOSAdapter) TerminateApp(ctx context.Context, device domain.Device, bundleID string) error {
	if device.Kind == domain.DeviceKindDevice {
		_, err := Run(ctx, a.xcrunPath, []string{"devicectl", "device", "process", "terminate", "--device", device.ID, "--bundle-id", bundleID}, RunOptions{Timeout: 30 * time.Second, AllowFailure: true})
		return err
	}
	_, err := Run(ctx, a.xcrunPath, []string{"simctl", "terminate", device.ID, bundleID}, RunOptions{Timeout: 30 * time.Second, AllowFailure: true})
	return err
}

func (a *IOSAdapter) AppState(ctx context.Context, device domain.Device, bundleID string) (string, error) {
	return a.runner.AppState(ctx, device, bundleID)
}

func (a *IOSAdapter) Apps(ctx context.Context, device domain.Device, metadata bool) ([]AppInfo, error) {
	result, err := Run(ctx, a.xcrunPath, []string{"simctl", "listapps", device.ID}, RunOptions{Timeout: 15 * time.Second, AllowFailure: true})
	if err != nil {
		return nil, err
	}
	bundleIDs := extractBundleIDs(result.Stdout)
	apps := make([]AppInfo, 0, len(bundleIDs))
	for _, id := range bundleIDs {
		app := AppInfo{BundleID: id}
		if metadata {
			app.Version, app.Build, _ = a.sim.AppInfo(ctx, device.ID, id)
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// extractBundleIDs pulls `CFBundleIdentifier = "com.example.app";`-style
// entries out of simctl listapps' plist-ish text dump without pulling in
// a full plist parser for a one-line extraction.
func extractBundleIDs(dump string) []string {
	var ids []string
	const marker = "CFBundleIdentifier = "
	for {
		idx := indexOf(dump, marker)
		if idx < 0 {
			break
		}
		rest := dump[idx+len(marker):]
		start := indexOf(rest, `"`)
		if start < 0 {
			break
		}
		rest = rest[start+1:]
		end := indexOf(rest, `"`)
		if end < 0 {
			break
		}
		ids = append(ids, rest[:end])
		dump = rest[end+1:]
	}
	return ids
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func (a *IOSAdapter) Reinstall(ctx context.Context, device domain.Device, appPath string) error {
	if device.Kind == domain.DeviceKindDevice {
		_, err := Run(ctx, a.xcrunPath, []string{"devicectl", "device", "install", "app", "--device", device.ID, appPath}, RunOptions{Timeout: 120 * time.Second})
		return err
	}
	_, err := Run(ctx, a.xcrunPath, []string{"simctl", "install", device.ID, appPath}, RunOptions{Timeout: 120 * time.Second})
	return err
}

func (a *IOSAdapter) Push(ctx context.Context, device domain.Device, localPath, remotePath string) error {
	if device.Kind == domain.DeviceKindDevice {
		_, err := Run(ctx, a.xcrunPath, []string{
			"devicectl", "device", "copy", "to", "--device", device.ID,
			"--source", localPath, "--destination", remotePath,
			"--domain-type", "appDataContainer", "--domain-identifier", runnerDataContainerBundleID,
		}, RunOptions{Timeout: 60 * time.Second})
		return err
	}
	_, err := Run(ctx, a.xcrunPath, []string{"simctl", "addmedia", device.ID, localPath}, RunOptions{Timeout: 60 * time.Second})
	return err
}

func (a *IOSAdapter) Settings(ctx context.Context, device domain.Device, key, value string) error {
	_, err := Run(ctx, a.xcrunPath, []string{"simctl", "spawn", device.ID, "defaults", "write", key, value}, RunOptions{Timeout: 15 * time.Second})
	return err
}

func (a *IOSAdapter) Snapshot(ctx context.Context, device domain.Device, opts SnapshotOptions) ([]domain.RawNode, domain.Backend, error) {
	nodes, err := a.runner.Snapshot(ctx, device, opts)
	return nodes, domain.BackendXCTest, err
}

func (a *IOSAdapter) Tap(ctx context.Context, device domain.Device, x, y float64) error {
	return a.runner.Tap(ctx, device, x, y)
}

func (a *IOSAdapter) LongPress(ctx context.Context, device domain.Device, x, y float64, holdMs int) error {
	return a.runner.LongPress(ctx, device, x, y, holdMs)
}

func (a *IOSAdapter) TypeText(ctx context.Context, device domain.Device, text string) error {
	return a.runner.TypeText(ctx, device, text)
}

func (a *IOSAdapter) Scroll(ctx context.Context, device domain.Device, dx, dy float64) error {
	return a.runner.Scroll(ctx, device, dx, dy)
}

func (a *IOSAdapter) Pinch(ctx context.Context, device domain.Device, x, y, scale float64) error {
	return a.runner.Pinch(ctx, device, x, y, scale)
}

func (a *IOSAdapter) Screenshot(ctx context.Context, device domain.Device, outPath string) error {
	_, err := Run(ctx, a.xcrunPath, []string{"simctl", "io", device.ID, "screenshot", outPath}, RunOptions{Timeout: 15 * time.Second})
	if device.Kind == domain.DeviceKindDevice {
		_, err = Run(ctx, a.xcrunPath, []string{"devicectl", "device", "process", "screenshot", "--device", device.ID, "--output", outPath}, RunOptions{Timeout: 15 * time.Second})
	}
	return err
}

func (a *IOSAdapter) Home(ctx context.Context, device domain.Device) error {
	return a.runner.Home(ctx, device)
}

func (a *IOSAdapter) Back(ctx context.Context, device domain.Device) error {
	return fmt.Errorf("iOS has no system-wide back gesture equivalent to Android's")
}

func (a *IOSAdapter) AppSwitcher(ctx context.Context, device domain.Device) error {
	return a.runner.AppSwitcher(ctx, device)
}

func (a *IOSAdapter) Alert(ctx context.Context, device domain.Device, action string) (AlertInfo, error) {
	return a.runner.Alert(ctx, device, action)
}

// iosRecordHandle distinguishes simulator (local process) from physical
// device (runner RPC + devicectl copy) recording stop sequences.
type iosRecordHandle struct {
	adapter    *IOSAdapter
	device     domain.Device
	localPath  string
	remotePath string
	simStop    func() error
}

func (h *iosRecordHandle) Stop(ctx context.Context) (string, error) {
	if h.device.Kind != domain.DeviceKindDevice {
		if err := h.simStop(); err != nil {
			return "", err
		}
		return h.localPath, nil
	}

	err := h.adapter.runner.RecordStop(ctx, h.device)
	if err != nil {
		// Runner desync recovery per spec.md §4.G: retry recordStop once,
		// then attempt a fresh recordStart/Stop cycle.
		if err2 := h.adapter.runner.RecordStop(ctx, h.device); err2 != nil {
			if err3 := h.adapter.runner.RecordStart(ctx, h.device, h.remotePath); err3 == nil {
				err = h.adapter.runner.RecordStop(ctx, h.device)
			}
		} else {
			err = nil
		}
		if err != nil {
			return "", fmt.Errorf("record stop: %w", err)
		}
	}

	if copyErr := devicectlCopyFrom(ctx, h.adapter.xcrunPath, h.device.ID, h.remotePath, h.localPath, runnerDataContainerBundleID); copyErr != nil {
		return "", copyErr
	}
	return h.localPath, nil
}

func (a *IOSAdapter) RecordStart(ctx context.Context, device domain.Device, outPath string) (RecordHandle, error) {
	if device.Kind != domain.DeviceKindDevice {
		stop, err := a.sim.RecordVideo(ctx, device.ID, outPath)
		if err != nil {
			return nil, err
		}
		return &iosRecordHandle{adapter: a, device: device, localPath: outPath, simStop: stop}, nil
	}

	remotePath := fmt.Sprintf("tmp/agent-device-recording-%d.mp4", time.Now().UnixNano())
	if err := a.runner.RecordStart(ctx, device, remotePath); err != nil {
		return nil, err
	}
	return &iosRecordHandle{adapter: a, device: device, localPath: outPath, remotePath: remotePath}, nil
}
