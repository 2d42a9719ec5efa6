package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"howett.net/plist"

	"github.com/agentdevice/agent-device/internal/domain"
)

// simctlDevicesResponse is simctl's `list devices --json` shape, keyed
// by runtime identifier.
type simctlDevicesResponse struct {
	Devices map[string][]simctlDevice `json:"devices"`
}

type simctlDevice struct {
	UDID         string  `json:"udid"`
	Name         string  `json:"name"`
	State        string  `json:"state"`
	IsAvailable  bool    `json:"isAvailable"`
	LastBootedAt *string `json:"lastBootedAt"`
}

const (
	simctlListDevicesTimeout     = 10 * time.Second
	simctlBootTimeout            = 30 * time.Second
	simctlShutdownTimeout        = 30 * time.Second
	simctlGetAppContainerTimeout = 10 * time.Second
)

// IOSSimulatorAdapter wraps `xcrun simctl` for simulator discovery,
// lifecycle, and app metadata, directly adapted from the teacher's
// simulator.Manager: same short-lived device-list cache, same
// boot/shutdown idempotency handling, same plist-based app info lookup.
type IOSSimulatorAdapter struct {
	xcrunPath string
	cacheTTL  time.Duration

	cacheMu       sync.Mutex
	cachedDevices []domain.Device
	cacheAt       time.Time
}

// NewIOSSimulatorAdapter returns an adapter using the system `xcrun`.
func NewIOSSimulatorAdapter() *IOSSimulatorAdapter {
	return &IOSSimulatorAdapter{xcrunPath: "xcrun", cacheTTL: 2 * time.Second}
}

// ListDevices returns every available simulator, served from a 2s cache
// to avoid hammering simctl on rapid successive calls.
func (a *IOSSimulatorAdapter) ListDevices(ctx context.Context) ([]domain.Device, error) {
	a.cacheMu.Lock()
	if a.cachedDevices != nil && time.Since(a.cacheAt) < a.cacheTTL {
		devs := make([]domain.Device, len(a.cachedDevices))
		copy(devs, a.cachedDevices)
		a.cacheMu.Unlock()
		return devs, nil
	}
	a.cacheMu.Unlock()

	result, err := Run(ctx, a.xcrunPath, []string{"simctl", "list", "devices", "--json"}, RunOptions{Timeout: simctlListDevicesTimeout})
	if err != nil {
		return nil, fmt.Errorf("simctl list failed: %w", err)
	}

	var resp simctlDevicesResponse
	if err := json.Unmarshal([]byte(result.Stdout), &resp); err != nil {
		return nil, fmt.Errorf("parse simctl output: %w", err)
	}

	var devices []domain.Device
	for _, devs := range resp.Devices {
		for _, d := range devs {
			if !d.IsAvailable {
				continue
			}
			devices = append(devices, domain.Device{
				Platform: domain.PlatformIOS,
				ID:       d.UDID,
				Name:     d.Name,
				Kind:     domain.DeviceKindSimulator,
				Booted:   strings.EqualFold(d.State, "Booted"),
			})
		}
	}

	a.cacheMu.Lock()
	a.cachedDevices = devices
	a.cacheAt = time.Now()
	a.cacheMu.Unlock()

	return devices, nil
}

// AmbiguousDeviceError reports a fuzzy device query matching more than
// one device; both the iOS simulator and Android adapters return it.
type AmbiguousDeviceError struct {
	Query   string
	Matches []domain.Device
}

func (e *AmbiguousDeviceError) Error() string {
	names := make([]string, 0, len(e.Matches))
	for _, d := range e.Matches {
		names = append(names, fmt.Sprintf("%s (%s)", d.Name, d.ID))
	}
	sort.Strings(names)
	return fmt.Sprintf("ambiguous device query %q matches multiple devices:\n  %s", e.Query, strings.Join(names, "\n  "))
}

// FindDevice resolves nameOrUDID to a Device: exact UDID match, then
// exact name match, then substring fuzzy match (unique only) — the
// teacher's three-tier FindDevice tolerance, used here for *resolution*
// only, never for the session-selector cross-check (see domain.Device.MatchesName).
func (a *IOSSimulatorAdapter) FindDevice(ctx context.Context, nameOrUDID string) (*domain.Device, error) {
	devices, err := a.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(nameOrUDID)
	for _, d := range devices {
		if strings.ToLower(d.ID) == needle {
			return &d, nil
		}
	}
	for _, d := range devices {
		if strings.ToLower(d.Name) == needle {
			return &d, nil
		}
	}

	var fuzzy []domain.Device
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			fuzzy = append(fuzzy, d)
		}
	}
	switch len(fuzzy) {
	case 0:
		return nil, fmt.Errorf("device not found: %s", nameOrUDID)
	case 1:
		return &fuzzy[0], nil
	default:
		return nil, &AmbiguousDeviceError{Query: nameOrUDID, Matches: fuzzy}
	}
}

// BootDevice boots a simulator by UDID, treating "already booted" as
// success rather than an error.
func (a *IOSSimulatorAdapter) BootDevice(ctx context.Context, udid string) error {
	result, err := Run(ctx, a.xcrunPath, []string{"simctl", "boot", udid}, RunOptions{Timeout: simctlBootTimeout, AllowFailure: true})
	if err != nil {
		return fmt.Errorf("boot device: %w", err)
	}
	if result.ExitCode != 0 {
		if strings.Contains(result.Stderr, "current state: Booted") || strings.Contains(result.Stdout, "current state: Booted") {
			return nil
		}
		return fmt.Errorf("failed to boot device: %s", result.Stderr)
	}
	return nil
}

// ShutdownDevice shuts down a simulator by UDID.
func (a *IOSSimulatorAdapter) ShutdownDevice(ctx context.Context, udid string) error {
	_, err := Run(ctx, a.xcrunPath, []string{"simctl", "shutdown", udid}, RunOptions{Timeout: simctlShutdownTimeout})
	return err
}

// IsBooted reports the current boot state for udid.
func (a *IOSSimulatorAdapter) IsBooted(ctx context.Context, udid string) (bool, error) {
	devices, err := a.ListDevices(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range devices {
		if d.ID == udid {
			return d.Booted, nil
		}
	}
	return false, fmt.Errorf("device not found: %s", udid)
}

// AppInfo returns an installed app's version/build, read from its
// container's Info.plist via howett.net/plist, matching the teacher's
// GetAppInfo.
func (a *IOSSimulatorAdapter) AppInfo(ctx context.Context, udid, bundleID string) (version, build string, err error) {
	if bundleID == "" {
		return "", "", fmt.Errorf("bundle ID required")
	}

	result, err := Run(ctx, a.xcrunPath, []string{"simctl", "get_app_container", udid, bundleID, "--app"}, RunOptions{Timeout: simctlGetAppContainerTimeout})
	if err != nil {
		return "", "", fmt.Errorf("get_app_container: %w", err)
	}

	containerPath := strings.TrimSpace(result.Stdout)
	infoPlist := filepath.Join(containerPath, "Info.plist")

	raw, err := os.ReadFile(infoPlist)
	if err != nil {
		return "", "", fmt.Errorf("read Info.plist: %w", err)
	}
	var data map[string]interface{}
	if _, err := plist.Unmarshal(raw, &data); err != nil {
		return "", "", fmt.Errorf("parse Info.plist: %w", err)
	}

	if v, ok := data["CFBundleShortVersionString"].(string); ok {
		version = v
	}
	if b, ok := data["CFBundleVersion"].(string); ok {
		build = b
	}
	return version, build, nil
}

// RecordVideo starts `xcrun simctl io <udid> recordVideo <path>` as a
// background process and returns a stop function that sends SIGINT (the
// signal simctl's recorder expects to finalize the file) and waits for
// exit.
func (a *IOSSimulatorAdapter) RecordVideo(ctx context.Context, udid, outPath string) (stop func() error, err error) {
	return startBackgroundRecorder(ctx, a.xcrunPath, []string{"simctl", "io", udid, "recordVideo", outPath})
}
