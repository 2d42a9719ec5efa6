package platform

import (
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
)

const (
	adbDevicesTimeout   = 10 * time.Second
	adbShellTimeout     = 15 * time.Second
	adbUITreeTimeout    = 15 * time.Second
	adbScreenshotTimeout = 15 * time.Second
	adbInstallTimeout   = 120 * time.Second
)

// AndroidAdapter drives Android emulators and physical devices over
// `adb`, grounded on the same Run-based subprocess pattern as
// IOSSimulatorAdapter (internal/platform/exec.go), generalized from
// xcrun invocations to adb's shell/exec-out surface.
type AndroidAdapter struct {
	adbPath string

	cacheMu       sync.Mutex
	cachedDevices []domain.Device
	cacheAt       time.Time
	cacheTTL      time.Duration
}

// NewAndroidAdapter returns an adapter using the system `adb`.
func NewAndroidAdapter() *AndroidAdapter {
	return &AndroidAdapter{adbPath: "adb", cacheTTL: 2 * time.Second}
}

func (a *AndroidAdapter) Platform() domain.Platform { return domain.PlatformAndroid }

func (a *AndroidAdapter) shell(ctx context.Context, serial string, args ...string) (RunResult, error) {
	full := append([]string{"-s", serial, "shell"}, args...)
	return Run(ctx, a.adbPath, full, RunOptions{Timeout: adbShellTimeout})
}

var adbDeviceLineRe = regexp.MustCompile(`^(\S+)\s+(device|offline|unauthorized)\b`)

// ListDevices parses `adb devices -l`, served from a 2s cache like the
// iOS simulator adapter.
func (a *AndroidAdapter) ListDevices(ctx context.Context) ([]domain.Device, error) {
	a.cacheMu.Lock()
	if a.cachedDevices != nil && time.Since(a.cacheAt) < a.cacheTTL {
		devs := make([]domain.Device, len(a.cachedDevices))
		copy(devs, a.cachedDevices)
		a.cacheMu.Unlock()
		return devs, nil
	}
	a.cacheMu.Unlock()

	result, err := Run(ctx, a.adbPath, []string{"devices", "-l"}, RunOptions{Timeout: adbDevicesTimeout})
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}

	var devices []domain.Device
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		m := adbDeviceLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		serial := m[1]
		kind := domain.DeviceKindDevice
		if strings.HasPrefix(serial, "emulator-") {
			kind = domain.DeviceKindEmulator
		}
		name := serial
		if modelIdx := strings.Index(line, "model:"); modelIdx >= 0 {
			rest := line[modelIdx+len("model:"):]
			if sp := strings.IndexByte(rest, ' '); sp >= 0 {
				name = rest[:sp]
			} else {
				name = rest
			}
		}
		devices = append(devices, domain.Device{
			Platform: domain.PlatformAndroid,
			ID:       serial,
			Name:     name,
			Kind:     kind,
			Booted:   m[2] == "device",
		})
	}

	a.cacheMu.Lock()
	a.cachedDevices = devices
	a.cacheAt = time.Now()
	a.cacheMu.Unlock()

	return devices, nil
}

// FindDevice resolves nameOrSerial: exact serial, then exact name, then
// unique substring — the same three-tier tolerance as
// IOSSimulatorAdapter.FindDevice, for resolution only.
func (a *AndroidAdapter) FindDevice(ctx context.Context, nameOrSerial string) (*domain.Device, error) {
	devices, err := a.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(nameOrSerial)
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
		return nil, fmt.Errorf("device not found: %s", nameOrSerial)
	case 1:
		return &fuzzy[0], nil
	default:
		return nil, &AmbiguousDeviceError{Query: nameOrSerial, Matches: fuzzy}
	}
}

// EnsureReady polls `getprop sys.boot_completed` per spec.md §4.E,
// failing fast (no retry) on device-not-found/permission errors and
// otherwise deferring the retry loop to the caller (internal/retry).
func (a *AndroidAdapter) EnsureReady(ctx context.Context, device domain.Device, timeout time.Duration) ReadyResult {
	result, err := a.shell(ctx, device.ID, "getprop", "sys.boot_completed")
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not found") {
			return ReadyResult{Ready: false, Hint: "device not found; check `adb devices`", Reason: "ADB_TRANSPORT_UNAVAILABLE"}
		}
		if strings.Contains(msg, "permission") || strings.Contains(msg, "unauthorized") {
			return ReadyResult{Ready: false, Hint: "device unauthorized; confirm the USB debugging prompt on-device", Reason: "ADB_TRANSPORT_UNAVAILABLE"}
		}
		return ReadyResult{Ready: false, Hint: "adb shell failed: " + msg, Reason: "ANDROID_BOOT_TIMEOUT"}
	}
	if strings.TrimSpace(result.Stdout) == "1" {
		return ReadyResult{Ready: true}
	}
	return ReadyResult{Ready: false, Hint: "device still booting", Reason: "ANDROID_BOOT_TIMEOUT"}
}

// Boot is a no-op success for a device adb already reports online
// (state "device"); for any other device it returns an error, since adb
// alone cannot start an emulator. EnsureReady is what callers actually
// wait on.
func (a *AndroidAdapter) Boot(ctx context.Context, device domain.Device) error {
	if device.Booted {
		return nil
	}
	return fmt.Errorf("cannot boot android device %s from adb alone; start the emulator out of band", device.ID)
}

func (a *AndroidAdapter) OpenApp(ctx context.Context, device domain.Device, target string, relaunch bool) (string, error) {
	if target == "" {
		return "", fmt.Errorf("app bundle id or activity required")
	}
	if relaunch {
		_ = a.TerminateApp(ctx, device, target)
	}
	component := target
	if !strings.Contains(target, "/") {
		component = target + "/.MainActivity"
	}
	_, err := a.shell(ctx, device.ID, "am", "start", "-n", component)
	if err != nil {
		// Fall back to monkey, which only needs the package name.
		if _, err2 := a.shell(ctx, device.ID, "monkey", "-p", target, "-c", "android.intent.category.LAUNCHER", "1"); err2 != nil {
			return "", fmt.Errorf("launch %s: %w", target, err)
		}
	}
	return target, nil
}

func (a *AndroidAdapter) TerminateApp(ctx context.Context, device domain.Device, bundleID string) error {
	_, err := a.shell(ctx, device.ID, "am", "force-stop", bundleID)
	return err
}

func (a *AndroidAdapter) AppState(ctx context.Context, device domain.Device, bundleID string) (string, error) {
	result, err := a.shell(ctx, device.ID, "dumpsys", "activity", "processes")
	if err != nil {
		return "", err
	}
	if strings.Contains(result.Stdout, bundleID) {
		return "foreground", nil
	}
	return "not_running", nil
}

func (a *AndroidAdapter) Apps(ctx context.Context, device domain.Device, metadata bool) ([]AppInfo, error) {
	result, err := a.shell(ctx, device.ID, "pm", "list", "packages", "-3")
	if err != nil {
		return nil, err
	}
	var apps []AppInfo
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		pkg := strings.TrimPrefix(line, "package:")
		if pkg == "" {
			continue
		}
		app := AppInfo{BundleID: pkg}
		if metadata {
			app.Version, app.Build = a.appVersion(ctx, device, pkg)
		}
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].BundleID < apps[j].BundleID })
	return apps, nil
}

var (
	versionNameRe = regexp.MustCompile(`versionName=(\S+)`)
	versionCodeRe = regexp.MustCompile(`versionCode=(\d+)`)
)

func (a *AndroidAdapter) appVersion(ctx context.Context, device domain.Device, pkg string) (version, build string) {
	result, err := a.shell(ctx, device.ID, "dumpsys", "package", pkg)
	if err != nil {
		return "", ""
	}
	if m := versionNameRe.FindStringSubmatch(result.Stdout); m != nil {
		version = m[1]
	}
	if m := versionCodeRe.FindStringSubmatch(result.Stdout); m != nil {
		build = m[1]
	}
	return version, build
}

func (a *AndroidAdapter) Reinstall(ctx context.Context, device domain.Device, appPath string) error {
	_, err := Run(ctx, a.adbPath, []string{"-s", device.ID, "install", "-r", appPath}, RunOptions{Timeout: adbInstallTimeout})
	return err
}

func (a *AndroidAdapter) Push(ctx context.Context, device domain.Device, localPath, remotePath string) error {
	_, err := Run(ctx, a.adbPath, []string{"-s", device.ID, "push", localPath, remotePath}, RunOptions{Timeout: adbInstallTimeout})
	return err
}

func (a *AndroidAdapter) Settings(ctx context.Context, device domain.Device, key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	namespace, setting := "system", key
	if len(parts) == 2 {
		namespace, setting = parts[0], parts[1]
	}
	_, err := a.shell(ctx, device.ID, "settings", "put", namespace, setting, value)
	return err
}

// Snapshot dumps the current window's UI tree via `uiautomator dump`
// and parses the resulting XML into RawNodes.
func (a *AndroidAdapter) Snapshot(ctx context.Context, device domain.Device, opts SnapshotOptions) ([]domain.RawNode, domain.Backend, error) {
	if _, err := a.shell(ctx, device.ID, "uiautomator", "dump", "/sdcard/agent-device-dump.xml"); err != nil {
		return nil, domain.BackendAndroid, fmt.Errorf("uiautomator dump: %w", err)
	}
	result, err := a.shell(ctx, device.ID, "cat", "/sdcard/agent-device-dump.xml")
	if err != nil {
		return nil, domain.BackendAndroid, fmt.Errorf("read ui dump: %w", err)
	}
	nodes, err := parseUIAutomatorXML(result.Stdout)
	if err != nil {
		return nil, domain.BackendAndroid, err
	}
	if opts.Depth > 0 {
		nodes = filterByDepth(nodes, opts.Depth)
	}
	return nodes, domain.BackendAndroid, nil
}

func filterByDepth(nodes []domain.RawNode, maxDepth int) []domain.RawNode {
	out := make([]domain.RawNode, 0, len(nodes))
	for _, n := range nodes {
		if n.Depth <= maxDepth {
			out = append(out, n)
		}
	}
	return out
}

// uiNode is the uiautomator dump XML element shape.
type uiNode struct {
	XMLName      xml.Name `xml:"node"`
	Index        string   `xml:"index,attr"`
	Text         string   `xml:"text,attr"`
	ResourceID   string   `xml:"resource-id,attr"`
	Class        string   `xml:"class,attr"`
	ContentDesc  string   `xml:"content-desc,attr"`
	Clickable    string   `xml:"clickable,attr"`
	Focusable    string   `xml:"focusable,attr"`
	Enabled      string   `xml:"enabled,attr"`
	Selected     string   `xml:"selected,attr"`
	Bounds       string   `xml:"bounds,attr"`
	Children     []uiNode `xml:"node"`
}

type uiHierarchy struct {
	XMLName xml.Name `xml:"hierarchy"`
	Root    []uiNode `xml:"node"`
}

var boundsRe = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

func parseBounds(s string) *domain.Rect {
	m := boundsRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	x1, _ := strconv.ParseFloat(m[1], 64)
	y1, _ := strconv.ParseFloat(m[2], 64)
	x2, _ := strconv.ParseFloat(m[3], 64)
	y2, _ := strconv.ParseFloat(m[4], 64)
	if x2 < x1 || y2 < y1 {
		return nil
	}
	return &domain.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// parseUIAutomatorXML flattens a nested uiautomator dump into a preorder
// RawNode list with parent indices, the shape snapshot.AttachRefs
// expects.
func parseUIAutomatorXML(raw string) ([]domain.RawNode, error) {
	var h uiHierarchy
	if err := xml.Unmarshal([]byte(raw), &h); err != nil {
		return nil, fmt.Errorf("parse uiautomator xml: %w", err)
	}

	var out []domain.RawNode
	var walk func(n uiNode, depth int, parent *int)
	walk = func(n uiNode, depth int, parent *int) {
		idx := len(out)
		enabled := n.Enabled == "true"
		selected := n.Selected == "true"
		hittable := n.Clickable == "true" || n.Focusable == "true"
		label := n.Text
		if label == "" {
			label = n.ContentDesc
		}
		out = append(out, domain.RawNode{
			Index:       idx,
			ParentIndex: parent,
			Depth:       depth,
			Type:        n.Class,
			Label:       label,
			Identifier:  n.ResourceID,
			Rect:        parseBounds(n.Bounds),
			Enabled:     &enabled,
			Selected:    &selected,
			Hittable:    &hittable,
		})
		me := idx
		for _, child := range n.Children {
			walk(child, depth+1, &me)
		}
	}
	for _, root := range h.Root {
		walk(root, 0, nil)
	}
	return out, nil
}

func (a *AndroidAdapter) Tap(ctx context.Context, device domain.Device, x, y float64) error {
	_, err := a.shell(ctx, device.ID, "input", "tap", fmt.Sprint(int(x)), fmt.Sprint(int(y)))
	return err
}

func (a *AndroidAdapter) LongPress(ctx context.Context, device domain.Device, x, y float64, holdMs int) error {
	if holdMs <= 0 {
		holdMs = 800
	}
	xi, yi := int(x), int(y)
	_, err := a.shell(ctx, device.ID, "input", "swipe",
		fmt.Sprint(xi), fmt.Sprint(yi), fmt.Sprint(xi), fmt.Sprint(yi), fmt.Sprint(holdMs))
	return err
}

func (a *AndroidAdapter) TypeText(ctx context.Context, device domain.Device, text string) error {
	escaped := strings.ReplaceAll(text, " ", "%s")
	_, err := a.shell(ctx, device.ID, "input", "text", escaped)
	return err
}

func (a *AndroidAdapter) Scroll(ctx context.Context, device domain.Device, dx, dy float64) error {
	const originX, originY = 540, 1200
	_, err := a.shell(ctx, device.ID, "input", "swipe",
		fmt.Sprint(originX), fmt.Sprint(originY),
		fmt.Sprint(int(originX+dx)), fmt.Sprint(int(originY+dy)), "300")
	return err
}

func (a *AndroidAdapter) Pinch(ctx context.Context, device domain.Device, x, y, scale float64) error {
	return fmt.Errorf("pinch gesture is not supported by `adb input`; use a two-pointer gesture via the XCTest-equivalent layer on this platform")
}

func (a *AndroidAdapter) Screenshot(ctx context.Context, device domain.Device, outPath string) error {
	result, err := Run(ctx, a.adbPath, []string{"-s", device.ID, "exec-out", "screencap", "-p"}, RunOptions{Timeout: adbScreenshotTimeout})
	if err != nil {
		return err
	}
	return writeFile(outPath, result.Stdout)
}

func (a *AndroidAdapter) Home(ctx context.Context, device domain.Device) error {
	_, err := a.shell(ctx, device.ID, "input", "keyevent", "KEYCODE_HOME")
	return err
}

func (a *AndroidAdapter) Back(ctx context.Context, device domain.Device) error {
	_, err := a.shell(ctx, device.ID, "input", "keyevent", "KEYCODE_BACK")
	return err
}

func (a *AndroidAdapter) AppSwitcher(ctx context.Context, device domain.Device) error {
	_, err := a.shell(ctx, device.ID, "input", "keyevent", "KEYCODE_APP_SWITCH")
	return err
}

func (a *AndroidAdapter) Alert(ctx context.Context, device domain.Device, action string) (AlertInfo, error) {
	nodes, _, err := a.Snapshot(ctx, device, SnapshotOptions{})
	if err != nil {
		return AlertInfo{}, err
	}
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Type), "alertdialog") {
			info := AlertInfo{Present: true, Title: n.Label}
			if action == "accept" {
				return info, a.Tap(ctx, device, 0, 0) // best-effort; real targeting needs button coordinates
			}
			return info, nil
		}
	}
	return AlertInfo{Present: false}, nil
}

// androidRecordHandle tracks a `screenrecord` capture in progress.
type androidRecordHandle struct {
	adapter    *AndroidAdapter
	device     domain.Device
	remotePath string
	localPath  string
	stop       func() error
}

func (h *androidRecordHandle) Stop(ctx context.Context) (string, error) {
	if err := h.stop(); err != nil {
		return "", err
	}
	if _, err := Run(ctx, h.adapter.adbPath, []string{"-s", h.device.ID, "pull", h.remotePath, h.localPath}, RunOptions{Timeout: adbInstallTimeout}); err != nil {
		return "", fmt.Errorf("pull recording: %w", err)
	}
	_, _ = h.adapter.shell(ctx, h.device.ID, "rm", "-f", h.remotePath)
	return h.localPath, nil
}

// RecordStart launches `adb shell screenrecord` in the background per
// spec.md §4.G; Stop signals it, pulls the file, and cleans up the
// remote copy.
func (a *AndroidAdapter) RecordStart(ctx context.Context, device domain.Device, outPath string) (RecordHandle, error) {
	remotePath := fmt.Sprintf("/sdcard/agent-device-recording-%d.mp4", time.Now().UnixNano())
	stop, err := startBackgroundRecorder(ctx, a.adbPath, []string{"-s", device.ID, "shell", "screenrecord", remotePath})
	if err != nil {
		return nil, err
	}
	return &androidRecordHandle{adapter: a, device: device, remotePath: remotePath, localPath: outPath, stop: stop}, nil
}
