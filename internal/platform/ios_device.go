package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const devicectlInfoTimeout = 20 * time.Second

// devicectlInfoResult is the shape of `xcrun devicectl device info
// details --json-output`, trimmed to the fields spec.md §4.E inspects.
type devicectlInfoResult struct {
	Result struct {
		ConnectionProperties struct {
			TunnelState string `json:"tunnelState"`
		} `json:"connectionProperties"`
	} `json:"result"`
}

// knownDevicectlHints maps substrings seen in a failed devicectl
// invocation's stdout/stderr to operator-facing advice, per spec.md
// §4.E's "known strings map to specific advice" rule.
var knownDevicectlHints = []struct {
	substr string
	hint   string
}{
	{"not paired", "Trust this computer on the device, then try again."},
	{"No such device", "Check the device is connected and appears in `xcrun devicectl list devices`."},
	{"locked", "Unlock the device and keep the screen on."},
	{"developer mode", "Enable Developer Mode on the device (Settings > Privacy & Security > Developer Mode)."},
}

const defaultDevicectlHint = "Connect the device, unlock it, and trust this computer, then retry."

// probeDevicectlReady runs `xcrun devicectl device info details` for
// udid and interprets the result per spec.md §4.E's four-way branch:
// connected / connecting / unparseable JSON / non-zero exit.
func probeDevicectlReady(ctx context.Context, xcrunPath, udid string, timeout time.Duration) ReadyResult {
	tmpFile, err := os.CreateTemp("", "agent-device-devicectl-*.json")
	if err != nil {
		return ReadyResult{Ready: false, Hint: "failed to allocate temp file for devicectl output"}
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	timeoutSecs := strconv.Itoa(int(timeout.Seconds()))
	result, err := Run(ctx, xcrunPath, []string{
		"devicectl", "device", "info", "details",
		"--device", udid, "--timeout", timeoutSecs, "--json-output", tmpPath,
	}, RunOptions{Timeout: timeout + 5*time.Second, AllowFailure: true})

	if err != nil {
		return ReadyResult{Ready: false, Hint: "devicectl probe failed to run: " + err.Error()}
	}

	if result.ExitCode != 0 {
		combined := result.Stdout + result.Stderr
		for _, known := range knownDevicectlHints {
			if strings.Contains(combined, known.substr) {
				return ReadyResult{Ready: false, Hint: known.hint}
			}
		}
		return ReadyResult{Ready: false, Hint: defaultDevicectlHint}
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return ReadyResult{Ready: false, Hint: "devicectl exited 0 but produced no output; probe inconclusive"}
	}

	var parsed devicectlInfoResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ReadyResult{Ready: false, Hint: "devicectl output was not valid JSON; probe inconclusive"}
	}

	switch parsed.Result.ConnectionProperties.TunnelState {
	case "connected":
		return ReadyResult{Ready: true}
	case "connecting":
		return ReadyResult{Ready: false, Hint: "Device tunnel is still connecting. Keep the device unlocked and on the same network."}
	default:
		return ReadyResult{Ready: false, Hint: defaultDevicectlHint}
	}
}

// devicectlCopyFrom runs `xcrun devicectl device copy from` to retrieve
// a file staged by the XCTest runner in an app's data container, per
// spec.md §4.G's record/trace stop sequence for physical iOS devices.
func devicectlCopyFrom(ctx context.Context, xcrunPath, udid, source, destination, domainIdentifier string) error {
	_, err := Run(ctx, xcrunPath, []string{
		"devicectl", "device", "copy", "from",
		"--device", udid,
		"--source", source,
		"--destination", destination,
		"--domain-type", "appDataContainer",
		"--domain-identifier", domainIdentifier,
	}, RunOptions{Timeout: 60 * time.Second})
	if err != nil {
		return fmt.Errorf("devicectl copy from: %w", err)
	}
	return nil
}
