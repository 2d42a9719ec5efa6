package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
)

// XCTestRunnerClient talks to the on-device/on-simulator XCTest runner's
// JSON RPC surface (spec.md §1: "an XCTest runner JSON protocol"), which
// hosts a small HTTP server reachable over the simulator's loopback
// network or a devicectl port-forward for physical devices. This client
// is intentionally thin: the runner's own behavior is an external
// collaborator per spec.md §1's scope boundary, not something this
// repo re-specifies.
type XCTestRunnerClient struct {
	httpClient *http.Client
	baseURL    func(device domain.Device) string
}

// NewXCTestRunnerClient returns a client whose baseURL func resolves a
// device to its runner's local HTTP endpoint (typically
// http://127.0.0.1:<forwarded-port> once a tunnel/port-forward is up).
func NewXCTestRunnerClient(baseURL func(domain.Device) string) *XCTestRunnerClient {
	return &XCTestRunnerClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

type rpcRequest struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// call issues one RPC method against device's runner and unmarshals the
// result into out (which may be nil for fire-and-forget calls).
func (c *XCTestRunnerClient) call(ctx context.Context, device domain.Device, method string, params map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return err
	}

	url := c.baseURL(device) + "/rpc"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("xctest runner %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("xctest runner %s: read response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("xctest runner %s: malformed response: %w", method, err)
	}
	if !rpcResp.OK {
		return fmt.Errorf("xctest runner %s: %s", method, rpcResp.Error)
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("xctest runner %s: decode result: %w", method, err)
		}
	}
	return nil
}

// runnerSnapshotResult mirrors the raw node shape the runner emits;
// identical field names to domain.RawNode so it decodes directly.
type runnerSnapshotResult struct {
	Nodes []domain.RawNode `json:"nodes"`
}

func (c *XCTestRunnerClient) Snapshot(ctx context.Context, device domain.Device, opts SnapshotOptions) ([]domain.RawNode, error) {
	var result runnerSnapshotResult
	params := map[string]interface{}{
		"interactiveOnly": opts.InteractiveOnly,
		"compact":         opts.Compact,
		"depth":           opts.Depth,
		"scope":           opts.Scope,
	}
	if err := c.call(ctx, device, "snapshot", params, &result); err != nil {
		return nil, err
	}
	return result.Nodes, nil
}

func (c *XCTestRunnerClient) Tap(ctx context.Context, device domain.Device, x, y float64) error {
	return c.call(ctx, device, "tap", map[string]interface{}{"x": x, "y": y}, nil)
}

func (c *XCTestRunnerClient) LongPress(ctx context.Context, device domain.Device, x, y float64, holdMs int) error {
	return c.call(ctx, device, "longPress", map[string]interface{}{"x": x, "y": y, "holdMs": holdMs}, nil)
}

func (c *XCTestRunnerClient) TypeText(ctx context.Context, device domain.Device, text string) error {
	return c.call(ctx, device, "typeText", map[string]interface{}{"text": text}, nil)
}

func (c *XCTestRunnerClient) Scroll(ctx context.Context, device domain.Device, dx, dy float64) error {
	return c.call(ctx, device, "scroll", map[string]interface{}{"dx": dx, "dy": dy}, nil)
}

func (c *XCTestRunnerClient) Pinch(ctx context.Context, device domain.Device, x, y, scale float64) error {
	return c.call(ctx, device, "pinch", map[string]interface{}{"x": x, "y": y, "scale": scale}, nil)
}

func (c *XCTestRunnerClient) Home(ctx context.Context, device domain.Device) error {
	return c.call(ctx, device, "home", nil, nil)
}

func (c *XCTestRunnerClient) AppSwitcher(ctx context.Context, device domain.Device) error {
	return c.call(ctx, device, "appSwitcher", nil, nil)
}

type runnerAlertResult struct {
	Present bool     `json:"present"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Buttons []string `json:"buttons"`
}

func (c *XCTestRunnerClient) Alert(ctx context.Context, device domain.Device, action string) (AlertInfo, error) {
	var result runnerAlertResult
	if err := c.call(ctx, device, "alert", map[string]interface{}{"action": action}, &result); err != nil {
		return AlertInfo{}, err
	}
	return AlertInfo(result), nil
}

func (c *XCTestRunnerClient) AppState(ctx context.Context, device domain.Device, bundleID string) (string, error) {
	var result struct {
		State string `json:"state"`
	}
	if err := c.call(ctx, device, "appState", map[string]interface{}{"bundleId": bundleID}, &result); err != nil {
		return "", err
	}
	return result.State, nil
}

// RecordStart tells the runner to begin capturing to a staged remote
// path (spec.md §4.G's `tmp/agent-device-recording-<ts>.mp4` convention
// for physical devices).
func (c *XCTestRunnerClient) RecordStart(ctx context.Context, device domain.Device, remotePath string) error {
	return c.call(ctx, device, "recordStart", map[string]interface{}{"path": remotePath}, nil)
}

// RecordStop stops an in-progress runner capture. Runner desync (the
// runner reports no capture in progress despite RecordStart having
// succeeded) is surfaced as a plain error; callers retry per spec.md
// §4.G's "recover from runner desync" policy.
func (c *XCTestRunnerClient) RecordStop(ctx context.Context, device domain.Device) error {
	return c.call(ctx, device, "recordStop", nil, nil)
}
