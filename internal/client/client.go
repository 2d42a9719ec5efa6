// Package client is the CLI's half of spec.md §4.F's wire protocol: it
// locates a running daemon via daemon.json, auto-starts one if none is
// reachable, and exchanges newline-delimited JSON requests/responses
// over the loopback socket. Grounded on the teacher's cli/launch.go,
// which spawns and supervises a subprocess from the CLI; generalized
// here from "stream a child process's stdout" to "ensure a long-lived
// daemon is listening, then speak its line protocol."
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/agentdevice/agent-device/internal/config"
	"github.com/agentdevice/agent-device/internal/daemon"
	"github.com/agentdevice/agent-device/internal/domain"
)

// daemonBinaryName is the executable locateDaemonBinary looks for, both
// on PATH and alongside the running CLI binary, when no daemon is
// reachable yet.
const daemonBinaryName = "agent-deviced"

// Client holds an open connection to a running daemon.
type Client struct {
	conn  net.Conn
	rd    *bufio.Reader
	token string
}

// Dial connects to the daemon described by cfg's home directory,
// starting one in the background first if daemon.json is missing, stale
// (points at a dead PID), or simply not accepting connections yet.
func Dial(ctx context.Context, cfg *config.Config) (*Client, error) {
	info, err := readOrStartDaemon(ctx, cfg)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", info.Port), 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon on port %d: %w", info.Port, err)
	}
	return &Client{conn: conn, rd: bufio.NewReader(conn), token: info.Token}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Send writes req (stamping its token) and returns the daemon's
// response, per spec.md §4.F's one-request-one-response-line framing.
func (c *Client) Send(req domain.Request) (domain.Response, error) {
	req.Token = c.token
	encoded, err := json.Marshal(req)
	if err != nil {
		return domain.Response{}, err
	}
	encoded = append(encoded, '\n')
	if err := c.conn.SetDeadline(time.Now().Add(60 * time.Second)); err != nil {
		return domain.Response{}, err
	}
	if _, err := c.conn.Write(encoded); err != nil {
		return domain.Response{}, fmt.Errorf("write request: %w", err)
	}
	line, err := c.rd.ReadBytes('\n')
	if err != nil {
		return domain.Response{}, fmt.Errorf("read response: %w", err)
	}
	var resp domain.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return domain.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// readOrStartDaemon returns a live daemon.Info, starting the daemon
// process if the published info is absent, stale, or unreachable.
func readOrStartDaemon(ctx context.Context, cfg *config.Config) (daemon.Info, error) {
	path := daemon.InfoPath(cfg.HomeDir())
	if info, err := daemon.ReadInfo(path); err == nil && processAlive(info.PID) && canDial(info.Port) {
		return info, nil
	}

	if err := spawnDaemon(); err != nil {
		return daemon.Info{}, err
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if info, err := daemon.ReadInfo(path); err == nil && canDial(info.Port) {
			return info, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return daemon.Info{}, errors.New("timed out waiting for agent-deviced to start")
}

func canDial(port int) bool {
	if port == 0 {
		return false
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// spawnDaemon execs a detached agent-deviced process so it outlives this
// CLI invocation, redirecting its stdio away from the terminal. It
// deliberately uses exec.Command rather than exec.CommandContext: the
// daemon must survive this request's context being canceled or this
// process exiting.
func spawnDaemon() error {
	bin, err := locateDaemonBinary()
	if err != nil {
		return err
	}
	cmd := exec.Command(bin)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", bin, err)
	}
	return cmd.Process.Release()
}

func locateDaemonBinary() (string, error) {
	if path, err := exec.LookPath(daemonBinaryName); err == nil {
		return path, nil
	}
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), daemonBinaryName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found on PATH or next to the current executable", daemonBinaryName)
}
