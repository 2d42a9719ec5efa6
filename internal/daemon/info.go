package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Info is the daemon.json payload a client reads to discover how to
// reach a running daemon: its port, the auth token to present on every
// request, and enough identity to tell a stale file from a live one.
type Info struct {
	Port    int    `json:"port"`
	Token   string `json:"token"`
	PID     int    `json:"pid"`
	Version string `json:"version"`
}

// InfoPath is the fixed location a daemon writes its Info to and a
// client reads it from: <homeDir>/daemon.json.
func InfoPath(homeDir string) string {
	return filepath.Join(homeDir, "daemon.json")
}

// WriteInfo serializes info to path with mode 0600, since it carries the
// bearer token every client authenticates with.
func WriteInfo(path string, info Info) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	encoded, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o600)
}

// ReadInfo loads a previously written Info from path.
func ReadInfo(path string) (Info, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// RemoveInfo deletes path, ignoring a not-exist error so shutdown cleanup
// is idempotent.
func RemoveInfo(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
