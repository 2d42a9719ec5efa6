package client

import (
	"net"
	"os"
	"testing"
)

func TestCanDial(t *testing.T) {
	if canDial(0) {
		t.Error("canDial(0) should be false: port 0 never denotes a live listener")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	if !canDial(port) {
		t.Errorf("canDial(%d) = false, want true for a live listener", port)
	}
	ln.Close()
	if canDial(port) {
		t.Errorf("canDial(%d) = true after closing the listener", port)
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("processAlive(self) should be true")
	}
	if processAlive(0) {
		t.Error("processAlive(0) should be false")
	}
	if processAlive(-1) {
		t.Error("processAlive(-1) should be false")
	}
}

func TestLocateDaemonBinary_NotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := locateDaemonBinary(); err == nil {
		t.Error("expected an error when agent-deviced is on neither PATH nor next to the test binary")
	}
}
