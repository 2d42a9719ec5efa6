package store

import (
	"testing"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreOpenAndGet(t *testing.T) {
	s := NewSessionStore()
	dev := domain.Device{Platform: domain.PlatformIOS, ID: "udid-1", Name: "iPhone 15"}

	sess, err := s.Open("default", dev, time.Unix(0, 0))
	require.Nil(t, err)
	require.Equal(t, "default", sess.Name)

	got, gerr := s.Get("default")
	require.Nil(t, gerr)
	require.Same(t, sess, got)
}

func TestSessionStoreDeviceInUse(t *testing.T) {
	s := NewSessionStore()
	dev := domain.Device{Platform: domain.PlatformAndroid, ID: "emu-1"}

	_, err := s.Open("a", dev, time.Unix(0, 0))
	require.Nil(t, err)

	_, err = s.Open("b", dev, time.Unix(0, 0))
	require.NotNil(t, err)
	require.Equal(t, domain.ErrDeviceInUse, err.Code)
}

func TestSessionStoreDuplicateNameRejected(t *testing.T) {
	s := NewSessionStore()
	dev1 := domain.Device{Platform: domain.PlatformIOS, ID: "udid-1"}
	dev2 := domain.Device{Platform: domain.PlatformIOS, ID: "udid-2"}

	_, err := s.Open("default", dev1, time.Unix(0, 0))
	require.Nil(t, err)
	_, err = s.Open("default", dev2, time.Unix(0, 0))
	require.NotNil(t, err)
}

func TestSessionStoreCloseAndNotFound(t *testing.T) {
	s := NewSessionStore()
	dev := domain.Device{Platform: domain.PlatformIOS, ID: "udid-1"}
	_, _ = s.Open("default", dev, time.Unix(0, 0))

	require.Nil(t, s.Close("default"))
	_, err := s.Get("default")
	require.NotNil(t, err)
	require.Equal(t, domain.ErrSessionNotFound, err.Code)

	require.NotNil(t, s.Close("default"))
}

func TestResolveSessionNameDefaultsToSoleOpenSession(t *testing.T) {
	s := NewSessionStore()
	dev := domain.Device{Platform: domain.PlatformIOS, ID: "udid-1"}
	_, _ = s.Open("mine", dev, time.Unix(0, 0))

	require.Equal(t, "mine", s.ResolveSessionName(""))
	require.Equal(t, "other", s.ResolveSessionName("other"))
}

func TestResolveSessionNameFallsBackToDefaultNameWhenAmbiguous(t *testing.T) {
	s := NewSessionStore()
	dev1 := domain.Device{Platform: domain.PlatformIOS, ID: "udid-1"}
	dev2 := domain.Device{Platform: domain.PlatformAndroid, ID: "emu-1"}
	_, _ = s.Open("a", dev1, time.Unix(0, 0))
	_, _ = s.Open("b", dev2, time.Unix(0, 0))

	require.Equal(t, domain.DefaultSessionName, s.ResolveSessionName(""))
}

func TestRecordActionSkipsNoRecordAndStripsFlags(t *testing.T) {
	sess := &domain.Session{Name: "default", RecordSession: true}

	RecordAction(sess, domain.Action{Command: "click", Flags: map[string]interface{}{"noRecord": true}})
	require.Empty(t, sess.Actions)

	RecordAction(sess, domain.Action{
		Command: "fill",
		Flags:   map[string]interface{}{"device": "udid-1", "secretToken": "xyz"},
	})
	require.Len(t, sess.Actions, 1)
	require.Contains(t, sess.Actions[0].Flags, "device")
	require.NotContains(t, sess.Actions[0].Flags, "secretToken")
}

func TestRecordActionNoopWhenSessionNotRecording(t *testing.T) {
	sess := &domain.Session{Name: "default", RecordSession: false}
	RecordAction(sess, domain.Action{Command: "click"})
	require.Empty(t, sess.Actions)
}

func TestDefaultTracePathSanitizesName(t *testing.T) {
	p := DefaultTracePath("/tmp", "my session!", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.Contains(t, p, "my_session_")
	require.Contains(t, p, "2026-01-02")
}
