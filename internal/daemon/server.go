// Package daemon implements the long-lived local process spec.md §4.F
// describes: a loopback TCP listener speaking newline-delimited JSON,
// authenticated by a token published in daemon.json, dispatching every
// request into internal/handlers and draining active sessions on
// signal-triggered shutdown. Grounded on the teacher's
// internal/cli/launch.go and watch.go, whose signal.NotifyContext +
// errgroup combination generalizes here from "stream one subprocess's
// stdout/stderr until Ctrl-C" to "accept connections until Ctrl-C, then
// let in-flight requests observe the same cancellation every blocking
// operation already honors."
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agentdevice/agent-device/internal/diagnostics"
	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/handlers"
	"github.com/agentdevice/agent-device/internal/store"
)

const maxRequestLine = 4 * 1024 * 1024

// Server is one running daemon instance: a loopback listener, the token
// every client must present, and the shared Deps every connection
// dispatches requests against.
type Server struct {
	Deps     *handlers.Deps
	Token    string
	Logger   *zap.Logger
	InfoPath string

	listener net.Listener
	wg       sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// New builds a Server bound to a loopback port (OS-assigned unless
// deps.Config.Daemon.Port is set) with a freshly generated token, and
// writes its daemon.json.
func New(deps *handlers.Deps, logger *zap.Logger) (*Server, error) {
	port := deps.Config.Daemon.Port
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	token := uuid.NewString() + uuid.NewString()
	infoPath := InfoPath(deps.HomeDir)
	info := Info{
		Port:    ln.Addr().(*net.TCPAddr).Port,
		Token:   token,
		PID:     os.Getpid(),
		Version: "1",
	}
	if err := WriteInfo(infoPath, info); err != nil {
		ln.Close()
		return nil, fmt.Errorf("write daemon info: %w", err)
	}

	return &Server{
		Deps:     deps,
		Token:    token,
		Logger:   logger,
		InfoPath: infoPath,
		listener: ln,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts connections until ctx is canceled, then stops accepting,
// waits for in-flight connections to finish their current request, and
// drains every open session before returning.
func (s *Server) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-gctx.Done()
		err := s.listener.Close()
		s.closeOpenConns()
		return err
	})

	group.Go(func() error {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConn(ctx, conn)
			}()
		}
	})

	err := group.Wait()
	s.wg.Wait()
	s.drainSessions(context.Background())
	if removeErr := RemoveInfo(s.InfoPath); removeErr != nil && s.Logger != nil {
		s.Logger.Warn("failed to remove daemon info file", zap.Error(removeErr))
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// handleConn reads newline-delimited JSON requests off conn until it's
// closed or produces invalid input, dispatching each through
// internal/handlers and writing back one response line per request.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	s.trackConn(conn)
	defer s.untrackConn(conn)
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req domain.Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, domain.ErrResponse(domain.NewError(domain.ErrInvalidArgs, "malformed request: "+err.Error())))
			continue
		}

		resp := s.dispatchOne(ctx, req)
		if !s.writeResponse(conn, resp) {
			return
		}
	}
}

// dispatchOne authenticates req, attaches a diagnostics Scope, and routes
// it through handlers.Dispatch.
func (s *Server) dispatchOne(ctx context.Context, req domain.Request) domain.Response {
	if req.Token != s.Token {
		return domain.ErrResponse(domain.NewError(domain.ErrUnauthorized, "invalid token"))
	}

	requestID := uuid.NewString()
	debug := false
	if v, ok := req.Flags["verbose"].(bool); ok {
		debug = v
	}
	scope := diagnostics.NewScope(requestID, req.Session, req.Command, debug)
	scope.LogPath = diagnostics.LogFilePath(userHomeDir(), scope.Session, scope.DiagnosticID, s.Deps.Clock.Now())
	reqCtx := diagnostics.WithScope(ctx, scope)

	defer diagnostics.ClearRequestCanceled(requestID)
	resp := handlers.Dispatch(reqCtx, s.Deps, req)

	if resp.Error != nil {
		resp.Error.DiagnosticID = scope.DiagnosticID
		resp.Error.LogPath = scope.LogPath
	}
	return resp
}

func (s *Server) writeResponse(conn net.Conn, resp domain.Response) bool {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return false
	}
	encoded = append(encoded, '\n')
	if err := conn.SetWriteDeadline(time.Now().Add(30 * time.Second)); err != nil {
		return false
	}
	_, err = conn.Write(encoded)
	return err == nil
}

// drainSessions implements spec.md §4.F's shutdown sequence: stop every
// session's in-progress recording (finalizing its video/trace file) and
// flush its `.ad` script, best-effort, swallowing per-session errors
// since shutdown must complete regardless.
func (s *Server) drainSessions(ctx context.Context) {
	for _, sess := range s.Deps.Store.All() {
		if handle, ok := s.Deps.TakeRecording(sess.Name); ok {
			_, _ = handle.Stop(ctx)
		}
		if !sess.RecordSession {
			continue
		}
		scriptPath := sess.SaveScriptPath
		if scriptPath == "" {
			scriptPath = store.DefaultScriptPath(filepath.Join(s.Deps.HomeDir, "sessions"), sess.Name, s.Deps.Clock.Now())
		}
		if err := os.MkdirAll(filepath.Dir(scriptPath), 0o755); err == nil {
			_ = os.WriteFile(scriptPath, []byte(store.RenderScript(sess)), 0o644)
		}
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, conn)
}

// closeOpenConns force-closes every currently tracked connection so a
// blocked Read in handleConn unblocks once shutdown begins, instead of
// waiting indefinitely for a client that never closes its end.
func (s *Server) closeOpenConns() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
