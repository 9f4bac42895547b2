package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// ErrStartupConflict means a predecessor daemon did not yield the session
// socket within the claim window.
var ErrStartupConflict = errors.New("existing daemon did not release the session socket")

// Endpoint abstracts the session-scoped exclusive resource the daemon binds,
// so the claim handshake can be tested without real sockets.
type Endpoint interface {
	// Bind claims the resource. Fails while another holder is alive or a
	// stale claim is left behind.
	Bind() (net.Listener, error)
	// Stale reports whether the resource exists but nothing answers on it.
	Stale() bool
	// Clear removes a stale claim.
	Clear() error
	// RequestShutdown asks the current holder to exit.
	RequestShutdown() error
}

// Claim binds the session endpoint, evicting a predecessor daemon if one is
// holding it: ask it to shut down, wait for the release bounded by wait, then
// retry. This makes repeated daemon starts idempotent; exactly one daemon
// holds the endpoint afterwards.
func Claim(ep Endpoint, wait time.Duration) (net.Listener, error) {
	ln, err := ep.Bind()
	if err == nil {
		return ln, nil
	}

	if ep.Stale() {
		// Leftover from a daemon that died without cleanup.
		if cerr := ep.Clear(); cerr != nil {
			return nil, fmt.Errorf("failed to clear stale session claim: %w", cerr)
		}
		return ep.Bind()
	}

	if rerr := ep.RequestShutdown(); rerr != nil {
		return nil, fmt.Errorf("%w: shutdown request failed: %v", ErrStartupConflict, rerr)
	}

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)

		if ln, err = ep.Bind(); err == nil {
			return ln, nil
		}
		if ep.Stale() {
			if cerr := ep.Clear(); cerr != nil {
				continue
			}
			if ln, err = ep.Bind(); err == nil {
				return ln, nil
			}
		}
	}
	return nil, ErrStartupConflict
}

// SocketEndpoint is the production endpoint: a unix socket at the
// session-scoped path.
type SocketEndpoint struct {
	Path        string
	DialTimeout time.Duration
}

func NewSocketEndpoint(path string) *SocketEndpoint {
	return &SocketEndpoint{Path: path, DialTimeout: time.Second}
}

func (e *SocketEndpoint) Bind() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(e.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", e.Path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(e.Path, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return listener, nil
}

func (e *SocketEndpoint) Stale() bool {
	if _, err := os.Stat(e.Path); err != nil {
		return false
	}
	conn, err := net.DialTimeout("unix", e.Path, e.DialTimeout)
	if err != nil {
		return true
	}
	conn.Close()
	return false
}

func (e *SocketEndpoint) Clear() error {
	return os.Remove(e.Path)
}

func (e *SocketEndpoint) RequestShutdown() error {
	return NewClient(e.Path).Shutdown()
}
