package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the runtime directory used for the control socket. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/swaygravity-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/swaygravity-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SessionName identifies the compositor session the daemon is scoped to, so
// independent sessions each get their own control socket.
func SessionName() string {
	if display := os.Getenv("WAYLAND_DISPLAY"); display != "" {
		return display
	}
	if sock := os.Getenv("SWAYSOCK"); sock != "" {
		return strings.TrimSuffix(filepath.Base(sock), ".sock")
	}
	return "sway"
}

// SocketPath returns the session-scoped control socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "swaygravity", SessionName()+".sock"), nil
}
