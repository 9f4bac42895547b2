package runtimepath

import (
	"path/filepath"
	"testing"
)

func TestSocketPathUsesWaylandDisplay(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv("WAYLAND_DISPLAY", "wayland-1")
	t.Setenv("SWAYSOCK", "")

	got, err := SocketPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join("/run/user/1000", "swaygravity", "wayland-1.sock")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSessionNameFallsBackToSwaysock(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("SWAYSOCK", "/run/user/1000/sway-ipc.1000.42.sock")

	if got := SessionName(); got != "sway-ipc.1000.42" {
		t.Fatalf("got %q", got)
	}
}

func TestSessionNameDefault(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("SWAYSOCK", "")

	if got := SessionName(); got != "sway" {
		t.Fatalf("got %q", got)
	}
}

func TestDirPrefersXDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	dir, err := Dir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir == "" {
		t.Fatalf("empty dir")
	}
}
