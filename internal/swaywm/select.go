package swaywm

import (
	sway "github.com/joshuarubin/go-sway"

	"github.com/1broseidon/swaygravity/internal/geometry"
)

// SelectTarget picks the controlled window from the focused workspace's
// floating windows. A single floating window is selected regardless of focus;
// with more than one the focused window must itself be floating. The policy
// deliberately refuses to guess among multiple floaters.
func SelectTarget(tree *sway.Node) (*sway.Node, error) {
	ws := focusedWorkspace(tree)
	if ws == nil {
		return nil, ErrNoTarget
	}

	floating := ws.FloatingNodes
	switch len(floating) {
	case 0:
		return nil, ErrNoTarget
	case 1:
		return floating[0], nil
	}

	for _, n := range floating {
		if n.Focused {
			return n, nil
		}
	}
	return nil, ErrAmbiguousTarget
}

// WorkingAreaFor returns the rect of the workspace containing the given
// node. A window straddling outputs is attributed to the workspace that
// reports it in its tree at selection time.
func WorkingAreaFor(tree *sway.Node, id int64) (geometry.Rect, error) {
	ws := workspaceContaining(tree, id)
	if ws == nil {
		return geometry.Rect{}, ErrNoTarget
	}
	return RectOf(ws.Rect), nil
}

// RectOf converts a sway rect into workspace-local pixel coordinates.
func RectOf(r sway.Rect) geometry.Rect {
	return geometry.Rect{
		X:      int(r.X),
		Y:      int(r.Y),
		Width:  int(r.Width),
		Height: int(r.Height),
	}
}

// focusedWorkspace finds the workspace whose subtree holds the focused node,
// falling back to the first workspace that is itself focused.
func focusedWorkspace(n *sway.Node) *sway.Node {
	var found *sway.Node
	walkWorkspaces(n, func(ws *sway.Node) bool {
		if ws.Focused || containsFocus(ws) {
			found = ws
			return false
		}
		return true
	})
	return found
}

func workspaceContaining(n *sway.Node, id int64) *sway.Node {
	var found *sway.Node
	walkWorkspaces(n, func(ws *sway.Node) bool {
		if containsNode(ws, id) {
			found = ws
			return false
		}
		return true
	})
	return found
}

// walkWorkspaces visits workspace nodes until fn returns false.
func walkWorkspaces(n *sway.Node, fn func(*sway.Node) bool) bool {
	if n == nil {
		return true
	}
	if n.Type == sway.NodeWorkspace {
		return fn(n)
	}
	for _, child := range n.Nodes {
		if !walkWorkspaces(child, fn) {
			return false
		}
	}
	return true
}

func containsFocus(n *sway.Node) bool {
	if n.Focused {
		return true
	}
	for _, child := range n.Nodes {
		if containsFocus(child) {
			return true
		}
	}
	for _, child := range n.FloatingNodes {
		if containsFocus(child) {
			return true
		}
	}
	return false
}

func containsNode(n *sway.Node, id int64) bool {
	if n.ID == id {
		return true
	}
	for _, child := range n.Nodes {
		if containsNode(child, id) {
			return true
		}
	}
	for _, child := range n.FloatingNodes {
		if containsNode(child, id) {
			return true
		}
	}
	return false
}
