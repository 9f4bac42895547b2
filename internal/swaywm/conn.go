// Package swaywm wraps the sway IPC surface the daemon consumes: tree
// snapshots, move/resize commands and the event subscription.
package swaywm

import (
	"context"
	"errors"
	"fmt"
	"time"

	sway "github.com/joshuarubin/go-sway"
)

var (
	// ErrNoTarget means the focused workspace has no floating window.
	ErrNoTarget = errors.New("no floating window on the focused workspace")
	// ErrAmbiguousTarget means several floating windows exist and none of
	// them is focused.
	ErrAmbiguousTarget = errors.New("multiple floating windows and none focused")
	// ErrCommandFailed means sway rejected or timed out on a command.
	ErrCommandFailed = errors.New("sway command failed")
)

// Conn is the subset of the sway IPC protocol used by the daemon. It is an
// interface so the event loop can be exercised against a fake.
type Conn interface {
	Tree(ctx context.Context) (*sway.Node, error)
	MoveWindow(ctx context.Context, id int64, x, y int) error
	ResizeWindow(ctx context.Context, id int64, width, height uint32) error
	Wake(ctx context.Context) error
}

// Client is the go-sway backed Conn. Every call is bounded by a timeout; a
// timed-out command surfaces as ErrCommandFailed.
type Client struct {
	client  sway.Client
	timeout time.Duration
}

// Connect opens a sway IPC connection.
func Connect(ctx context.Context) (*Client, error) {
	c, err := sway.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sway: %w", err)
	}
	return &Client{client: c, timeout: 3 * time.Second}, nil
}

func (c *Client) Tree(ctx context.Context) (*sway.Node, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tree, err := c.client.GetTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get_tree: %v", ErrCommandFailed, err)
	}
	return tree, nil
}

func (c *Client) MoveWindow(ctx context.Context, id int64, x, y int) error {
	return c.run(ctx, fmt.Sprintf(`[con_id="%d"] move position %d %d`, id, x, y))
}

func (c *Client) ResizeWindow(ctx context.Context, id int64, width, height uint32) error {
	return c.run(ctx, fmt.Sprintf(`[con_id="%d"] resize set %d px %d px`, id, width, height))
}

// Wake sends a tick so a blocked event subscription gets a chance to observe
// shutdown.
func (c *Client) Wake(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.client.SendTick(ctx, "")
	return err
}

func (c *Client) run(ctx context.Context, cmd string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	replies, err := c.client.RunCommand(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCommandFailed, cmd, err)
	}
	for _, reply := range replies {
		if !reply.Success {
			return fmt.Errorf("%w: %q: %s", ErrCommandFailed, cmd, reply.Error)
		}
	}
	return nil
}
