package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/swaygravity/internal/config"
	"github.com/1broseidon/swaygravity/internal/daemon"
	"github.com/1broseidon/swaygravity/internal/geometry"
	"github.com/1broseidon/swaygravity/internal/ipc"
	"github.com/1broseidon/swaygravity/internal/runtimepath"
	"github.com/1broseidon/swaygravity/internal/state"
	"github.com/1broseidon/swaygravity/internal/swaywm"
	"github.com/1broseidon/swaygravity/internal/unit"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// specValue is a flag.Value for size specifications that remembers whether
// the flag was given, so an unset flag leaves the daemon state untouched.
type specValue struct {
	spec unit.Spec
	set  bool
}

func (v *specValue) String() string {
	if !v.set {
		return ""
	}
	return v.spec.String()
}

func (v *specValue) Set(s string) error {
	spec, err := unit.Parse(s)
	if err != nil {
		return err
	}
	v.spec, v.set = spec, true
	return nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  swaygravity [flags] [<vertical> <horizontal>]")
	fmt.Fprintln(w, "  swaygravity -d [flags] [<vertical> <horizontal>]")
	fmt.Fprintln(w, "  swaygravity --shutdown | --status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Anchors the floating window on the focused sway workspace.")
	fmt.Fprintln(w, "<vertical> is top, middle or bottom; <horizontal> is left, middle or right.")
	fmt.Fprintln(w, "Without -d the request is sent to the running daemon; omitted flags keep")
	fmt.Fprintln(w, "the daemon's current placement.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}

func run(args []string) int {
	fs := flag.NewFlagSet("swaygravity", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { printUsage(os.Stderr, fs) }

	daemonMode := fs.Bool("daemon", false, "Run the daemon in the foreground, replacing a running one")
	fs.BoolVar(daemonMode, "d", false, "Shorthand for --daemon")
	var width, height specValue
	fs.Var(&width, "width", `Window width: "640px", "40%", or relative "+30px", "-5%"`)
	fs.Var(&height, "height", "Window height, same forms as --width")
	padding := fs.Int("padding", 0, "Gap between window and workspace edge, in pixels")
	fs.IntVar(padding, "p", 0, "Shorthand for --padding")
	natural := fs.Bool("natural", false, "Derive the aspect ratio from the window's natural geometry")
	socket := fs.String("socket", "", "Control socket path (default: session-scoped runtime path)")
	settleDelay := fs.Int("settle-delay", -1, "Milliseconds to wait before re-placing after a sway reload (daemon)")
	shutdown := fs.Bool("shutdown", false, "Ask the running daemon to exit")
	status := fs.Bool("status", false, "Show daemon status")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	seen := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { seen[f.Name] = true })

	var vertical *geometry.Vertical
	var horizontal *geometry.Horizontal
	switch fs.NArg() {
	case 0:
	case 2:
		v, err := geometry.ParseVertical(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		h, err := geometry.ParseHorizontal(fs.Arg(1))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		vertical, horizontal = &v, &h
	default:
		fmt.Fprintln(os.Stderr, "expected no positional arguments or <vertical> <horizontal>")
		fs.Usage()
		return 2
	}

	if *shutdown || *status {
		if fs.NArg() != 0 {
			fmt.Fprintf(os.Stderr, "--shutdown and --status take no arguments\n")
			return 2
		}
		socketPath, err := controlSocket(*socket, "")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *shutdown {
			return runShutdown(socketPath)
		}
		return runStatus(socketPath)
	}

	if *padding < 0 {
		fmt.Fprintln(os.Stderr, "padding must not be negative")
		return 2
	}

	req := state.Request{Vertical: vertical, Horizontal: horizontal}
	if seen["padding"] || seen["p"] {
		req.Padding = padding
	}
	if seen["natural"] {
		req.Natural = natural
	}
	if width.set {
		req.Width = &width.spec
	}
	if height.set {
		req.Height = &height.spec
	}

	if *daemonMode {
		return runDaemon(req, *socket, *settleDelay)
	}
	return runPlace(req, *socket)
}

// controlSocket picks the socket path: flag, then config, then the
// session-scoped default.
func controlSocket(flagPath, configPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if configPath != "" {
		return configPath, nil
	}
	return runtimepath.SocketPath()
}

func runPlace(req state.Request, socketFlag string) int {
	socketPath, err := controlSocket(socketFlag, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	payload := ipc.PlacePayload{
		Vertical:   req.Vertical,
		Horizontal: req.Horizontal,
		Padding:    req.Padding,
		Width:      req.Width,
		Height:     req.Height,
		Natural:    req.Natural,
	}
	if err := ipc.NewClient(socketPath).Place(payload); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runShutdown(socketPath string) int {
	if err := ipc.NewClient(socketPath).Shutdown(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(socketPath string) int {
	status, err := ipc.NewClient(socketPath).Status()
	if err != nil {
		if errors.Is(err, ipc.ErrConnection) {
			fmt.Println("daemon_running: false")
			return 1
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	fmt.Printf("anchor:         %s\n", status.Anchor)
	fmt.Printf("padding:        %d\n", status.Padding)
	if status.Width != "" {
		fmt.Printf("width:          %s\n", status.Width)
	}
	if status.Height != "" {
		fmt.Printf("height:         %s\n", status.Height)
	}
	fmt.Printf("natural:        %v\n", status.Natural)
	return 0
}

// runDaemon claims the session socket (evicting a predecessor daemon), wires
// the sway connection, IPC server and event subscription into the daemon loop
// and blocks until shutdown.
func runDaemon(flags state.Request, socketFlag string, settleFlag int) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return 1
	}

	initial, err := initialRequest(cfg, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	st, err := state.New(initial)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	settle := time.Duration(cfg.SettleDelayMS) * time.Millisecond
	if settleFlag >= 0 {
		settle = time.Duration(settleFlag) * time.Millisecond
	}

	socketPath, err := controlSocket(socketFlag, cfg.Socket)
	if err != nil {
		logger.Error("failed to resolve socket path", "error", err)
		return 1
	}

	listener, err := ipc.Claim(ipc.NewSocketEndpoint(socketPath), 2*time.Second)
	if err != nil {
		logger.Error("failed to claim session socket", "socket", socketPath, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := swaywm.Connect(ctx)
	if err != nil {
		logger.Error("failed to connect to sway", "error", err)
		listener.Close()
		return 1
	}

	d := daemon.New(conn, st, logger)

	server := ipc.NewServer(listener, d.Requests())
	server.Start()

	go func() {
		if err := swaywm.Subscribe(ctx, d.Events(), settle); err != nil && ctx.Err() == nil {
			logger.Error("sway event subscription ended", "error", err)
		}
	}()

	logger.Info("daemon started", "socket", socketPath, "anchor", st.Anchor.String())

	err = d.Run(ctx)

	// Let the final reply reach the client before the socket disappears,
	// then nudge the event subscription so it observes cancellation.
	time.Sleep(100 * time.Millisecond)
	server.Stop()
	_ = conn.Wake(context.Background())

	if err != nil {
		logger.Error("daemon stopped with error", "error", err)
		return 1
	}
	return 0
}

// initialRequest merges command-line flags over the config file defaults.
func initialRequest(cfg *config.Config, flags state.Request) (state.Request, error) {
	req := flags

	if req.Vertical == nil {
		v, err := geometry.ParseVertical(cfg.Vertical)
		if err != nil {
			return state.Request{}, err
		}
		req.Vertical = &v
	}
	if req.Horizontal == nil {
		h, err := geometry.ParseHorizontal(cfg.Horizontal)
		if err != nil {
			return state.Request{}, err
		}
		req.Horizontal = &h
	}
	if req.Padding == nil {
		padding := cfg.Padding
		req.Padding = &padding
	}
	if req.Natural == nil {
		natural := cfg.Natural
		req.Natural = &natural
	}
	if req.Width == nil && cfg.Width != "" {
		spec, err := unit.Parse(cfg.Width)
		if err != nil {
			return state.Request{}, fmt.Errorf("config width: %w", err)
		}
		req.Width = &spec
	}
	if req.Height == nil && cfg.Height != "" {
		spec, err := unit.Parse(cfg.Height)
		if err != nil {
			return state.Request{}, fmt.Errorf("config height: %w", err)
		}
		req.Height = &spec
	}
	return req, nil
}
