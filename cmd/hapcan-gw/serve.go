package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/hapcangw/internal/canbus"
	"github.com/muurk/hapcangw/internal/config"
	"github.com/muurk/hapcangw/internal/display"
	"github.com/muurk/hapcangw/internal/gateway"
	"github.com/muurk/hapcangw/internal/logging"
	"github.com/muurk/hapcangw/internal/server"
)

// Serve command flags. Each one overrides the config file only when set.
var (
	serveHost        string
	servePort        int
	serveMaxClients  int
	serveDriver      string
	serveInterface   string
	serveSerialPort  string
	serveBitrate     int
	serveWS          bool
	serveWSAddr      string
	serveDisplay     string
	serveNoMDNS      bool
	serveDescription string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long: `Open the CAN bus and accept HAPCAN clients.

Settings come from the config file (see 'hapcan-gw config path') and can be
overridden with flags. The gateway runs until interrupted.

Display modes:
  log   one log line per forwarded frame (default)
  tui   live terminal monitor; falls back to log when stdout is not a terminal
  none  no per-frame output`,
	Example: `  # Serve on the default port using SocketCAN interface can0
  hapcan-gw serve

  # Use an SLCAN USB adapter with the terminal monitor
  hapcan-gw serve --driver slcan --serial-port /dev/ttyACM0 --display tui

  # Try it without hardware
  hapcan-gw serve --driver virtual --port 11001 --log-level debug

  # Also accept WebSocket clients
  hapcan-gw serve --ws --ws-addr :8080`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveHost, "host", "", "Listen address (empty = all interfaces)")
	f.IntVar(&servePort, "port", 0, "TCP listen port (default 1001)")
	f.IntVar(&serveMaxClients, "max-clients", 0, "Maximum simultaneous clients")
	f.StringVar(&serveDriver, "driver", "", "CAN driver (socketcan, slcan, virtual)")
	f.StringVar(&serveInterface, "interface", "", "SocketCAN interface, e.g. can0")
	f.StringVar(&serveSerialPort, "serial-port", "", "SLCAN serial device, e.g. /dev/ttyACM0")
	f.IntVar(&serveBitrate, "bitrate", 0, "CAN bitrate in bits per second (default 125000)")
	f.BoolVar(&serveWS, "ws", false, "Accept WebSocket clients")
	f.StringVar(&serveWSAddr, "ws-addr", "", "WebSocket listen address, e.g. :8080")
	f.StringVar(&serveDisplay, "display", "", "Display mode (log, tui, none)")
	f.BoolVar(&serveNoMDNS, "no-mdns", false, "Do not advertise the gateway over mDNS")
	f.StringVar(&serveDescription, "description", "", "Name reported to description queries (max 16 characters)")
}

// applyServeFlags copies the flags the user set onto cfg and revalidates it.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Listen.Host = serveHost
	}
	if f.Changed("port") {
		cfg.Listen.Port = servePort
	}
	if f.Changed("max-clients") {
		cfg.Listen.MaxClients = serveMaxClients
	}
	if f.Changed("driver") {
		cfg.Bus.Driver = serveDriver
	}
	if f.Changed("interface") {
		cfg.Bus.Interface = serveInterface
	}
	if f.Changed("serial-port") {
		cfg.Bus.SerialPort = serveSerialPort
	}
	if f.Changed("bitrate") {
		cfg.Bus.Bitrate = serveBitrate
	}
	if f.Changed("ws") {
		cfg.WebSocket.Enabled = serveWS
	}
	if f.Changed("ws-addr") {
		cfg.WebSocket.Addr = serveWSAddr
		cfg.WebSocket.Enabled = true
	}
	if f.Changed("display") {
		cfg.Display.Mode = serveDisplay
	}
	if f.Changed("no-mdns") {
		cfg.MDNS.Enabled = !serveNoMDNS
	}
	if f.Changed("description") {
		cfg.Identity.Description = serveDescription
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	mode, err := display.ParseMode(cfg.Display.Mode)
	if err != nil {
		return err
	}
	mode = mode.Resolve(display.IsTerminal())

	// The monitor owns stdout, so logs go elsewhere.
	logOutput := "stdout"
	if mode == display.ModeTUI {
		logOutput = "stderr"
		if cfg.Display.LogFile != "" {
			logOutput = cfg.Display.LogFile
		}
	}
	if err := logging.InitializeTo(cfg.LogLevel, logOutput); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := canbus.Open(ctx, cfg.CANConfig())
	if err != nil {
		return err
	}
	defer bus.Close()

	switch mode {
	case display.ModeTUI:
		return serveWithMonitor(ctx, cfg, bus)
	case display.ModeNone:
		return runGateway(ctx, server.NewGateway(cfg, bus, gateway.NopNotifier{}))
	default:
		return runGateway(ctx, server.NewGateway(cfg, bus, display.NewLogNotifier()))
	}
}

func runGateway(ctx context.Context, g *server.Gateway) error {
	if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// serveWithMonitor runs the gateway behind the terminal monitor. Quitting
// the monitor stops the gateway.
func serveWithMonitor(ctx context.Context, cfg *config.Config, bus canbus.Bus) error {
	var g *server.Gateway
	monitor := display.NewMonitor(cfg.ListenAddr(), func() gateway.Stats {
		return g.Engine().Stats()
	})
	var hook gateway.Notifier = monitor
	if cfg.Display.LogFile != "" {
		// per-frame log lines are only readable when they go to a file
		hook = gateway.MultiNotifier{monitor, display.NewLogNotifier()}
	}
	g = server.NewGateway(cfg, bus, hook)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return runGateway(ctx, g)
	})
	eg.Go(func() error {
		defer cancel()
		return monitor.Run(ctx)
	})

	err := eg.Wait()
	if n := monitor.Dropped(); n > 0 {
		logging.Debug("Monitor dropped frame notifications", zap.Uint64("dropped", n))
	}
	return err
}
