package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/hapcangw/internal/canbus"
	"github.com/muurk/hapcangw/internal/display"
	"github.com/muurk/hapcangw/internal/gateway"
	"github.com/muurk/hapcangw/internal/hapcan"
)

// CurrentVersion is the config file format version.
const CurrentVersion = 1

// Config is the gateway configuration file.
type Config struct {
	Version   int             `yaml:"version"`
	LogLevel  string          `yaml:"log_level,omitempty"` // debug, info, warn, error
	Listen    ListenConfig    `yaml:"listen"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Bus       BusConfig       `yaml:"bus"`
	MDNS      MDNSConfig      `yaml:"mdns"`
	Identity  IdentityConfig  `yaml:"identity"`
	Display   DisplayConfig   `yaml:"display"`
}

// ListenConfig is the TCP client listener.
type ListenConfig struct {
	Host         string        `yaml:"host"`          // empty binds all interfaces
	Port         int           `yaml:"port"`          // HAPCAN Ethernet port, 1001
	MaxClients   int           `yaml:"max_clients"`   // size of the connection table
	WriteTimeout time.Duration `yaml:"write_timeout"` // per-frame client write deadline
}

// WebSocketConfig is the optional WebSocket listener (also serves /status).
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // e.g. ":8080"
	Path    string `yaml:"path"` // e.g. "/ws"
}

// BusConfig selects the CAN driver.
type BusConfig struct {
	Driver       string        `yaml:"driver"`                // socketcan, slcan or virtual
	Interface    string        `yaml:"interface,omitempty"`   // socketcan interface, e.g. "can0"
	SerialPort   string        `yaml:"serial_port,omitempty"` // slcan device, e.g. "/dev/ttyACM0"
	SerialBaud   int           `yaml:"serial_baud,omitempty"`
	Bitrate      int           `yaml:"bitrate"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
	OpenAttempts uint          `yaml:"open_attempts"`
	OpenDelay    time.Duration `yaml:"open_delay"`
}

// MDNSConfig controls the service advertisement.
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

// IdentityConfig customises the system query replies.
type IdentityConfig struct {
	// Description is answered to the description query, at most 16
	// ASCII characters.
	Description string `yaml:"description,omitempty"`
}

// DisplayConfig selects the display hook.
type DisplayConfig struct {
	Mode    string `yaml:"mode"`               // log, tui or none
	LogFile string `yaml:"log_file,omitempty"` // log destination while the monitor owns the terminal
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:  CurrentVersion,
		LogLevel: "info",
		Listen: ListenConfig{
			Port:         hapcan.DefaultPort,
			MaxClients:   gateway.DefaultCapacity,
			WriteTimeout: 2 * time.Second,
		},
		WebSocket: WebSocketConfig{
			Enabled: false,
			Addr:    ":8080",
			Path:    "/ws",
		},
		Bus: BusConfig{
			Driver:       canbus.DriverSocketCAN,
			Interface:    "can0",
			SerialBaud:   canbus.DefaultSerialBaud,
			Bitrate:      canbus.DefaultBitrate,
			TxTimeout:    canbus.DefaultTxTimeout,
			OpenAttempts: canbus.DefaultOpenAttempts,
			OpenDelay:    canbus.DefaultOpenDelay,
		},
		MDNS: MDNSConfig{
			Enabled:  true,
			Instance: "hapcan-gw",
		},
		Display: DisplayConfig{
			Mode: string(display.ModeLog),
		},
	}
}

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}

	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range", c.Listen.Port)
	}
	if c.Listen.MaxClients < 1 {
		return fmt.Errorf("listen.max_clients must be at least 1, got %d", c.Listen.MaxClients)
	}
	if c.Listen.WriteTimeout <= 0 {
		// a client that stops reading would stall every broadcast
		return fmt.Errorf("listen.write_timeout must be positive, got %s", c.Listen.WriteTimeout)
	}

	if c.WebSocket.Enabled {
		if c.WebSocket.Addr == "" {
			return fmt.Errorf("websocket.addr is required when websocket is enabled")
		}
		if len(c.WebSocket.Path) == 0 || c.WebSocket.Path[0] != '/' {
			return fmt.Errorf("websocket.path must start with '/', got %q", c.WebSocket.Path)
		}
	}

	switch c.Bus.Driver {
	case canbus.DriverSocketCAN:
		if c.Bus.Interface == "" {
			return fmt.Errorf("bus.interface is required for the socketcan driver")
		}
	case canbus.DriverSLCAN:
		if c.Bus.SerialPort == "" {
			return fmt.Errorf("bus.serial_port is required for the slcan driver")
		}
	case canbus.DriverVirtual:
	default:
		return fmt.Errorf("bus.driver %q is not one of socketcan, slcan, virtual", c.Bus.Driver)
	}
	if c.Bus.Bitrate <= 0 {
		return fmt.Errorf("bus.bitrate must be positive")
	}
	if c.Bus.TxTimeout < 0 {
		return fmt.Errorf("bus.tx_timeout must not be negative")
	}

	if c.MDNS.Enabled && c.MDNS.Instance == "" {
		return fmt.Errorf("mdns.instance is required when mdns is enabled")
	}

	if len(c.Identity.Description) > hapcan.DescriptionLen {
		return fmt.Errorf("identity.description is longer than %d characters", hapcan.DescriptionLen)
	}

	if _, err := display.ParseMode(c.Display.Mode); err != nil {
		return fmt.Errorf("display.mode: %w", err)
	}

	return nil
}

// ListenAddr returns the TCP listen address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Listen.Host, strconv.Itoa(c.Listen.Port))
}

// CANConfig returns the driver settings for canbus.Open.
func (c *Config) CANConfig() canbus.Config {
	return canbus.Config{
		Driver:       c.Bus.Driver,
		Interface:    c.Bus.Interface,
		SerialPort:   c.Bus.SerialPort,
		SerialBaud:   c.Bus.SerialBaud,
		Bitrate:      c.Bus.Bitrate,
		OpenAttempts: c.Bus.OpenAttempts,
		OpenDelay:    c.Bus.OpenDelay,
	}
}

// GatewayIdentity returns the identity answered to system queries.
func (c *Config) GatewayIdentity() hapcan.Identity {
	id := hapcan.DefaultIdentity()
	if c.Identity.Description != "" {
		id = id.WithDescription(c.Identity.Description)
	}
	return id
}
