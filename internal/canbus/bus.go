package canbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/muurk/hapcangw/internal/logging"
)

// Supported driver names.
const (
	DriverSocketCAN = "socketcan"
	DriverSLCAN     = "slcan"
	DriverVirtual   = "virtual"
)

// Defaults used when a Config field is left zero.
const (
	DefaultBitrate      = 125000 // HAPCAN bus speed
	DefaultSerialBaud   = 115200
	DefaultTxTimeout    = 10 * time.Millisecond
	DefaultOpenAttempts = 5
	DefaultOpenDelay    = time.Second
)

var (
	// ErrClosed is returned by Transmit/Receive after Close.
	ErrClosed = errors.New("canbus: closed")

	// ErrUnknownDriver is returned by Open for an unrecognized driver name.
	ErrUnknownDriver = errors.New("canbus: unknown driver")

	// ErrConfig is returned by Open when the driver settings are incomplete.
	ErrConfig = errors.New("canbus: invalid configuration")

	// ErrUnsupported is returned when a driver is not available on this platform.
	ErrUnsupported = errors.New("canbus: driver not supported on this platform")
)

// Transmitter submits a frame to the bus. Implementations bound the wait by
// the context deadline.
type Transmitter interface {
	Transmit(ctx context.Context, f Frame) error
}

// Receiver delivers frames received from the bus. Receive blocks until a
// frame arrives, the context is done, or the bus is closed.
type Receiver interface {
	Receive(ctx context.Context) (Frame, error)
}

// Bus is an open CAN interface.
type Bus interface {
	Transmitter
	Receiver
	Close() error
	Name() string
}

// Config selects and parameterises a bus driver.
type Config struct {
	Driver       string
	Interface    string // socketcan network interface, e.g. "can0"
	SerialPort   string // slcan serial device, e.g. "/dev/ttyACM0"
	SerialBaud   int
	Bitrate      int // bits per second
	OpenAttempts uint
	OpenDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Bitrate == 0 {
		c.Bitrate = DefaultBitrate
	}
	if c.SerialBaud == 0 {
		c.SerialBaud = DefaultSerialBaud
	}
	if c.OpenAttempts == 0 {
		c.OpenAttempts = DefaultOpenAttempts
	}
	if c.OpenDelay == 0 {
		c.OpenDelay = DefaultOpenDelay
	}
	return c
}

// Open opens the configured driver, retrying transient failures (adapter
// not yet plugged in, interface still down) with a fixed delay.
func Open(ctx context.Context, cfg Config) (Bus, error) {
	cfg = cfg.withDefaults()

	var bus Bus
	err := retry.Do(func() error {
		b, err := openDriver(ctx, cfg)
		if err != nil {
			return err
		}
		bus = b
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(cfg.OpenAttempts),
		retry.Delay(cfg.OpenDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrUnknownDriver) && !errors.Is(err, ErrConfig) && !errors.Is(err, ErrUnsupported)
		}),
		retry.OnRetry(func(n uint, err error) {
			logging.Warn("Failed to open CAN bus, retrying",
				zap.String("driver", cfg.Driver),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s bus: %w", cfg.Driver, err)
	}

	logging.Info("CAN bus opened",
		zap.String("driver", cfg.Driver),
		zap.String("name", bus.Name()),
		zap.Int("bitrate", cfg.Bitrate),
	)
	return bus, nil
}

func openDriver(ctx context.Context, cfg Config) (Bus, error) {
	switch cfg.Driver {
	case DriverSocketCAN:
		if cfg.Interface == "" {
			return nil, fmt.Errorf("%w: socketcan requires an interface name", ErrConfig)
		}
		b, err := OpenSocketCAN(cfg.Interface)
		if err != nil {
			return nil, err
		}
		return b, nil
	case DriverSLCAN:
		if cfg.SerialPort == "" {
			return nil, fmt.Errorf("%w: slcan requires a serial port", ErrConfig)
		}
		b, err := OpenSLCAN(ctx, cfg.SerialPort, cfg.SerialBaud, cfg.Bitrate)
		if err != nil {
			return nil, err
		}
		return b, nil
	case DriverVirtual:
		return NewVirtualLoopback(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
