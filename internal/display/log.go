package display

import (
	"go.uber.org/zap"

	"github.com/muurk/hapcangw/internal/gateway"
	"github.com/muurk/hapcangw/internal/logging"
)

// LogNotifier writes every displayed frame to the log, one line per
// frame. It is the display used when no terminal is attached.
type LogNotifier struct{}

// NewLogNotifier returns a notifier backed by the package logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// FrameTransferred implements gateway.Notifier.
func (n *LogNotifier) FrameTransferred(dir gateway.Direction, frame []byte) {
	fields := []zap.Field{
		zap.String("direction", dir.String()),
		zap.String("hex", logging.ColonHex(frame)),
	}
	if m, ok := FormatFrame(dir, frame); ok {
		fields = append(fields, zap.String("header", m.Row1), zap.String("data", m.Row2))
	}
	logging.Info("HAPCAN frame", fields...)
}

// ClientsChanged implements gateway.ClientObserver.
func (n *LogNotifier) ClientsChanged(active int) {
	logging.Info("Client count changed", zap.Int("clients", active))
}
