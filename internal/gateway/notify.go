package gateway

// Direction tells which way a frame crossed the gateway.
type Direction int

const (
	// BusToNetwork is a CAN message fanned out to clients.
	BusToNetwork Direction = iota
	// NetworkToBus is a client frame headed for the CAN bus.
	NetworkToBus
)

func (d Direction) String() string {
	switch d {
	case BusToNetwork:
		return "bus->net"
	case NetworkToBus:
		return "net->bus"
	default:
		return "unknown"
	}
}

// Arrow returns the short marker used on the monitor: "->" towards the
// bus, "<-" from it.
func (d Direction) Arrow() string {
	if d == NetworkToBus {
		return "->"
	}
	return "<-"
}

// Notifier is the display hook. Implementations must return quickly; the
// frame passed in is a private copy.
type Notifier interface {
	FrameTransferred(dir Direction, frame []byte)
}

// ClientObserver is implemented by notifiers that also show the number of
// connected clients.
type ClientObserver interface {
	ClientsChanged(active int)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

// FrameTransferred implements Notifier.
func (NopNotifier) FrameTransferred(Direction, []byte) {}

// MultiNotifier fans notifications out to several hooks in order.
type MultiNotifier []Notifier

// FrameTransferred implements Notifier.
func (m MultiNotifier) FrameTransferred(dir Direction, frame []byte) {
	for _, n := range m {
		n.FrameTransferred(dir, append([]byte(nil), frame...))
	}
}

// ClientsChanged implements ClientObserver.
func (m MultiNotifier) ClientsChanged(active int) {
	for _, n := range m {
		if o, ok := n.(ClientObserver); ok {
			o.ClientsChanged(active)
		}
	}
}
