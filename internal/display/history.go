package display

import (
	"fmt"
	"strings"

	"github.com/muurk/hapcangw/internal/gateway"
	"github.com/muurk/hapcangw/internal/hapcan"
)

// History sizes, matching the gateway's front panel: three frames kept,
// the newest two shown.
const (
	MaxMessages  = 3
	ShownMessage = 2
)

// Message is a frame rendered as two display rows.
type Message struct {
	Dir  gateway.Direction
	Row1 string // direction, frame type, response flag, node, group
	Row2 string // data bytes
}

// FormatFrame renders a 15-byte frame. Any other length is not shown.
func FormatFrame(dir gateway.Direction, frame []byte) (Message, bool) {
	h, ok := hapcan.FrameHeader(frame)
	if !ok {
		return Message{}, false
	}

	flag := "0"
	if h.Response {
		flag = "1"
	}

	var data strings.Builder
	for _, b := range frame[hapcan.DataOffset : hapcan.DataOffset+8] {
		fmt.Fprintf(&data, "%02X", b)
	}

	return Message{
		Dir:  dir,
		Row1: fmt.Sprintf("%s%03X (%s) N:%02X G:%02X", dir.Arrow(), h.Type, flag, h.Node, h.Group),
		Row2: data.String(),
	}, true
}

// History is a fixed ring of the most recent messages, oldest first.
type History struct {
	items []Message
}

// Add appends m, dropping the oldest message when full.
func (h *History) Add(m Message) {
	if len(h.items) == MaxMessages {
		copy(h.items, h.items[1:])
		h.items[MaxMessages-1] = m
		return
	}
	h.items = append(h.items, m)
}

// Len returns the number of stored messages.
func (h History) Len() int {
	return len(h.items)
}

// Recent returns up to n of the newest messages, oldest first.
func (h History) Recent(n int) []Message {
	if n > len(h.items) {
		n = len(h.items)
	}
	return append([]Message(nil), h.items[len(h.items)-n:]...)
}
