package display

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/hapcangw/internal/canbus"
	"github.com/muurk/hapcangw/internal/gateway"
	"github.com/muurk/hapcangw/internal/hapcan"
	"github.com/muurk/hapcangw/internal/logging"
)

func sampleFrame() []byte {
	// type 0x302, response flag set, node 0x12, group 0x34
	return hapcan.Encode(canbus.NewFrame(0x302<<17|1<<16|0x1234, []byte{0xFF, 0x01, 0x02}))
}

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		name     string
		dir      gateway.Direction
		frame    []byte
		wantOK   bool
		wantRow1 string
		wantRow2 string
	}{
		{
			name:     "frame to the bus",
			dir:      gateway.NetworkToBus,
			frame:    sampleFrame(),
			wantOK:   true,
			wantRow1: "->302 (1) N:12 G:34",
			wantRow2: "FF01020000000000",
		},
		{
			name:     "frame from the bus",
			dir:      gateway.BusToNetwork,
			frame:    hapcan.Encode(canbus.NewFrame(0x10A, nil)),
			wantOK:   true,
			wantRow1: "<-000 (0) N:01 G:0A",
			wantRow2: "0000000000000000",
		},
		{
			name:   "system reply is not shown",
			dir:    gateway.BusToNetwork,
			frame:  hapcan.SystemFrame(0x41, [8]byte{}),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatFrame(tt.dir, tt.frame)
			if ok != tt.wantOK {
				t.Fatalf("FormatFrame() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Row1 != tt.wantRow1 {
				t.Errorf("Row1 = %q, want %q", got.Row1, tt.wantRow1)
			}
			if got.Row2 != tt.wantRow2 {
				t.Errorf("Row2 = %q, want %q", got.Row2, tt.wantRow2)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	var h History
	if got := h.Recent(ShownMessage); len(got) != 0 {
		t.Fatalf("empty history returned %d messages", len(got))
	}

	for _, row := range []string{"a", "b", "c", "d"} {
		h.Add(Message{Row1: row})
	}
	if h.Len() != MaxMessages {
		t.Fatalf("Len() = %d, want %d", h.Len(), MaxMessages)
	}

	recent := h.Recent(ShownMessage)
	if len(recent) != 2 || recent[0].Row1 != "c" || recent[1].Row1 != "d" {
		t.Errorf("Recent(2) = %+v, want c then d", recent)
	}
	if all := h.Recent(10); len(all) != 3 || all[0].Row1 != "b" {
		t.Errorf("Recent(10) = %+v, want b, c, d", all)
	}

	// readable from a returned copy, as Model.History hands it out
	snapshot := func() History { return h }
	if snapshot().Len() != MaxMessages || len(snapshot().Recent(ShownMessage)) != ShownMessage {
		t.Errorf("history copy lost its messages")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeLog},
		{in: "log", want: ModeLog},
		{in: " TUI ", want: ModeTUI},
		{in: "none", want: ModeNone},
		{in: "oled", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := ModeTUI.Resolve(false); got != ModeLog {
		t.Errorf("Resolve without a terminal = %q, want log", got)
	}
	if got := ModeTUI.Resolve(true); got != ModeTUI {
		t.Errorf("Resolve with a terminal = %q, want tui", got)
	}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelUpdate(t *testing.T) {
	m := NewModel("192.168.1.20:1001", func() gateway.Stats {
		return gateway.Stats{FramesFromBus: 7}
	})

	row, _ := FormatFrame(gateway.BusToNetwork, sampleFrame())
	m = update(t, m, frameMsg{msg: row})
	m = update(t, m, clientsMsg(2))
	m = update(t, m, tickMsg{})

	view := m.View()
	for _, want := range []string{"C:2 IP:192.168.1.20:1001", "<-302 (1) N:12 G:34", "FF01020000000000", "bus->net 7"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if !m.Paused {
		t.Fatal("p should pause")
	}
	m = update(t, m, frameMsg{msg: row})
	if m.History().Len() != 1 {
		t.Errorf("paused monitor stored a frame")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if m.History().Len() != 0 {
		t.Errorf("c should clear the history")
	}
	if !strings.Contains(m.View(), "waiting for frames") {
		t.Errorf("empty monitor should show a placeholder")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestMonitorNeverBlocks(t *testing.T) {
	mon := NewMonitor("127.0.0.1:1001", nil)
	frame := sampleFrame()

	for i := 0; i < eventQueueSize+10; i++ {
		mon.FrameTransferred(gateway.BusToNetwork, frame)
	}
	if got := mon.Dropped(); got != 10 {
		t.Errorf("Dropped() = %d, want 10", got)
	}

	// frames that cannot be shown are not queued at all
	mon.FrameTransferred(gateway.NetworkToBus, []byte{0xAA, 0xA5})
	if got := mon.Dropped(); got != 10 {
		t.Errorf("Dropped() = %d after an unshowable frame, want 10", got)
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logging.GetLogger()
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(prev) })

	n := NewLogNotifier()
	n.FrameTransferred(gateway.NetworkToBus, sampleFrame())
	n.ClientsChanged(3)

	frames := logs.FilterMessage("HAPCAN frame").All()
	if len(frames) != 1 {
		t.Fatalf("got %d frame entries, want 1", len(frames))
	}
	fields := frames[0].ContextMap()
	if fields["direction"] != "net->bus" {
		t.Errorf("direction = %v", fields["direction"])
	}
	if fields["header"] != "->302 (1) N:12 G:34" {
		t.Errorf("header = %v", fields["header"])
	}
	if !strings.HasPrefix(fields["hex"].(string), "aa:30:21:12:34") {
		t.Errorf("hex = %v", fields["hex"])
	}

	clients := logs.FilterMessage("Client count changed").All()
	if len(clients) != 1 || clients[0].ContextMap()["clients"] != int64(3) {
		t.Errorf("client entries = %+v", clients)
	}
}
