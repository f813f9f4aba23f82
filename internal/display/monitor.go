package display

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/hapcangw/internal/gateway"
)

const (
	eventQueueSize  = 128
	refreshInterval = time.Second
)

// Messages fed to the model
type frameMsg struct{ msg Message }
type clientsMsg int
type tickMsg time.Time

// keyMap defines key bindings for the monitor
type keyMap struct {
	Pause key.Binding
	Clear key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Pause, k.Clear, k.Quit}}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the Bubble Tea model of the monitor: a status bar with the
// client count and listen address above the newest frames.
type Model struct {
	Listen  string
	Clients int
	Paused  bool
	Width   int

	history History
	stats   gateway.Stats
	statsFn func() gateway.Stats

	keys keyMap
	help help.Model
}

// NewModel creates a monitor model. statsFn may be nil.
func NewModel(listen string, statsFn func() gateway.Stats) Model {
	return Model{
		Listen:  listen,
		Width:   MinTerminalWidth,
		statsFn: statsFn,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

// History returns the stored frames.
func (m Model) History() History {
	return m.history
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width)
		m.help.Width = m.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.Paused = !m.Paused
		case key.Matches(msg, m.keys.Clear):
			m.history = History{}
		}

	case frameMsg:
		if !m.Paused {
			m.history.Add(msg.msg)
		}

	case clientsMsg:
		m.Clients = int(msg)

	case tickMsg:
		if m.statsFn != nil {
			m.stats = m.statsFn()
		}
		return m, tick()
	}
	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	bar := fmt.Sprintf("C:%d IP:%s", m.Clients, m.Listen)
	if m.Paused {
		bar += "  [paused]"
	}
	b.WriteString(TopBarStyle.Width(m.Width).Render(bar))
	b.WriteString("\n")

	var rows []string
	for _, msg := range m.history.Recent(ShownMessage) {
		style := FromBusStyle
		if msg.Dir == gateway.NetworkToBus {
			style = ToBusStyle
		}
		rows = append(rows, style.Render(msg.Row1), DataRowStyle.Render(msg.Row2))
	}
	if len(rows) == 0 {
		rows = append(rows, MutedStyle.Render("waiting for frames..."))
	}
	b.WriteString(PanelStyle(m.Width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")

	b.WriteString(MutedStyle.Render(fmt.Sprintf(
		"bus->net %d  net->bus %d  queries %d  tx errors %d",
		m.stats.FramesFromBus, m.stats.FramesToBus, m.stats.QueriesAnswered, m.stats.TransmitFailures,
	)))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// Monitor is a gateway.Notifier that drives the terminal monitor.
// Notifications never block; they are dropped when the UI falls behind.
type Monitor struct {
	model   Model
	events  chan tea.Msg
	opts    []tea.ProgramOption
	dropped atomic.Uint64
}

// NewMonitor creates a monitor for a gateway listening on listen.
func NewMonitor(listen string, statsFn func() gateway.Stats, opts ...tea.ProgramOption) *Monitor {
	return &Monitor{
		model:  NewModel(listen, statsFn),
		events: make(chan tea.Msg, eventQueueSize),
		opts:   opts,
	}
}

// FrameTransferred implements gateway.Notifier.
func (m *Monitor) FrameTransferred(dir gateway.Direction, frame []byte) {
	msg, ok := FormatFrame(dir, frame)
	if !ok {
		return
	}
	m.post(frameMsg{msg: msg})
}

// ClientsChanged implements gateway.ClientObserver.
func (m *Monitor) ClientsChanged(active int) {
	m.post(clientsMsg(active))
}

// Dropped returns the number of notifications lost to a full queue.
func (m *Monitor) Dropped() uint64 {
	return m.dropped.Load()
}

func (m *Monitor) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		m.dropped.Add(1)
	}
}

// Run shows the monitor until the user quits or ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, m.opts...)
	p := tea.NewProgram(m.model, opts...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case msg := <-m.events:
				p.Send(msg)
			case <-done:
				return
			}
		}
	}()

	_, err := p.Run()
	close(done)

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
