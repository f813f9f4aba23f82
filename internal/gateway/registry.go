package gateway

import (
	"errors"
	"io"

	"github.com/muurk/hapcangw/internal/hapcan"
	"github.com/muurk/hapcangw/internal/syncutil"
)

// DefaultCapacity is the number of client slots when none is configured.
const DefaultCapacity = 8

// ErrRegistryFull is returned by Assign when every slot is owned.
var ErrRegistryFull = errors.New("gateway: all client slots in use")

// Transport is a client connection as seen by the gateway. Write must
// deliver the whole frame or fail.
type Transport interface {
	io.WriteCloser
	RemoteAddr() string
}

// Slot is one entry of the connection table. The parser belongs to the
// goroutine reading the slot's transport and must not be shared.
type Slot struct {
	id     int
	parser hapcan.Parser

	// guarded by Registry.mu
	transport Transport
	claimed   bool
	active    bool

	// serialises writes so broadcasts reach this slot in order
	writeMu syncutil.Mutex
}

// ID returns the slot index.
func (s *Slot) ID() int {
	return s.id
}

// Parser returns the slot's frame parser.
func (s *Slot) Parser() *hapcan.Parser {
	return &s.parser
}

// write sends frame on t while holding the slot's write lock.
func (s *Slot) write(t Transport, frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := t.Write(frame)
	return err
}

// target pairs a slot with the transport it had when it was selected, so a
// slot reused by a new client is never blamed for the old client's failure.
type target struct {
	slot      *Slot
	transport Transport
}

// Registry is the fixed-size connection table. Slots are allocated once
// and reused; iteration cost is bounded by the capacity.
type Registry struct {
	mu    syncutil.Mutex
	slots []*Slot
}

// NewRegistry allocates a table of capacity slots. A capacity below one
// falls back to DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	r := &Registry{slots: make([]*Slot, capacity)}
	for i := range r.slots {
		r.slots[i] = &Slot{id: i}
	}
	return r
}

// Capacity returns the number of slots.
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// Assign claims the first free slot for t and activates it with a fresh
// parser.
func (r *Registry) Assign(t Transport) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if s.claimed {
			continue
		}
		s.parser.Reset()
		s.transport = t
		s.claimed = true
		s.active = true
		return s, nil
	}
	return nil, ErrRegistryFull
}

// Deactivate stops delivery to s and closes its transport. The slot stays
// claimed until its reader calls Release.
func (r *Registry) Deactivate(s *Slot) {
	r.mu.Lock()
	t := r.deactivateLocked(s, nil)
	r.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
}

// deactivateTarget deactivates s only while it still carries t.
func (r *Registry) deactivateTarget(s *Slot, t Transport) bool {
	r.mu.Lock()
	closed := r.deactivateLocked(s, t)
	r.mu.Unlock()

	if closed == nil {
		return false
	}
	_ = closed.Close()
	return true
}

func (r *Registry) deactivateLocked(s *Slot, want Transport) Transport {
	if !s.active {
		return nil
	}
	if want != nil && s.transport != want {
		return nil
	}
	s.active = false
	return s.transport
}

// Release frees s after its client disconnected. Partial parse state is
// discarded.
func (r *Registry) Release(s *Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.active = false
	s.claimed = false
	s.transport = nil
	s.parser.Reset()
}

// Active returns the number of slots currently receiving broadcasts.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.slots {
		if s.active {
			n++
		}
	}
	return n
}

// Snapshot returns the active slots in slot order.
func (r *Registry) Snapshot() []*Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Slot
	for _, s := range r.slots {
		if s.active {
			out = append(out, s)
		}
	}
	return out
}

// RemoteAddr returns the address of the client holding s, or "" when the
// slot is free.
func (r *Registry) RemoteAddr(s *Slot) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.transport == nil {
		return ""
	}
	return s.transport.RemoteAddr()
}

func (r *Registry) targets() []target {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []target
	for _, s := range r.slots {
		if s.active {
			out = append(out, target{slot: s, transport: s.transport})
		}
	}
	return out
}
