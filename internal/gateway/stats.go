package gateway

import "sync/atomic"

// Stats is a point-in-time copy of the engine counters.
type Stats struct {
	FramesFromBus      uint64 `json:"frames_from_bus"`
	FramesToBus        uint64 `json:"frames_to_bus"`
	TransmitFailures   uint64 `json:"transmit_failures"`
	QueriesAnswered    uint64 `json:"queries_answered"`
	UnknownCommands    uint64 `json:"unknown_commands"`
	UnrecognizedFrames uint64 `json:"unrecognized_frames"`
	Broadcasts         uint64 `json:"broadcasts"`
	Deliveries         uint64 `json:"deliveries"`
	WriteFailures      uint64 `json:"write_failures"`
	ClientsRefused     uint64 `json:"clients_refused"`
	ActiveClients      int    `json:"active_clients"`
	Capacity           int    `json:"capacity"`
}

type counters struct {
	framesFromBus      atomic.Uint64
	framesToBus        atomic.Uint64
	transmitFailures   atomic.Uint64
	queriesAnswered    atomic.Uint64
	unknownCommands    atomic.Uint64
	unrecognizedFrames atomic.Uint64
	broadcasts         atomic.Uint64
	deliveries         atomic.Uint64
	writeFailures      atomic.Uint64
	clientsRefused     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesFromBus:      c.framesFromBus.Load(),
		FramesToBus:        c.framesToBus.Load(),
		TransmitFailures:   c.transmitFailures.Load(),
		QueriesAnswered:    c.queriesAnswered.Load(),
		UnknownCommands:    c.unknownCommands.Load(),
		UnrecognizedFrames: c.unrecognizedFrames.Load(),
		Broadcasts:         c.broadcasts.Load(),
		Deliveries:         c.deliveries.Load(),
		WriteFailures:      c.writeFailures.Load(),
		ClientsRefused:     c.clientsRefused.Load(),
	}
}
