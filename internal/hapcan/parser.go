package hapcan

// Parser states
const (
	stateWait = iota
	stateCollecting
)

// Parser recovers wire frames from a connection's byte stream one byte at a
// time. Each connection owns its own Parser; it is not safe for concurrent
// use.
type Parser struct {
	state  int
	buffer [ParserBufferSize]byte
	index  int
}

// NewParser returns a parser waiting for a start marker.
func NewParser() *Parser {
	return &Parser{}
}

// Reset discards any partial frame and waits for a start marker.
func (p *Parser) Reset() {
	p.state = stateWait
	p.index = 0
}

// Collecting reports whether a frame is partially buffered.
func (p *Parser) Collecting() bool {
	return p.state == stateCollecting
}

// ParseByte consumes one byte and reports whether it completed a frame.
// The frame is available from Frame until the next call.
//
// Outside a frame every byte but the start marker is dropped. Inside a
// frame bytes are buffered; the frame ends when the buffered length is 5,
// 13 or 15 and the byte just stored is the end marker. An end marker at
// any other offset is ordinary data. Running past 15 bytes discards the
// frame.
func (p *Parser) ParseByte(b byte) bool {
	switch p.state {
	case stateWait:
		if b == StartByte {
			p.buffer[0] = b
			p.index = 1
			p.state = stateCollecting
		}

	case stateCollecting:
		if p.index >= len(p.buffer) {
			p.Reset()
			return false
		}

		p.buffer[p.index] = b
		p.index++

		if IsValidLength(p.index) && b == EndByte {
			p.state = stateWait
			return true
		}
		if p.index > FrameLen {
			p.Reset()
		}
	}
	return false
}

// Frame returns the most recently completed frame. The slice aliases the
// parser's buffer and is only valid until the next ParseByte.
func (p *Parser) Frame() []byte {
	return p.buffer[:p.index]
}

// Feed runs data through the parser and calls fn with a copy of every
// completed frame, in order. It returns the number of frames found.
func (p *Parser) Feed(data []byte, fn func(frame []byte)) int {
	count := 0
	for _, b := range data {
		if !p.ParseByte(b) {
			continue
		}
		count++
		if fn != nil {
			frame := make([]byte, p.index)
			copy(frame, p.buffer[:p.index])
			fn(frame)
		}
	}
	return count
}
