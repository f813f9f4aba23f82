package hapcan

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/muurk/hapcangw/internal/canbus"
)

func testFrame(id uint32, data []byte) canbus.Frame {
	return canbus.NewFrame(id, data)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		frame canbus.Frame
		want  []byte
	}{
		{
			name:  "zero identifier, no data",
			frame: testFrame(0, nil),
			want:  []byte{0xAA, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x00, 0xA5},
		},
		{
			name: "button message from node 0x12 group 0x34",
			// frame type 0x302, response flag clear
			frame: testFrame(0x302<<17|0x1234, []byte{0xFF, 0xFF, 0x11, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}),
			want: []byte{
				0xAA,
				0x30, 0x20, 0x12, 0x34,
				0xFF, 0xFF, 0x11, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
				0xA0,
				0xA5,
			},
		},
		{
			name:  "response flag lands in bit 0 of byte 2",
			frame: testFrame(0x10000, []byte{0x01}),
			want:  []byte{0xAA, 0x00, 0x01, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0, 0, 0x02, 0xA5},
		},
		{
			name:  "short data is zero padded",
			frame: testFrame(0x1FFFFFFF, []byte{0xAB}),
			want:  []byte{0xAA, 0xFF, 0xF1, 0xFF, 0xFF, 0xAB, 0, 0, 0, 0, 0, 0, 0, 0x99, 0xA5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.frame)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestEncodeIgnoresStaleDataBeyondLength(t *testing.T) {
	f := canbus.Frame{ID: 1, Extended: true, Len: 2, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	got := Encode(f)
	if !bytes.Equal(got[DataOffset:DataOffset+8], []byte{1, 2, 0, 0, 0, 0, 0, 0}) {
		t.Errorf("data = % x, want padding past Len", got[DataOffset:DataOffset+8])
	}
}

func TestDecode(t *testing.T) {
	frame := []byte{0xAA, 0x30, 0x21, 0x12, 0x34, 1, 2, 3, 4, 5, 6, 7, 8, 0x00, 0xA5}
	got, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if want := uint32(0x302<<17 | 1<<16 | 0x1234); got.ID != want {
		t.Errorf("ID = 0x%08x, want 0x%08x", got.ID, want)
	}
	if !got.Extended {
		t.Error("decoded frame should be extended")
	}
	if got.Len != 8 {
		t.Errorf("Len = %d, want 8", got.Len)
	}
	if !bytes.Equal(got.Payload(), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("Payload = % x", got.Payload())
	}
}

func TestDecodeIgnoresUnusedFlagBits(t *testing.T) {
	// bits 1..3 of byte 2 have no place in the identifier
	a, _ := Decode([]byte{0xAA, 0x01, 0x20, 0x03, 0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xA5})
	b, _ := Decode([]byte{0xAA, 0x01, 0x2E, 0x03, 0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xA5})
	if a.ID != b.ID {
		t.Errorf("IDs differ: 0x%08x vs 0x%08x", a.ID, b.ID)
	}
}

func TestDecodeLength(t *testing.T) {
	for _, n := range []int{0, 5, 13, 14, 16} {
		if _, err := Decode(make([]byte, n)); !errors.Is(err, ErrFrameLength) {
			t.Errorf("Decode(len %d) error = %v, want ErrFrameLength", n, err)
		}
	}
}

func TestDecodeAcceptsBadChecksum(t *testing.T) {
	frame := Encode(testFrame(0x1234, []byte{1}))
	frame[13]++
	if _, err := Decode(frame); err != nil {
		t.Errorf("Decode() error = %v, want nil for lenient decode", err)
	}
}

func TestDecodeStrict(t *testing.T) {
	good := Encode(testFrame(0x0ABCDEF, []byte{9, 8, 7}))

	badSum := append([]byte(nil), good...)
	badSum[13] ^= 0xFF

	badStart := append([]byte(nil), good...)
	badStart[0] = 0x00

	badEnd := append([]byte(nil), good...)
	badEnd[14] = 0x00

	tests := []struct {
		name    string
		frame   []byte
		wantErr error
	}{
		{name: "valid", frame: good},
		{name: "checksum mismatch", frame: badSum, wantErr: ErrChecksum},
		{name: "bad start marker", frame: badStart, wantErr: ErrFrameMarker},
		{name: "bad end marker", frame: badEnd, wantErr: ErrFrameMarker},
		{name: "short", frame: good[:13], wantErr: ErrFrameLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStrict(tt.frame)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("DecodeStrict() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeStrict() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  byte
	}{
		{name: "too short", frame: []byte{0xAA, 0xA5}, want: 0},
		{name: "query", frame: []byte{0xAA, 0x10, 0x40, 0x50, 0xA5}, want: 0x50},
		{name: "wraps modulo 256", frame: []byte{0xAA, 0xFF, 0x02, 0x00, 0xA5}, want: 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.frame); got != tt.want {
				t.Errorf("Checksum() = 0x%02x, want 0x%02x", got, tt.want)
			}
		})
	}
}

func TestEncodeDecodeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(fuzzSeed(t)))

	for round := 0; round < 5000; round++ {
		id := rng.Uint32() & canbus.EFFMask
		data := make([]byte, rng.Intn(canbus.MaxDataLen+1))
		rng.Read(data)
		in := testFrame(id, data)

		frame := Encode(in)
		if len(frame) != FrameLen {
			t.Fatalf("Encode() length = %d", len(frame))
		}
		if !ValidChecksum(frame) {
			t.Fatalf("round %d: checksum of % x does not verify", round, frame)
		}

		out, err := Decode(frame)
		if err != nil {
			t.Fatalf("round %d: Decode() error = %v", round, err)
		}
		if out.ID != in.ID {
			t.Fatalf("round %d: ID = 0x%08x, want 0x%08x", round, out.ID, in.ID)
		}
		if out.Len != 8 {
			t.Fatalf("round %d: Len = %d, want 8", round, out.Len)
		}
		for i := 0; i < canbus.MaxDataLen; i++ {
			want := byte(0)
			if i < len(data) {
				want = data[i]
			}
			if out.Data[i] != want {
				t.Fatalf("round %d: data[%d] = 0x%02x, want 0x%02x", round, i, out.Data[i], want)
			}
		}
		if _, err := DecodeStrict(frame); err != nil {
			t.Fatalf("round %d: DecodeStrict() error = %v", round, err)
		}
	}
}

func TestHeader(t *testing.T) {
	id := uint32(0x302<<17 | 1<<16 | 0x12<<8 | 0x34)
	h := ParseHeader(id)
	if h.Type != 0x302 || !h.Response || h.Node != 0x12 || h.Group != 0x34 {
		t.Fatalf("ParseHeader() = %+v", h)
	}
	if h.ID() != id {
		t.Errorf("ID() = 0x%08x, want 0x%08x", h.ID(), id)
	}
	if got, want := h.String(), "302R N:18 G:52"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	if _, ok := FrameHeader([]byte{0xAA, 0xA5}); ok {
		t.Error("FrameHeader should reject short frames")
	}
	fh, ok := FrameHeader(Encode(testFrame(id, nil)))
	if !ok || fh != h {
		t.Errorf("FrameHeader() = %+v, %v", fh, ok)
	}
}
