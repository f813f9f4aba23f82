package canbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSLCAN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{
			name:  "extended with data",
			frame: NewFrame(0x0ABCDEF1, []byte{0x01, 0xff}),
			want:  "T0ABCDEF1201FF\r",
		},
		{
			name:  "extended full payload",
			frame: NewFrame(0x1F, []byte{1, 2, 3, 4, 5, 6, 7, 8}),
			want:  "T0000001F80102030405060708\r",
		},
		{
			name:  "standard empty",
			frame: Frame{ID: 0x7FF},
			want:  "t7FF0\r",
		},
		{
			name:  "standard with data keeps lower case command",
			frame: Frame{ID: 0x123, Len: 1, Data: [8]byte{0xAB}},
			want:  "t1231AB\r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(encodeSLCAN(tt.frame)))
		})
	}
}

func TestDecodeSLCAN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		want    Frame
		wantErr bool
	}{
		{
			name: "extended frame",
			line: "T0ABCDEF1201FF",
			want: NewFrame(0x0ABCDEF1, []byte{0x01, 0xff}),
		},
		{
			name: "lower case hex",
			line: "T0abcdef1101",
			want: NewFrame(0x0ABCDEF1, []byte{0x01}),
		},
		{
			name: "standard frame",
			line: "t1232AABB",
			want: Frame{ID: 0x123, Len: 2, Data: [8]byte{0xAA, 0xBB}},
		},
		{name: "empty", line: "", wantErr: true},
		{name: "unknown command", line: "F00", wantErr: true},
		{name: "truncated identifier", line: "T0ABC", wantErr: true},
		{name: "dlc too large", line: "T0ABCDEF19", wantErr: true},
		{name: "data length mismatch", line: "T0ABCDEF1201", wantErr: true},
		{name: "bad hex", line: "T0ABCDEF11ZZ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := decodeSLCAN([]byte(tt.line))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errSLCANLine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSLCANRoundTrip(t *testing.T) {
	t.Parallel()

	in := NewFrame(0x1FFFFFFF, []byte{0, 0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70})
	line := encodeSLCAN(in)
	got, err := decodeSLCAN(line[:len(line)-1])
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestSLCANStandardFrameRoundTrip(t *testing.T) {
	t.Parallel()

	in := Frame{ID: 0x123, Len: 2, Data: [8]byte{0xAB, 0x0C}}
	line := encodeSLCAN(in)
	require.Equal(t, byte('t'), line[0])

	got, err := decodeSLCAN(line[:len(line)-1])
	require.NoError(t, err)
	assert.False(t, got.Extended)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Payload(), got.Payload())
}
