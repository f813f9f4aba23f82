package canbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFrame(t *testing.T) {
	t.Parallel()

	f := NewFrame(0xFFFFFFFF, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	assert.Equal(t, uint32(EFFMask), f.ID, "identifier should be masked to 29 bits")
	assert.True(t, f.Extended)
	assert.Equal(t, uint8(8), f.Len)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, f.Payload())
}

func TestFrameString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{
			name:  "extended",
			frame: NewFrame(0x1234567, []byte{0xDE, 0xAD}),
			want:  "01234567#[2] DE AD",
		},
		{
			name:  "standard without data",
			frame: Frame{ID: 0x123},
			want:  "123#[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.frame.String())
		})
	}
}
