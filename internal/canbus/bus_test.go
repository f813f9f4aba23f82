package canbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenVirtual(t *testing.T) {
	t.Parallel()

	bus, err := Open(context.Background(), Config{Driver: DriverVirtual})
	require.NoError(t, err)
	defer bus.Close()
	assert.Equal(t, "virtual", bus.Name())
}

func TestOpenRejectsBadConfigWithoutRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "unknown driver", cfg: Config{Driver: "pigeon"}, wantErr: ErrUnknownDriver},
		{name: "socketcan without interface", cfg: Config{Driver: DriverSocketCAN}, wantErr: ErrConfig},
		{name: "slcan without port", cfg: Config{Driver: DriverSLCAN}, wantErr: ErrConfig},
		{name: "slcan with unsupported bitrate", cfg: Config{Driver: DriverSLCAN, SerialPort: "/dev/null", Bitrate: 33333}, wantErr: ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// A large delay would make the test hang if Open retried.
			tt.cfg.OpenDelay = 1 << 40
			_, err := Open(context.Background(), tt.cfg)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr != ErrUnknownDriver {
				assert.NotErrorIs(t, err, ErrUnknownDriver)
				assert.NotContains(t, err.Error(), "unknown driver")
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	c := Config{}.withDefaults()
	assert.Equal(t, DefaultBitrate, c.Bitrate)
	assert.Equal(t, DefaultSerialBaud, c.SerialBaud)
	assert.Equal(t, uint(DefaultOpenAttempts), c.OpenAttempts)
	assert.Equal(t, DefaultOpenDelay, c.OpenDelay)
}
