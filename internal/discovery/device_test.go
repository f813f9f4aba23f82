package discovery

import "testing"

func TestGateway_String(t *testing.T) {
	gw := &Gateway{
		Instance: "garage",
		Hostname: "pi-garage.local.",
		IP:       "192.168.4.16",
		Port:     1001,
	}

	expected := "HAPCAN Gateway garage (pi-garage.local.) at 192.168.4.16:1001"
	if gw.String() != expected {
		t.Errorf("Gateway.String() = %v, want %v", gw.String(), expected)
	}
}

func TestGateway_Address(t *testing.T) {
	tests := []struct {
		name     string
		gw       *Gateway
		expected string
	}{
		{
			name:     "IPv4",
			gw:       &Gateway{IP: "192.168.4.16", Port: 1001},
			expected: "192.168.4.16:1001",
		},
		{
			name:     "IPv6 is bracketed",
			gw:       &Gateway{IP: "fe80::1", Port: 1001},
			expected: "[fe80::1]:1001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.gw.Address(); got != tt.expected {
				t.Errorf("Gateway.Address() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGateway_GetMetadata(t *testing.T) {
	var empty Gateway
	if got := empty.GetMetadata(TxtVersion); got != "" {
		t.Errorf("GetMetadata on nil map = %q", got)
	}

	gw := Gateway{Metadata: map[string]string{TxtBus: "slcan:/dev/ttyACM0"}}
	if got := gw.GetMetadata(TxtBus); got != "slcan:/dev/ttyACM0" {
		t.Errorf("GetMetadata(bus) = %q", got)
	}
}
