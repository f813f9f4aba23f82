package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func serviceEntry(instance, host string, port int, v4, v6 []net.IP, text ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	e.Text = text
	return e
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantInstance string
		wantIP       string
		wantPort     int
		wantVersion  string
	}{
		{
			name: "gateway with IPv4",
			entry: serviceEntry("garage", "pi-garage.local.", 1001,
				[]net.IP{net.ParseIP("192.168.4.16")}, nil,
				"version=1.2.0", "bus=socketcan:can0"),
			wantInstance: "garage",
			wantIP:       "192.168.4.16",
			wantPort:     1001,
			wantVersion:  "1.2.0",
		},
		{
			name: "custom port",
			entry: serviceEntry("attic", "attic.local.", 2001,
				[]net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantInstance: "attic",
			wantIP:       "10.0.0.5",
			wantPort:     2001,
		},
		{
			name: "no port defaults to 1001",
			entry: serviceEntry("gw", "gw.local.", 0,
				[]net.IP{net.ParseIP("172.16.0.1")}, nil),
			wantInstance: "gw",
			wantIP:       "172.16.0.1",
			wantPort:     DefaultPort,
		},
		{
			name:    "no address",
			entry:   serviceEntry("gw", "gw.local.", 1001, nil, nil),
			wantNil: true,
		},
		{
			name: "IPv6 only",
			entry: serviceEntry("gw6", "gw6.local.", 1001,
				nil, []net.IP{net.ParseIP("fe80::1")}),
			wantInstance: "gw6",
			wantIP:       "fe80::1",
			wantPort:     1001,
		},
		{
			name: "prefers IPv4",
			entry: serviceEntry("dual", "dual.local.", 1001,
				[]net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}),
			wantInstance: "dual",
			wantIP:       "192.168.1.50",
			wantPort:     1001,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("parseServiceEntry() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("parseServiceEntry() = nil")
			}
			if got.Instance != tt.wantInstance {
				t.Errorf("Instance = %q, want %q", got.Instance, tt.wantInstance)
			}
			if got.IP != tt.wantIP {
				t.Errorf("IP = %q, want %q", got.IP, tt.wantIP)
			}
			if got.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", got.Port, tt.wantPort)
			}
			if got.Version() != tt.wantVersion {
				t.Errorf("Version() = %q, want %q", got.Version(), tt.wantVersion)
			}
			if got.DiscoveredAt.IsZero() {
				t.Error("DiscoveredAt not set")
			}
		})
	}
}

func TestParseServiceEntryMetadata(t *testing.T) {
	e := serviceEntry("gw", "gw.local.", 1001, []net.IP{net.ParseIP("10.0.0.1")}, nil,
		"ws=:8080/ws", "flag", "eq=a=b")

	got := parseServiceEntry(e)
	if got == nil {
		t.Fatal("parseServiceEntry() = nil")
	}

	want := map[string]string{"ws": ":8080/ws", "flag": "", "eq": "a=b"}
	for k, v := range want {
		if got.GetMetadata(k) != v {
			t.Errorf("metadata[%q] = %q, want %q", k, got.GetMetadata(k), v)
		}
	}
}

func TestTXTRecords(t *testing.T) {
	got := TXTRecords(map[string]string{TxtWS: ":8080/ws", TxtVersion: "dev", TxtBus: "virtual"})
	want := []string{"bus=virtual", "version=dev", "ws=:8080/ws"}

	if len(got) != len(want) {
		t.Fatalf("TXTRecords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TXTRecords()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAdvertiseValidation(t *testing.T) {
	if _, err := Advertise("", 1001, nil); err == nil {
		t.Error("expected error for empty instance")
	}
	if _, err := Advertise("gw", 0, nil); err == nil {
		t.Error("expected error for port 0")
	}

	// nil advertisement shutdown is a no-op
	var a *Advertisement
	a.Shutdown()
}

func TestNewScanner(t *testing.T) {
	if s := NewScanner(); s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}
