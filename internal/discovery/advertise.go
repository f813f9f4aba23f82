package discovery

import (
	"fmt"
	"sort"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/hapcangw/internal/logging"
)

// Advertisement is a running mDNS registration. Call Shutdown to withdraw it.
type Advertisement struct {
	server   *zeroconf.Server
	instance string
}

// Advertise registers the gateway as instance on port. meta becomes the TXT
// record.
func Advertise(instance string, port int, meta map[string]string) (*Advertisement, error) {
	if instance == "" {
		return nil, fmt.Errorf("mDNS instance name is empty")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, TXTRecords(meta), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising gateway via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server, instance: instance}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Debug("mDNS advertisement withdrawn", zap.String("instance", a.instance))
}

// TXTRecords renders meta as sorted "key=value" strings.
func TXTRecords(meta map[string]string) []string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+meta[k])
	}
	return out
}
