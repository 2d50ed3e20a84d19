// Package zeroconf advertises the panel HTTP API as an mDNS/DNS-SD service so
// controllers on the LAN can find it.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType = "_http._tcp"
	domain      = "local."
)

// Service manages mDNS service registration.
type Service struct {
	name string
	port int
	txt  []string
}

// New creates a Service advertising name on port with the given TXT
// key/value pairs.
func New(name string, port int, txt map[string]string) *Service {
	return &Service{name: name, port: port, txt: Records(txt)}
}

// Records renders TXT key/value pairs as sorted "key=value" strings.
func Records(kv map[string]string) []string {
	out := make([]string, 0, len(kv)+1)
	out = append(out, "model=amplipi-panel")
	for k, v := range kv {
		if k == "model" {
			continue
		}
		out = append(out, k+"="+v)
	}
	sort.Strings(out[1:])
	return out
}

// TXT returns the TXT records the service advertises.
func (s *Service) TXT() []string { return s.txt }

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	server, err := zeroconf.Register(
		s.name,
		serviceType,
		domain,
		s.port,
		s.txt,
		nil, // all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"port", s.port,
		"txt", s.txt,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
