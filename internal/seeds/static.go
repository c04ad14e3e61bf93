// Package seeds supplies the bootstrap contact-point list the Load
// Balancing Policy falls back to before any host has been discovered via
// topology refresh.
package seeds

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Provider supplies the current seed list. It is re-consulted on every
// empty-registry Plan() call, so a Provider backed by a file or a
// Kubernetes watch can pick up operator changes without a restart.
type Provider interface {
	Seeds(ctx context.Context) ([]string, error)
}

// contactPointsFile is the on-disk shape of a static seed list.
type contactPointsFile struct {
	ContactPoints []contactPoint `yaml:"contact_points"`
}

type contactPoint struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

// StaticYAML reads a YAML file of host/port pairs on every call, so editing
// the file takes effect without restarting the process.
type StaticYAML struct {
	Path string
}

func (s StaticYAML) Seeds(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read contact points file %s: %w", s.Path, err)
	}

	var parsed contactPointsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse contact points file %s: %w", s.Path, err)
	}

	out := make([]string, 0, len(parsed.ContactPoints))
	for _, cp := range parsed.ContactPoints {
		if cp.IP == "" {
			continue
		}
		port := cp.Port
		if port == 0 {
			port = 9042
		}
		out = append(out, net.JoinHostPort(cp.IP, strconv.Itoa(port)))
	}
	return out, nil
}
