package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceUDP    SourceKind = "udp"
	SourceSerial SourceKind = "serial"
)

// SourceConfig binds one NMEA input to the vessel id it reports for.
type SourceConfig struct {
	ID     string     `yaml:"id"`
	Kind   SourceKind `yaml:"kind"`
	Port   int        `yaml:"port"`
	Device string     `yaml:"device"`
	Baud   int        `yaml:"baud"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// DefaultSources mirrors the two-vessel UDP setup the engine runs without a file.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{ID: "Alpha", Kind: SourceUDP, Port: 10110},
		{ID: "Bravo", Kind: SourceUDP, Port: 10111},
	}
}

// LoadSources reads the YAML source list at path. An empty path yields DefaultSources.
func LoadSources(path string) ([]SourceConfig, error) {
	if path == "" {
		return DefaultSources(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f sourcesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("%s: no sources defined", path)
	}

	seen := make(map[string]bool, len(f.Sources))
	ports := make(map[int]bool, len(f.Sources))
	for i := range f.Sources {
		s := &f.Sources[i]
		if s.ID == "" {
			return nil, fmt.Errorf("sources[%d].id is required", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("sources[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true

		if s.Kind == "" {
			s.Kind = SourceUDP
		}
		switch s.Kind {
		case SourceUDP:
			if s.Port <= 0 || s.Port > 65535 {
				return nil, fmt.Errorf("sources[%d].port out of range: %d", i, s.Port)
			}
			if ports[s.Port] {
				return nil, fmt.Errorf("sources[%d]: port %d already in use", i, s.Port)
			}
			ports[s.Port] = true
		case SourceSerial:
			if s.Device == "" {
				return nil, fmt.Errorf("sources[%d].device is required for serial sources", i)
			}
			if s.Baud <= 0 {
				s.Baud = 4800
			}
		default:
			return nil, fmt.Errorf("sources[%d].kind %q is not supported", i, s.Kind)
		}
	}
	return f.Sources, nil
}
