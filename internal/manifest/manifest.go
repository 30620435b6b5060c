// Package manifest loads the daemon's own service list: the YAML file
// declaring which background processes to supervise at startup.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codyde/sentryvibe-runner/internal/profile"
	"github.com/codyde/sentryvibe-runner/internal/supervisor"
)

// Service declares one supervised background process.
type Service struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`
	Port    int               `yaml:"port"`
	Profile string            `yaml:"profile"`

	// Autostart starts the service as soon as the daemon boots.
	// Defaults to true.
	Autostart *bool `yaml:"autostart"`
}

// Manifest is the parsed service list.
type Manifest struct {
	Services []Service `yaml:"services"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parsing: %w", err)
	}

	seen := make(map[string]bool, len(m.Services))
	for i, svc := range m.Services {
		if svc.ID == "" {
			return nil, fmt.Errorf("manifest: service %d: id is required", i)
		}
		if svc.Command == "" {
			return nil, fmt.Errorf("manifest: service %q: command is required", svc.ID)
		}
		if seen[svc.ID] {
			return nil, fmt.Errorf("manifest: duplicate service id %q", svc.ID)
		}
		seen[svc.ID] = true

		if svc.Port < 0 || svc.Port > 65535 {
			return nil, fmt.Errorf("manifest: service %q: port %d out of range", svc.ID, svc.Port)
		}
	}
	return &m, nil
}

// Descriptor converts a manifest service into a supervisor descriptor.
func (s Service) Descriptor() supervisor.Descriptor {
	return supervisor.Descriptor{
		ID:      s.ID,
		Name:    s.Name,
		Command: s.Command,
		Args:    s.Args,
		Dir:     s.Dir,
		Env:     s.Env,
		Port:    s.Port,
		Profile: profile.Name(s.Profile),
	}
}

// ShouldAutostart reports whether the service starts at daemon boot.
func (s Service) ShouldAutostart() bool {
	return s.Autostart == nil || *s.Autostart
}
