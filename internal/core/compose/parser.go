// Package compose parses the compose target that drives an environment's
// lifecycle operations. Pure functions over YAML content; callers own the
// file I/O.
package compose

import (
	"context"
	"errors"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrEmptyDefinition = errors.New("compose definition is empty")
	ErrInvalidYAML     = errors.New("invalid YAML syntax")
	ErrNoServices      = errors.New("compose definition declares no services")
)

// =============================================================================
// Definition
// =============================================================================

// Service is one declared service in the compose target.
type Service struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Definition is the parsed view of a compose target: just what the engine
// needs to reason about a deployment, decoupled from compose-go types.
type Definition struct {
	Services []Service `json:"services"`
}

// ServiceNames lists the declared service names in sorted order.
func (d *Definition) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	for _, svc := range d.Services {
		names = append(names, svc.Name)
	}
	return names
}

// =============================================================================
// Parsing
// =============================================================================

// Parse loads a compose definition from raw YAML content.
func Parse(content string) (*Definition, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDefinition
	}

	var dict map[string]any
	if err := yaml.Unmarshal([]byte(content), &dict); err != nil || dict == nil {
		return nil, ErrInvalidYAML
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{Content: []byte(content), Config: dict},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("stackman-target", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true // env interpolation happens at execution time
		opts.SkipNormalization = true
		opts.SkipExtends = true // in-memory content, no sibling files to extend from
	})
	if err != nil {
		return nil, ErrInvalidYAML
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	def := &Definition{Services: make([]Service, 0, len(project.Services))}
	for _, name := range project.ServiceNames() {
		svc := project.Services[name]
		def.Services = append(def.Services, Service{Name: name, Image: svc.Image})
	}
	return def, nil
}
