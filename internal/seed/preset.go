package seed

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is a named set of projects, usually loaded from YAML:
//
//	name: demo
//	projects:
//	  - name: Acme
//	    slug: acme
//	    owner: member_demo
//	    active: true
//	    allowed_domains: [https://acme.com]
//	    testimonials: {approved: 6, featured: 2, pending: 3}
//	    tokens: 5
type Preset struct {
	Name     string          `yaml:"name"`
	Projects []ProjectPreset `yaml:"projects"`
}

// ProjectPreset describes one seeded project.
type ProjectPreset struct {
	Name           string            `yaml:"name"`
	Slug           string            `yaml:"slug"`
	Owner          string            `yaml:"owner"`
	Active         bool              `yaml:"active"`
	AllowedDomains []string          `yaml:"allowed_domains"`
	Testimonials   TestimonialCounts `yaml:"testimonials"`
	Tokens         int               `yaml:"tokens"`
}

// TestimonialCounts splits a project's testimonials by moderation state.
type TestimonialCounts struct {
	Approved int `yaml:"approved"`
	Featured int `yaml:"featured"`
	Pending  int `yaml:"pending"`
}

func (c TestimonialCounts) total() int {
	return c.Approved + c.Featured + c.Pending
}

// DemoPreset is applied when no preset file is given.
var DemoPreset = Preset{
	Name: "demo",
	Projects: []ProjectPreset{
		{
			Name:           "Acme Analytics",
			Slug:           "acme",
			Owner:          "member_demo",
			Active:         true,
			AllowedDomains: []string{"http://localhost:3000", "https://acme.example"},
			Testimonials:   TestimonialCounts{Approved: 6, Featured: 2, Pending: 3},
			Tokens:         5,
		},
		{
			Name:         "Globex Support",
			Slug:         "globex",
			Owner:        "member_demo",
			Testimonials: TestimonialCounts{Pending: 2},
			Tokens:       1,
		},
	},
}

// ParsePreset decodes and validates a YAML preset.
func ParsePreset(raw []byte) (Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Preset{}, fmt.Errorf("parse preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// LoadPreset reads a YAML preset file.
func LoadPreset(path string) (Preset, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}
	return ParsePreset(raw)
}

// Validate checks the fields the factories cannot default.
func (p Preset) Validate() error {
	if len(p.Projects) == 0 {
		return errors.New("preset has no projects")
	}
	seen := make(map[string]bool, len(p.Projects))
	for i, proj := range p.Projects {
		switch {
		case strings.TrimSpace(proj.Slug) == "":
			return fmt.Errorf("projects[%d]: slug is required", i)
		case strings.TrimSpace(proj.Owner) == "":
			return fmt.Errorf("projects[%d]: owner is required", i)
		case seen[proj.Slug]:
			return fmt.Errorf("projects[%d]: duplicate slug %q", i, proj.Slug)
		case proj.Tokens < 0 || proj.Testimonials.Approved < 0 || proj.Testimonials.Featured < 0 || proj.Testimonials.Pending < 0:
			return fmt.Errorf("projects[%d]: counts must not be negative", i)
		}
		seen[proj.Slug] = true
	}
	return nil
}
