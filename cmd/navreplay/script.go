package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Script is a named list of steps applied to one tab
type Script struct {
	Name string `yaml:"name"`
	// Base resolves relative step URLs
	Base  string `yaml:"base"`
	Steps []Step `yaml:"steps"`
}

// Step is one operation. Frame names a frame by its name attribute; empty
// means the main frame.
type Step struct {
	Op     string  `yaml:"op"`
	URL    string  `yaml:"url,omitempty"`
	Frame  string  `yaml:"frame,omitempty"`
	Name   string  `yaml:"name,omitempty"`
	N      int     `yaml:"n,omitempty"`
	Mode   string  `yaml:"mode,omitempty"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the tab after a step
type Expect struct {
	URL     string `yaml:"url,omitempty"`
	Title   string `yaml:"title,omitempty"`
	Entries *int   `yaml:"entries,omitempty"`
	Index   *int   `yaml:"index,omitempty"`
	Frames  *int   `yaml:"frames,omitempty"`
}

var ops = map[string]bool{
	"load":     true,
	"back":     true,
	"forward":  true,
	"go":       true,
	"reload":   true,
	"stop":     true,
	"push":     true,
	"replace":  true,
	"fragment": true,
	"iframe":   true,
	"remove":   true,
	"navigate": true,
	"expect":   true,
}

// LoadScript reads and validates a YAML script
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML script
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.UnmarshalWithOptions(data, &s, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every step names a known op with its required fields
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}
	if s.Base != "" {
		if u, err := url.Parse(s.Base); err != nil || !u.IsAbs() {
			return fmt.Errorf("base %q is not an absolute URL", s.Base)
		}
	}
	for i, st := range s.Steps {
		if !ops[st.Op] {
			return fmt.Errorf("step %d: unknown op %q", i+1, st.Op)
		}
		switch st.Op {
		case "load", "push", "replace", "navigate":
			if strings.TrimSpace(st.URL) == "" {
				return fmt.Errorf("step %d: %s needs a url", i+1, st.Op)
			}
		case "fragment":
			if st.Name == "" {
				return fmt.Errorf("step %d: fragment needs a name", i+1)
			}
		case "remove":
			if st.Frame == "" {
				return fmt.Errorf("step %d: remove needs a frame", i+1)
			}
		case "expect":
			if st.Expect == nil {
				return fmt.Errorf("step %d: expect needs an expect block", i+1)
			}
		}
	}
	return nil
}

// resolve makes raw absolute against the script base
func (s *Script) resolve(raw string) string {
	if s.Base == "" {
		return raw
	}
	base, err := url.Parse(s.Base)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}
