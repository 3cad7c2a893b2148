// Package component holds the records produced by an extraction session and
// their output encodings.
package component

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/archextract/internal/extract"
	"github.com/mvp-joe/archextract/internal/rules"
)

// Component is one matched declaration and its extracted fields.
type Component struct {
	ID         string                   `json:"id" yaml:"id"`
	Type       rules.ComponentType      `json:"type" yaml:"type"`
	CustomType string                   `json:"customType,omitempty" yaml:"customType,omitempty"`
	Module     string                   `json:"module" yaml:"module"`
	File       string                   `json:"file" yaml:"file"`
	Line       int                      `json:"line" yaml:"line"`
	Name       string                   `json:"name,omitempty" yaml:"name,omitempty"`
	Fields     map[string]extract.Value `json:"fields" yaml:"fields"`
}

// Kind returns the built-in type, or the custom type name for custom
// components.
func (c *Component) Kind() string {
	if c.Type == rules.TypeCustom {
		return c.CustomType
	}
	return string(c.Type)
}

// MakeID builds the stable identifier of a component.
func MakeID(module, kind, file string, line int, name string) string {
	id := module + ":" + kind + ":" + file + ":" + strconv.Itoa(line)
	if name != "" {
		id += ":" + name
	}
	return id
}

// AssignIDs sets the ID of every component, suffixing repeats with "#n" so
// IDs stay unique. components must already be sorted.
func AssignIDs(components []Component) {
	seen := make(map[string]int, len(components))
	for i := range components {
		c := &components[i]
		id := MakeID(c.Module, c.Kind(), c.File, c.Line, c.Name)
		seen[id]++
		if n := seen[id]; n > 1 {
			id += "#" + strconv.Itoa(n)
		}
		c.ID = id
	}
}

// Sort orders components by module, file, line, kind and name.
func Sort(components []Component) {
	sort.SliceStable(components, func(i, j int) bool {
		a, b := &components[i], &components[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind() != b.Kind() {
			return a.Kind() < b.Kind()
		}
		return a.Name < b.Name
	})
}

// Filter returns the components of module with the given kind. Empty
// arguments match everything.
func Filter(components []Component, module, kind string) []Component {
	out := []Component{}
	for _, c := range components {
		if module != "" && c.Module != module {
			continue
		}
		if kind != "" && c.Kind() != kind {
			continue
		}
		out = append(out, c)
	}
	return out
}

// yamlComponent mirrors Component with field values as plain Go values.
type yamlComponent struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	CustomType string         `yaml:"customType,omitempty"`
	Module     string         `yaml:"module"`
	File       string         `yaml:"file"`
	Line       int            `yaml:"line"`
	Name       string         `yaml:"name,omitempty"`
	Fields     map[string]any `yaml:"fields"`
}

// MarshalYAML renders field values as plain YAML scalars, lists and maps.
func (c Component) MarshalYAML() (interface{}, error) {
	fields := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = extract.Native(v)
	}
	return yamlComponent{
		ID:         c.ID,
		Type:       string(c.Type),
		CustomType: c.CustomType,
		Module:     c.Module,
		File:       c.File,
		Line:       c.Line,
		Name:       c.Name,
		Fields:     fields,
	}, nil
}

// Encode writes components to w as "json" or "yaml".
func Encode(w io.Writer, format string, components []Component) error {
	if components == nil {
		components = []Component{}
	}
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(components)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(components); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", format)
}
