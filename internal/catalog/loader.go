package catalog

import (
	"fmt"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/bomberos/internal/checksum"
)

// fileFormat is the on-disk YAML layout of a catalogue file.
type fileFormat struct {
	Records []Record `yaml:"records"`
}

// Validate validates a single record.
func (r Record) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.URL, validation.Required),
		validation.Field(&r.Kind, validation.Required, validation.In(KindTool, KindModule)),
	)
}

// Load reads a catalogue from a YAML file. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, sum, err := checksum.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	c.checksum = sum
	return c, nil
}

// Parse decodes and validates a YAML catalogue document.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(f.Records) == 0 {
		return nil, fmt.Errorf("no records")
	}
	for i, r := range f.Records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d (%q): %w", i, r.Title, err)
		}
	}
	return New(f.Records), nil
}

// Source publishes the current catalogue snapshot. Readers always see a
// complete snapshot; Replace swaps it wholesale.
type Source struct {
	current atomic.Pointer[Catalog]
}

// NewSource creates a Source serving c.
func NewSource(c *Catalog) *Source {
	s := &Source{}
	s.current.Store(c)
	return s
}

// Current returns the active snapshot.
func (s *Source) Current() *Catalog {
	return s.current.Load()
}

// Replace installs c as the active snapshot.
func (s *Source) Replace(c *Catalog) {
	s.current.Store(c)
}
