// Package catalog holds the fixed reference catalogue of tools and training
// modules and the substring search over it.
package catalog

import (
	"fmt"
	"slices"
)

// Kind classifies a catalogue entry.
type Kind string

// Catalogue entry kinds.
const (
	KindTool   Kind = "tool"
	KindModule Kind = "module"
)

// Record is one catalogue entry. Records are values; a Catalog never hands out
// pointers into its backing slice.
type Record struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	URL         string `yaml:"url" json:"url"`
	Kind        Kind   `yaml:"kind" json:"kind"`
}

// Catalog is an immutable, ordered snapshot of records.
type Catalog struct {
	records  []Record
	checksum string
}

// New builds a catalogue snapshot from records, preserving their order.
func New(records []Record) *Catalog {
	return &Catalog{records: slices.Clone(records)}
}

// Records returns a copy of the records in catalogue order.
func (c *Catalog) Records() []Record {
	return slices.Clone(c.records)
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Checksum returns the SHA-256 of the file the snapshot was loaded from, or ""
// for the built-in catalogue.
func (c *Catalog) Checksum() string {
	return c.checksum
}

// Search filters the snapshot. See the package-level Search.
func (c *Catalog) Search(query string) []Record {
	return Search(query, c.records)
}

// Counts returns the number of tools and modules.
func (c *Catalog) Counts() (tools, modules int) {
	for _, r := range c.records {
		switch r.Kind {
		case KindTool:
			tools++
		case KindModule:
			modules++
		}
	}
	return tools, modules
}

// Default returns the built-in catalogue.
func Default() *Catalog {
	return New([]Record{
		{Title: "Claves CGBVP", Description: "Códigos de comunicación", URL: "herramientas/claves/index.html", Kind: KindTool},
		{Title: "Timer RCP", Description: "Cronómetro para reanimación", URL: "herramientas/rcp-timer/index.html", Kind: KindTool},
		{Title: "Conversor de Unidades", Description: "Conversión de medidas", URL: "herramientas/conversor/index.html", Kind: KindTool},
		{Title: "Atención Prehospitalaria", Description: "Protocolos médicos de emergencia", URL: "modulos/atencion-prehospitalaria/index.html", Kind: KindModule},
		{Title: "Comportamiento del Fuego", Description: "Fundamentos de la ciencia del fuego", URL: "modulos/comportamiento-fuego/index.html", Kind: KindModule},
		{Title: "Equipos y Materiales", Description: "EPP y herramientas", URL: "modulos/equipos-materiales/index.html", Kind: KindModule},
		{Title: "Actividades de Soporte", Description: "Comunicaciones y logística", URL: "modulos/actividades-soporte/index.html", Kind: KindModule},
		{Title: "Combate contra Incendio", Description: "Técnicas de supresión", URL: "modulos/combate-incendio/index.html", Kind: KindModule},
	})
}

// String implements fmt.Stringer for log output.
func (r Record) String() string {
	return fmt.Sprintf("%s (%s)", r.Title, r.Kind)
}
