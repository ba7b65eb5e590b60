// Package convert implements the field unit conversions of the toolkit:
// pressure, flow, length, weight and temperature.
package convert

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/starford/bomberos/internal/apperr"
)

// Category groups units that can be converted into each other.
type Category string

// Conversion categories.
const (
	Pressure    Category = "pressure"
	Flow        Category = "flow"
	Length      Category = "length"
	Weight      Category = "weight"
	Temperature Category = "temperature"
)

// Unit describes one measurement unit. Linear units convert through the
// category's base unit: base = value * Factor. Temperatures use the
// toBase/fromBase pair with Celsius as the base.
type Unit struct {
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Factor   float64  `json:"-"`

	toBase   func(float64) float64
	fromBase func(float64) float64
}

var units = []Unit{
	// Pressure, base kPa.
	{Symbol: "psi", Name: "PSI", Category: Pressure, Factor: 6.89476},
	{Symbol: "bar", Name: "Bar", Category: Pressure, Factor: 100},
	{Symbol: "kpa", Name: "kPa", Category: Pressure, Factor: 1},
	{Symbol: "mmhg", Name: "mmHg", Category: Pressure, Factor: 0.133322},

	// Flow, base L/min.
	{Symbol: "lpm", Name: "LPM", Category: Flow, Factor: 1},
	{Symbol: "gpm", Name: "GPM", Category: Flow, Factor: 3.78541},
	{Symbol: "lps", Name: "L/s", Category: Flow, Factor: 60},

	// Length, base metre.
	{Symbol: "m", Name: "m", Category: Length, Factor: 1},
	{Symbol: "ft", Name: "ft", Category: Length, Factor: 0.3048},
	{Symbol: "in", Name: "in", Category: Length, Factor: 0.0254},
	{Symbol: "cm", Name: "cm", Category: Length, Factor: 0.01},

	// Weight, base kilogram.
	{Symbol: "kg", Name: "kg", Category: Weight, Factor: 1},
	{Symbol: "lb", Name: "lb", Category: Weight, Factor: 0.453592},
	{Symbol: "g", Name: "g", Category: Weight, Factor: 0.001},
	{Symbol: "oz", Name: "oz", Category: Weight, Factor: 0.0283495},

	// Temperature, base Celsius.
	{Symbol: "c", Name: "°C", Category: Temperature,
		toBase: func(v float64) float64 { return v }, fromBase: func(v float64) float64 { return v }},
	{Symbol: "f", Name: "°F", Category: Temperature,
		toBase: func(v float64) float64 { return (v - 32) * 5 / 9 }, fromBase: func(v float64) float64 { return v*9/5 + 32 }},
	{Symbol: "k", Name: "K", Category: Temperature,
		toBase: func(v float64) float64 { return v - 273.15 }, fromBase: func(v float64) float64 { return v + 273.15 }},
}

var aliases = map[string]string{
	"l/min": "lpm", "lpm": "lpm", "l/s": "lps", "lps": "lps",
	"°c": "c", "ºc": "c", "celsius": "c",
	"°f": "f", "ºf": "f", "fahrenheit": "f",
	"kelvin": "k",
	"mm hg": "mmhg", "mmhg": "mmhg",
	"meter": "m", "metre": "m", "metro": "m", "metros": "m",
	"feet": "ft", "foot": "ft", "pies": "ft",
	"inch": "in", "inches": "in", "pulgadas": "in",
	"lbs": "lb", "pound": "lb", "libras": "lb",
}

var bySymbol = func() map[string]Unit {
	m := make(map[string]Unit, len(units))
	for _, u := range units {
		m[u.Symbol] = u
	}
	return m
}()

// Lookup resolves a unit name case-insensitively, accepting common aliases.
func Lookup(name string) (Unit, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[key]; ok {
		key = a
	}
	u, ok := bySymbol[key]
	if !ok {
		return Unit{}, fmt.Errorf("convert: unknown unit %q: %w", name, apperr.ErrInvalidInput)
	}
	return u, nil
}

// Convert converts value from one unit to another of the same category.
func Convert(value float64, from, to string) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("convert: value must be finite: %w", apperr.ErrInvalidInput)
	}
	src, err := Lookup(from)
	if err != nil {
		return 0, err
	}
	dst, err := Lookup(to)
	if err != nil {
		return 0, err
	}
	if src.Category != dst.Category {
		return 0, fmt.Errorf("convert: cannot convert %s (%s) to %s (%s): %w",
			src.Name, src.Category, dst.Name, dst.Category, apperr.ErrInvalidInput)
	}
	if src.Symbol == dst.Symbol {
		return value, nil
	}
	var result float64
	if src.Category == Temperature {
		result = dst.fromBase(src.toBase(value))
	} else {
		result = value * src.Factor / dst.Factor
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, fmt.Errorf("convert: %g %s is out of range in %s: %w",
			value, src.Name, dst.Name, apperr.ErrInvalidInput)
	}
	return result, nil
}

// Units returns every unit grouped by category, units in declaration order.
func Units() map[Category][]Unit {
	out := make(map[Category][]Unit)
	for _, u := range units {
		out[u.Category] = append(out[u.Category], u)
	}
	return out
}

// Categories returns the category names in sorted order.
func Categories() []Category {
	seen := make(map[Category]struct{})
	var out []Category
	for _, u := range units {
		if _, ok := seen[u.Category]; !ok {
			seen[u.Category] = struct{}{}
			out = append(out, u.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Round rounds v to the given number of decimals for display. Values too
// large to scale are returned unchanged.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	scaled := v * p
	if math.IsInf(scaled, 0) {
		return v
	}
	return math.Round(scaled) / p
}
