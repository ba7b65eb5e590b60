package api

import (
	"encoding/json"

	"github.com/starford/bomberos/internal/catalog"
	"github.com/starford/bomberos/internal/convert"
	"github.com/starford/bomberos/internal/session"
	"github.com/starford/bomberos/internal/toolkit"
)

// CatalogResponse lists the active catalogue.
type CatalogResponse struct {
	Records []catalog.Record `json:"records" validate:"required"`
	Tools   int              `json:"tools" example:"3"`
	Modules int              `json:"modules" example:"5"`
}

// SearchResponse is the outcome of a catalogue search.
type SearchResponse = toolkit.SearchOutcome

// ConversionResponse is the outcome of a unit conversion.
type ConversionResponse struct {
	toolkit.Conversion
	Display float64 `json:"display" example:"6.89"`
}

// UnitCategory groups the units of one measurement category.
type UnitCategory struct {
	Category convert.Category `json:"category" example:"pressure" validate:"required"`
	Units    []convert.Unit   `json:"units" validate:"required"`
}

// UnitsResponse lists every supported unit.
type UnitsResponse struct {
	Categories []UnitCategory `json:"categories" validate:"required"`
}

// HistoryResponse lists recent searches, newest first.
type HistoryResponse struct {
	History []string `json:"history" example:"rcp,fuego" validate:"required"`
}

// ValueResponse is a stored value.
type ValueResponse struct {
	Key   string          `json:"key" example:"last_unit" validate:"required"`
	Value json.RawMessage `json:"value" swaggertype:"object" validate:"required"`
}

// SetValueRequest is the request body for storing a value.
type SetValueRequest struct {
	Value json.RawMessage `json:"value" swaggertype:"object" validate:"required"`
	// TTLSeconds of 0 stores the value without expiry.
	TTLSeconds int64 `json:"ttl_seconds,omitempty" example:"3600"`
}

// SessionInputRequest is the request body for a search-session keystroke.
type SessionInputRequest struct {
	Query    string `json:"query" example:"rcp"`
	IsMobile bool   `json:"is_mobile,omitempty"`
}

// CreateSessionRequest is the optional request body for starting a session.
type CreateSessionRequest struct {
	IsMobile bool `json:"is_mobile,omitempty"`
}

// SessionResponse identifies a new session.
type SessionResponse struct {
	ID    string        `json:"id" example:"4f7c2a8e-1f43-4b8e-9c55-7d0f5e0b2a61" validate:"required"`
	State session.State `json:"state"`
}
