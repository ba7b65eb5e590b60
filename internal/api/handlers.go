package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bomberos/internal/catalog"
	"github.com/starford/bomberos/internal/convert"
	"github.com/starford/bomberos/internal/session"
	"github.com/starford/bomberos/internal/toolkit"
)

const (
	maxBodyBytes = 1 << 20
	// maxTTLSeconds is the largest TTL that fits in a time.Duration.
	maxTTLSeconds = math.MaxInt64 / int64(time.Second)
)

// Handler holds API route handlers.
type Handler struct {
	svc      *toolkit.Service
	sessions *session.Manager
}

// NewHandler creates a new Handler.
func NewHandler(svc *toolkit.Service, sessions *session.Manager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Catalog handles GET /api/catalog.
//
//	@Summary		List the catalogue in display order
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	CatalogResponse
//	@Security		BearerAuth
//	@Router			/catalog [get]
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	records := h.svc.Catalog(r.Context())
	resp := CatalogResponse{Records: records}
	for _, rec := range records {
		switch rec.Kind {
		case catalog.KindTool:
			resp.Tools++
		case catalog.KindModule:
			resp.Modules++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/search.
// Queries shorter than two characters are not an error; the response is
// marked hidden instead.
//
//	@Summary		Search the catalogue
//	@Tags			catalog
//	@Produce		json
//	@Param			q	query		string	false	"Search query"
//	@Success		200	{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, h.svc.Search(r.Context(), q, toolkit.SourceHTTP))
}

// History handles GET /api/history.
//
//	@Summary		Recent searches, newest first
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context())
	if err != nil {
		writeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: history})
}

// Convert handles GET /api/convert.
//
//	@Summary		Convert a value between units
//	@Tags			convert
//	@Produce		json
//	@Param			value	query		number	true	"Value to convert"
//	@Param			from	query		string	true	"Source unit"
//	@Param			to		query		string	true	"Target unit"
//	@Success		200		{object}	ConversionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [get]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'from' and 'to' are required"))
		return
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(q.Get("value")), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'value' must be a number"))
		return
	}

	c, err := h.svc.Convert(r.Context(), value, from, to)
	if err != nil {
		writeError(w, "convert", err)
		return
	}
	writeJSON(w, http.StatusOK, ConversionResponse{Conversion: *c, Display: convert.Round(c.Result, 2)})
}

// Units handles GET /api/units.
//
//	@Summary		List supported units by category
//	@Tags			convert
//	@Produce		json
//	@Success		200	{object}	UnitsResponse
//	@Security		BearerAuth
//	@Router			/units [get]
func (h *Handler) Units(w http.ResponseWriter, r *http.Request) {
	grouped := h.svc.Units(r.Context())
	resp := UnitsResponse{Categories: make([]UnitCategory, 0, len(grouped))}
	for _, c := range convert.Categories() {
		resp.Categories = append(resp.Categories, UnitCategory{Category: c, Units: grouped[c]})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetValue handles GET /api/kv/{key}.
//
//	@Summary		Read a stored value
//	@Tags			kv
//	@Produce		json
//	@Param			key	path		string	true	"Key"
//	@Success		200	{object}	ValueResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/kv/{key} [get]
func (h *Handler) GetValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	v, err := h.svc.GetValue(r.Context(), key)
	if err != nil {
		writeError(w, "get value", err)
		return
	}
	writeJSON(w, http.StatusOK, ValueResponse{Key: key, Value: v})
}

// SetValue handles PUT /api/kv/{key}.
//
//	@Summary		Store a value with an optional time to live
//	@Tags			kv
//	@Accept			json
//	@Param			key		path	string			true	"Key"
//	@Param			body	body	SetValueRequest	true	"Value"
//	@Success		204		"Stored"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/kv/{key} [put]
func (h *Handler) SetValue(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Value) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("value is required"))
		return
	}
	if req.TTLSeconds > maxTTLSeconds {
		writeJSON(w, http.StatusBadRequest, errorBody("ttl_seconds is too large"))
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := h.svc.SetValue(r.Context(), chi.URLParam(r, "key"), req.Value, ttl); err != nil {
		writeError(w, "set value", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteValue handles DELETE /api/kv/{key}.
//
//	@Summary		Delete a stored value
//	@Tags			kv
//	@Param			key	path	string	true	"Key"
//	@Success		204	"Deleted"
//	@Security		BearerAuth
//	@Router			/kv/{key} [delete]
func (h *Handler) DeleteValue(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteValue(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, "delete value", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Start a search session with a generated ID
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	false	"Session options"
//	@Success		201		{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	id, state, err := h.sessions.Create(req.IsMobile)
	if err != nil {
		writeError(w, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{ID: id, State: state})
}

// SessionInput handles POST /api/sessions/{id}/input. The search runs once
// input has been quiet for the debounce delay and its outcome is delivered on
// GET /api/events?session={id}.
//
//	@Summary		Record a keystroke in a search session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			body	body		SessionInputRequest	true	"Current query"
//	@Success		202		{object}	session.State
//	@Failure		400		{object}	errResponse
//	@Failure		429		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/input [post]
func (h *Handler) SessionInput(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SessionInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	state, err := h.sessions.Input(chi.URLParam(r, "id"), req.Query, req.IsMobile)
	if err != nil {
		writeError(w, "session input", err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

// SessionState handles GET /api/sessions/{id}.
//
//	@Summary		Current state of a search session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	session.State
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) SessionState(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.State(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "session state", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Close a search session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"Closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
