// Package toolkit coordinates the catalogue, the key-value store and metrics
// behind every transport (HTTP, MCP, CLI and search sessions).
package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/bomberos/internal/apperr"
	"github.com/starford/bomberos/internal/catalog"
	"github.com/starford/bomberos/internal/convert"
	"github.com/starford/bomberos/internal/observability"
	"github.com/starford/bomberos/internal/store"
)

// Search sources, used as metric labels.
const (
	SourceHTTP    = "http"
	SourceMCP     = "mcp"
	SourceSession = "session"
	SourceCLI     = "cli"
)

// Hit is a search result ready for display: the record plus its title and
// description with the query highlighted.
type Hit struct {
	catalog.Record
	TitleHTML       string `json:"title_html"`
	DescriptionHTML string `json:"description_html"`
}

// SearchOutcome is the result of one search. Hidden is true when the query was
// too short to search, which callers render as "hide results" rather than as
// "no matches".
type SearchOutcome struct {
	Query   string `json:"query"`
	Hidden  bool   `json:"hidden"`
	Results []Hit  `json:"results"`
}

// Conversion is the result of a unit conversion.
type Conversion struct {
	Value    float64          `json:"value"`
	From     string           `json:"from"`
	To       string           `json:"to"`
	Result   float64          `json:"result"`
	Category convert.Category `json:"category"`
}

// Service is the transport-independent core of the toolkit.
type Service struct {
	catalog      *catalog.Source
	kv           store.KeyValue
	metrics      *observability.Metrics
	logger       *slog.Logger
	historyLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithHistoryLimit bounds the stored search history.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		s.historyLimit = n
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a toolkit service. kv may be nil, in which case history
// and key-value operations report apperr.ErrNotFound / are skipped.
func NewService(src *catalog.Source, kv store.KeyValue, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		catalog:      src,
		kv:           kv,
		metrics:      metrics,
		logger:       slog.Default(),
		historyLimit: store.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if metrics != nil {
		metrics.CatalogSize.Set(float64(src.Current().Len()))
	}
	return s
}

// Catalog returns the records of the active snapshot in catalogue order.
func (s *Service) Catalog(_ context.Context) []catalog.Record {
	return s.catalog.Current().Records()
}

// Search runs a catalogue search and highlights the matches. Executed searches
// are appended to the search history; a failure to record history is logged
// and does not fail the search.
func (s *Service) Search(ctx context.Context, query, source string) SearchOutcome {
	out := SearchOutcome{Query: query, Results: []Hit{}}
	if !catalog.Searchable(query) {
		out.Hidden = true
		s.observeSearch(source, observability.OutcomeHidden, -1)
		return out
	}

	for _, r := range s.catalog.Current().Search(query) {
		out.Results = append(out.Results, Hit{
			Record:          r,
			TitleHTML:       catalog.Highlight(r.Title, query),
			DescriptionHTML: catalog.Highlight(r.Description, query),
		})
	}

	outcome := observability.OutcomeHit
	if len(out.Results) == 0 {
		outcome = observability.OutcomeEmpty
	}
	s.observeSearch(source, outcome, len(out.Results))

	if s.kv != nil {
		if err := s.kv.AppendHistory(ctx, strings.TrimSpace(query), s.historyLimit); err != nil {
			s.logger.Warn("search history append failed", slog.String("error", err.Error()))
		}
	}
	return out
}

// Convert converts value between two units of the same category.
func (s *Service) Convert(_ context.Context, value float64, from, to string) (*Conversion, error) {
	res, err := convert.Convert(value, from, to)
	category := "unknown"
	if u, lookupErr := convert.Lookup(from); lookupErr == nil {
		category = string(u.Category)
	}
	if err != nil {
		s.observeConversion(category, "error")
		return nil, err
	}
	s.observeConversion(category, "ok")
	return &Conversion{
		Value:    value,
		From:     from,
		To:       to,
		Result:   res,
		Category: convert.Category(category),
	}, nil
}

// Units lists the supported units grouped by category.
func (s *Service) Units(_ context.Context) map[convert.Category][]convert.Unit {
	return convert.Units()
}

// History returns recent searches, newest first.
func (s *Service) History(ctx context.Context) ([]string, error) {
	if s.kv == nil {
		return []string{}, nil
	}
	return s.kv.History(ctx)
}

// GetValue reads a stored value.
func (s *Service) GetValue(ctx context.Context, key string) (json.RawMessage, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	if s.kv == nil {
		return nil, apperr.ErrNotFound
	}
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return v, nil
}

// SetValue stores a JSON value with an optional time to live.
func (s *Service) SetValue(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	if err := validKey(key); err != nil {
		return err
	}
	if key == store.HistoryKey {
		return fmt.Errorf("toolkit: key %q is reserved: %w", key, apperr.ErrInvalidInput)
	}
	if !json.Valid(value) {
		return fmt.Errorf("toolkit: value is not valid JSON: %w", apperr.ErrInvalidInput)
	}
	if ttl < 0 {
		return fmt.Errorf("toolkit: ttl must not be negative: %w", apperr.ErrInvalidInput)
	}
	if s.kv == nil {
		return fmt.Errorf("toolkit: no store configured")
	}
	return s.kv.Set(ctx, key, value, ttl)
}

// DeleteValue removes a stored value.
func (s *Service) DeleteValue(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if s.kv == nil {
		return nil
	}
	return s.kv.Delete(ctx, key)
}

// CatalogReloaded records a new snapshot in the metrics.
func (s *Service) CatalogReloaded(c *catalog.Catalog) {
	if s.metrics == nil {
		return
	}
	s.metrics.CatalogReload.Inc()
	s.metrics.CatalogSize.Set(float64(c.Len()))
}

func (s *Service) observeSearch(source, outcome string, results int) {
	if s.metrics == nil {
		return
	}
	s.metrics.Searches.WithLabelValues(source, outcome).Inc()
	if results >= 0 {
		s.metrics.SearchResults.Observe(float64(results))
	}
}

func (s *Service) observeConversion(category, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Conversions.WithLabelValues(category, outcome).Inc()
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > 256 {
		return fmt.Errorf("toolkit: key must be 1-256 characters: %w", apperr.ErrInvalidInput)
	}
	return nil
}
