package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/bomberos/internal/catalog"
	"github.com/starford/bomberos/internal/convert"
	"github.com/starford/bomberos/internal/toolkit"
)

// Terminal highlight marks for matches in CLI output.
const (
	cliMarkOpen  = "["
	cliMarkClose = "]"
)

// RunSearch runs one catalogue search and prints the matches to w, as JSON when
// asJSON is set.
func RunSearch(ctx context.Context, w io.Writer, query string, asJSON bool, opts ...Option) error {
	app := newApplication(opts...)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	logger := newLogger(app.config.App.LogLevel, os.Stderr)
	c, err := newCore(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	out := c.svc.Search(ctx, query, toolkit.SourceCLI)
	if asJSON {
		return writeIndentedJSON(w, out)
	}

	switch {
	case out.Hidden:
		_, err = fmt.Fprintf(w, "query %q is too short (minimum %d characters)\n", query, catalog.MinQueryLength)
	case len(out.Results) == 0:
		_, err = fmt.Fprintf(w, "no matches for %q\n", query)
	default:
		for _, hit := range out.Results {
			_, err = fmt.Fprintf(w, "%-6s %s: %s (%s)\n",
				hit.Kind,
				catalog.HighlightWith(hit.Title, query, cliMarkOpen, cliMarkClose),
				catalog.HighlightWith(hit.Description, query, cliMarkOpen, cliMarkClose),
				hit.URL)
			if err != nil {
				break
			}
		}
	}
	return err
}

// RunConvert converts value between two units and prints the result to w.
// It does not touch the store.
func RunConvert(ctx context.Context, w io.Writer, value float64, from, to string, asJSON bool, opts ...Option) error {
	app := newApplication(opts...)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	svc := toolkit.NewService(catalog.NewSource(catalog.Default()), nil, nil,
		toolkit.WithLogger(newLogger(app.config.App.LogLevel, os.Stderr)))
	res, err := svc.Convert(ctx, value, from, to)
	if err != nil {
		return err
	}
	if asJSON {
		return writeIndentedJSON(w, res)
	}
	_, err = fmt.Fprintf(w, "%g %s = %g %s\n", res.Value, from, convert.Round(res.Result, 2), to)
	return err
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
