package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/bomberos/internal"
	pkgconfig "github.com/starford/bomberos/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOrDefault(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func search(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("usage: %s search <query>", cmd.Root().Name)
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	query := strings.Join(cmd.Args().Slice(), " ")
	return internal.RunSearch(ctx, os.Stdout, query, cmd.Bool("json"), opts...)
}

func convert(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: %s convert --from <unit> --to <unit> <value>", cmd.Root().Name)
	}
	value, err := strconv.ParseFloat(cmd.Args().First(), 64)
	if err != nil {
		return fmt.Errorf("value %q is not a number", cmd.Args().First())
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunConvert(ctx, os.Stdout, value, cmd.String("from"), cmd.String("to"), cmd.Bool("json"), opts...)
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print JSON instead of text",
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "bomberos",
		Usage:   "Firefighter reference toolkit: catalogue search, unit conversion and live search sessions",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "search",
				Usage:     "Search the catalogue once",
				ArgsUsage: "<query>",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    search,
			},
			{
				Name:      "convert",
				Usage:     "Convert a value between units",
				ArgsUsage: "<value>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Source unit, e.g. psi", Required: true},
					&cli.StringFlag{Name: "to", Usage: "Target unit, e.g. bar", Required: true},
					jsonFlag(),
				},
				Action: convert,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
