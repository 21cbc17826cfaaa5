package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/halvard/lectern/internal"
	pkgconfig "github.com/halvard/lectern/pkg/config"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(configPath, "", cfg); err != nil {
		// A missing default config file is fine for local use.
		if cmd.IsSet("config") || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithOpenPath(cmd.String("open")),
		internal.WithMCPMode(cmd.Bool("mcp")),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "lectern",
		Usage:  "Documentation viewer backend with filesystem indexing, full-text search, and live reload",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("LECTERN_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "open",
				Aliases: []string{"o"},
				Usage:   "Project directory to open at startup",
				Sources: cli.EnvVars("LECTERN_OPEN"),
			},
			&cli.BoolFlag{
				Name:    "mcp",
				Usage:   "Serve the Model Context Protocol on stdio instead of HTTP",
				Sources: cli.EnvVars("LECTERN_MCP"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
