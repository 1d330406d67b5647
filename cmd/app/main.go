package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/fehu/internal"
	"github.com/starford/fehu/internal/chart"
	"github.com/starford/fehu/internal/chartfile"
	"github.com/starford/fehu/internal/render"
	pkgconfig "github.com/starford/fehu/pkg/config"
)

// loadConfig reads the config file over the defaults. The default path may
// be absent; an explicitly chosen one must exist.
func loadConfig(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	cfg := internal.NewDefaultConfig()
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{internal.WithConfig(cfg)}
	if vault := cmd.String("vault"); vault != "" {
		opts = append(opts, internal.WithVaultPath(vault))
	}
	return opts, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func seed(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path, err := internal.Seed(ctx, opts...)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println("demo chart already present")
		return nil
	}
	fmt.Printf("Vault has been seeded: %s\n", path)
	return nil
}

// renderFile computes a chart file and prints its year table. It needs no
// config, vault or index.
func renderFile(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("render: chart file argument is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	doc, err := chartfile.Parse(data)
	if err != nil {
		return fmt.Errorf("render: %s: %w", path, err)
	}

	opts := []chart.Option{chart.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))}
	if cmd.Bool("skip-invalid") {
		opts = append(opts, chart.SkipInvalidStreams())
	}
	d, err := chart.Build(doc.Chart(), opts...)
	if err != nil {
		return fmt.Errorf("render: %s: %w", path, err)
	}

	fmt.Printf("%s (%s - %s, savings %d)\n\n", doc.Name, doc.StartDate, doc.StopDate, doc.Savings)
	return render.Table(os.Stdout, d)
}

func main() {
	cmd := &cli.Command{
		Name:   "fehu",
		Usage:  "Financial planning charts: yearly income and expense streams bounded by dates, moments and durations",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Override vault.path from the config file",
				Sources: cli.EnvVars("FEHU_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with file watching, SSE and scheduled re-sync",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: serveMCP,
			},
			{
				Name:      "render",
				Usage:     "Compute a chart file and print the year table",
				ArgsUsage: "<chart.yaml>",
				Action:    renderFile,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "skip-invalid",
						Usage: "Drop streams whose boundary cannot be resolved",
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Write the demo chart into the vault",
				Action: seed,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
