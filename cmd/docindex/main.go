// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/docindex"
	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/reembed"
	"github.com/poiesic/docindex/search"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docindex",
		Usage: "Extract, chunk, embed and index a directory of documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index every file in input_dir, writing artifacts to output_dir",
				ArgsUsage: "<input_dir> <output_dir> <config_file>",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Number of files processed concurrently (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "recursive",
						Usage: "Descend into subdirectories of input_dir (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Print a progress line to stderr",
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Exit with an error when any file fails",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Query a local (badger or pgvector) index",
				ArgsUsage: "<query...>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML or TOML config file",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of hits",
						Value:   5,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum cosine similarity",
						Value: float64(search.DefaultMinScore),
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed every record of a local badger index with the configured model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML or TOML config file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N files",
						Value: 10,
					},
				},
			},
		},
	}
}

func indexCommand(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("usage: docindex index <input_dir> <output_dir> <config_file>", 2)
	}
	inputDir, outputDir, configPath := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)

	cfg, err := config.Parse(configPath)
	if err != nil {
		return err
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("recursive") {
		cfg.Recursive = c.Bool("recursive")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", configPath, err)
	}

	ctx := c.Context
	ix, err := docindex.New(ctx, cfg, docindex.WithOutputDir(outputDir))
	if err != nil {
		return err
	}
	defer ix.Close()

	var opts []ingestion.Option
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}
	opts = append(opts, ingestion.WithResultHandler(func(r *core.FileResult) {
		if r.Failed() {
			slog.Warn("file failed", "file", r.Task.FileName(), "err", r.Err())
		}
	}))

	summary, err := ix.Run(ctx, inputDir, opts...)
	if err != nil {
		return err
	}

	printSummary(c.App.Writer, summary)
	if c.Bool("strict") && summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", summary.Failed, len(summary.Results)), 1)
	}
	return nil
}

func printSummary(w io.Writer, s *ingestion.Summary) {
	fmt.Fprintf(w, "Indexed %d files (%d failed), %d records in %s\n",
		s.Succeeded, s.Failed, s.Records, s.Duration.Round(time.Millisecond))
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return cli.Exit("usage: docindex search --config <file> <query...>", 2)
	}

	cfg, err := config.LoadQuery(c.String("config"))
	if err != nil {
		return err
	}

	ctx := c.Context
	ix, err := docindex.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	searcher, err := ix.NewSearcher(search.WithMinScore(float32(c.Float64("min-score"))))
	if err != nil {
		return err
	}
	results, err := searcher.FindSimilar(ctx, query, c.Int("limit"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(w, "%d: %s#%s [%0.3f] %s\n", i, hit.Record.SourceName(), hit.Record.ChunkID, hit.Score, preview(hit.Record.Chunk, 80))
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg, err := config.LoadQuery(c.String("config"))
	if err != nil {
		return err
	}

	ctx := c.Context
	ix, err := docindex.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	r, err := ix.NewReembedder(reembed.WithProgress(c.App.ErrWriter, c.Int("report-interval")))
	if err != nil {
		return err
	}
	stats, err := r.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Reembedded %d records in %d files (%d failed) in %s\n",
		stats.Records, stats.Files, stats.Failed, stats.Duration.Round(time.Millisecond))
	return nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
