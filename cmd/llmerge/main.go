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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/llmerge"
	"github.com/poiesic/llmerge/config"
	"github.com/urfave/cli/v2"
)

// openSession is replaced in tests.
var openSession = llmerge.NewSession

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "llmerge",
		Usage: "Fuzzy-join tabular datasets with a chat model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML job file",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Environment files to load before reading API keys",
				Value: cli.NewStringSlice(".env"),
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not report progress",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "merge",
				Usage:  "Match the rows of two datasets and write the merged table",
				Action: mergeCommand,
				Flags: append(chainFlags(),
					&cli.StringFlag{Name: "left", Usage: "Left dataset path"},
					&cli.StringFlag{Name: "right", Usage: "Right dataset path"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output path"},
					&cli.StringFlag{Name: "left-on", Usage: "Left key field, e.g. \"Non Nutrient Data/Name\""},
					&cli.StringFlag{Name: "right-on", Usage: "Right key field"},
					&cli.IntFlag{Name: "limit", Usage: "Read only the first N rows of each input"},
					&cli.IntFlag{Name: "chunk-size", Usage: "Left rows per model call"},
					&cli.IntFlag{Name: "concurrency", Usage: "Chunks matched in parallel"},
					&cli.StringFlag{Name: "unmatched", Usage: "Rows the model leaves out: drop, keep or error"},
					&cli.DurationFlag{Name: "call-timeout", Usage: "Timeout for a single model call"},
				),
			},
			{
				Name:   "index",
				Usage:  "Embed a PDF or dataset into a document collection",
				Action: indexCommand,
				Flags:  indexFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Recompute the vectors of a collection with the configured embedding model",
				Action: reembedCommand,
				Flags:  indexFlags(),
			},
			{
				Name:      "search",
				Usage:     "Query a document collection",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(indexFlags(),
					&cli.IntFlag{Name: "k", Usage: "Number of documents to return"},
					&cli.Float64Flag{Name: "score-threshold", Usage: "Minimum similarity from 0 to 1"},
				),
			},
		},
	}
}

func chainFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "OpenAI-compatible API base URL"},
		&cli.StringFlag{Name: "model", Usage: "Chat model name"},
		&cli.StringFlag{Name: "mode", Usage: "Structured output mode: tools or json"},
	}
}

func indexFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "Embedding API base URL"},
		&cli.StringFlag{Name: "embedding-model", Usage: "Embedding model name"},
		&cli.StringFlag{Name: "store", Usage: "Path to the BadgerDB index directory"},
		&cli.StringFlag{Name: "collection", Usage: "Collection name"},
		&cli.StringFlag{Name: "pdf", Usage: "PDF file to index"},
		&cli.IntFlag{Name: "chunk-size", Usage: "Characters per PDF chunk"},
	}
}

// loadJob reads the job file, or the defaults when none is given, and
// applies the command's flag overrides.
func loadJob(c *cli.Context) (*config.Job, error) {
	job := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if job, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	setString := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	setInt := func(flag string, dst *int) {
		if c.IsSet(flag) {
			*dst = c.Int(flag)
		}
	}

	switch c.Command.Name {
	case "merge":
		setString("host", &job.Chain.Host)
		setString("model", &job.Chain.Model)
		setString("mode", &job.Chain.Mode)
		setString("left", &job.Data.Left.Path)
		setString("right", &job.Data.Right.Path)
		setString("output", &job.Data.Output.Path)
		setString("left-on", &job.Merge.LeftOn)
		setString("right-on", &job.Merge.RightOn)
		setString("unmatched", &job.Merge.Unmatched)
		setInt("limit", &job.Data.Left.Limit)
		setInt("limit", &job.Data.Right.Limit)
		setInt("chunk-size", &job.Merge.ChunkSize)
		setInt("concurrency", &job.Merge.Concurrency)
		if c.IsSet("call-timeout") {
			job.Merge.CallTimeout = c.Duration("call-timeout").String()
		}
	case "index", "reembed", "search":
		setString("host", &job.Embedding.Host)
		setString("embedding-model", &job.Embedding.Model)
		setString("store", &job.Embedding.StorePath)
		setString("collection", &job.Embedding.Collection)
		if c.IsSet("pdf") {
			job.Embedding.Source.Type = config.SourcePDF
			job.Embedding.Source.Path = c.String("pdf")
		}
		setInt("chunk-size", &job.Embedding.Source.ChunkSize)
		setInt("k", &job.Embedding.K)
		if c.IsSet("score-threshold") {
			job.Embedding.ScoreThreshold = float32(c.Float64("score-threshold"))
		}
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

func newSession(c *cli.Context) (*llmerge.Session, error) {
	job, err := loadJob(c)
	if err != nil {
		return nil, err
	}
	var opts []llmerge.SessionOption
	if !c.Bool("quiet") {
		opts = append(opts, llmerge.WithProgress(c.App.ErrWriter))
	}
	return openSession(job, opts...)
}

func mergeCommand(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	merged, err := s.MergeFiles(c.Context)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	out := s.Job().Data.Output.Path
	if out == "" {
		out = "(not written)"
	}
	fmt.Fprintf(c.App.Writer, "Merged rows: %d\nOutput: %s\n", merged.Len(), out)
	return nil
}

func indexCommand(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	index, err := s.BuildIndex(c.Context)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	coll := index.Collection()
	state := "loaded"
	if index.Created() {
		state = "created"
	}
	fmt.Fprintf(c.App.Writer, "Collection %q %s: %d documents, model %s\n", coll.Name, state, coll.Count, coll.Model)
	return nil
}

func reembedCommand(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.Reembed(c.Context)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	emb := s.Job().Embedding
	fmt.Fprintf(c.App.Writer, "Reembedded %d documents of %q with %s\n", n, emb.Collection, emb.Model)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	docs, err := s.Search(c.Context, query, 0)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	printDocuments(c.App.Writer, docs)
	return nil
}

func setup(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}
	return config.LoadEnv(c.StringSlice("env-file")...)
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

	errWriter := c.App.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(errWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
