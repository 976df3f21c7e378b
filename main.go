// refscan resolves references between classes and functions across a
// codebase and writes the entities with their references.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/phobologic/refscan/internal/config"
	"github.com/phobologic/refscan/internal/index"
	"github.com/phobologic/refscan/internal/model"
	"github.com/phobologic/refscan/internal/ranking"
	"github.com/phobologic/refscan/internal/store"
	"github.com/phobologic/refscan/internal/toon"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type flags struct {
	configPath  string
	blacklist   []string
	langs       string
	format      string
	output      string
	database    string
	maxEntities int
	symbol      string
	file        string
	maxFileSize int64
	workers     int
	verbose     int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "refscan [path]",
		Short: "Resolve code references across a codebase",
		Long: `refscan extracts the classes and functions of a Python, Kotlin, Java or
JavaScript codebase and records, for each of them, every place that
inherits from, calls, annotates with, accesses, decorates with or assigns it.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return execute(cmd.Context(), cmd.Flags(), &f, root, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("refscan {{.Version}}\n")
	cmd.AddCommand(newInitCmd(stdout, stderr))

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "config file (default <path>/"+config.FileName+")")
	fl.StringArrayVarP(&f.blacklist, "blacklist", "b", nil, "path prefix or glob to exclude (repeatable)")
	fl.StringVarP(&f.langs, "langs", "l", "", "comma-separated languages to include")
	fl.StringVarP(&f.format, "format", "f", config.FormatJSON, "output format: json, jsonl or toon")
	fl.StringVarP(&f.output, "output", "o", "", "write output to file instead of stdout")
	fl.StringVar(&f.database, "db", "", "also store the results in this SQLite database")
	fl.IntVarP(&f.maxEntities, "max-entities", "n", 0, "keep only the N most referenced entities")
	fl.StringVar(&f.symbol, "symbol", "", "show only entities whose name contains this substring")
	fl.StringVar(&f.file, "file", "", "show only files whose path contains this substring")
	fl.Int64Var(&f.maxFileSize, "max-file-size", index.DefaultMaxFileSize, "skip files larger than this many bytes")
	fl.IntVar(&f.workers, "workers", 0, "files processed in parallel (default GOMAXPROCS)")
	fl.CountVarP(&f.verbose, "verbose", "v", "log more (-v info, -vv debug)")

	return cmd
}

func execute(ctx context.Context, fl *pflag.FlagSet, f *flags, root string, stdout, stderr io.Writer) error {
	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.Find(root)
	}
	if err != nil {
		return err
	}
	applyFlags(fl, f, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(stderr, f.verbose)
	opts := cfg.IndexOptions()
	opts.Logger = logger
	opts.Discover.Logger = logger

	idx, err := index.Run(ctx, root, opts)
	if err != nil {
		return err
	}

	if cfg.Database != "" {
		if err := save(ctx, cfg.Database, idx); err != nil {
			return err
		}
		logger.Info("stored results", "database", cfg.Database, "entities", len(idx.Entities))
	}

	if f.symbol != "" {
		idx = ranking.FilterBySymbol(idx, f.symbol)
	}
	if f.file != "" {
		idx = ranking.FilterByFile(idx, f.file)
	}
	idx = ranking.SelectEntities(idx, f.maxEntities)

	if cfg.Output != "" {
		return writeOutput(cfg.Output, cfg.Format, idx)
	}
	return write(stdout, cfg.Format, idx)
}

// applyFlags overlays flags given on the command line onto cfg.
// Blacklist entries add to the configured ones.
func applyFlags(fl *pflag.FlagSet, f *flags, cfg *config.Config) {
	if fl.Changed("blacklist") {
		cfg.Blacklist = append(cfg.Blacklist, f.blacklist...)
	}
	if fl.Changed("langs") {
		cfg.Languages = nil
		for _, name := range strings.Split(f.langs, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Languages = append(cfg.Languages, name)
			}
		}
	}
	if fl.Changed("format") {
		cfg.Format = f.format
	}
	if fl.Changed("output") {
		cfg.Output = f.output
	}
	if fl.Changed("db") {
		cfg.Database = f.database
	}
	if fl.Changed("max-file-size") {
		cfg.MaxFileSize = f.maxFileSize
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
}

func newLogger(w io.Writer, verbose int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func save(ctx context.Context, path string, idx *model.Index) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	if err := s.Save(ctx, idx); err != nil {
		_ = s.Close()
		return fmt.Errorf("storing results: %w", err)
	}
	return s.Close()
}

func writeOutput(path, format string, idx *model.Index) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := write(file, format, idx); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

func write(w io.Writer, format string, idx *model.Index) error {
	switch format {
	case config.FormatTOON:
		_, err := fmt.Fprintln(w, toon.Encode(idx))
		return err
	case config.FormatJSONL:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, e := range records(idx.Entities) {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("encoding %s: %w", e.QualifiedName(), err)
			}
		}
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(records(idx.Entities))
	}
}

// records returns entities with nil reference lists replaced by empty ones,
// so every record carries a references array.
func records(entities []model.Entity) []model.Entity {
	out := make([]model.Entity, len(entities))
	for i, e := range entities {
		if e.References == nil {
			e.References = []model.Reference{}
		}
		out[i] = e
	}
	return out
}
