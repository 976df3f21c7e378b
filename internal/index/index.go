// Package index runs the full pipeline over a codebase root: discovery,
// entity extraction, reference resolution and the file dependency graph.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/refscan/internal/discover"
	"github.com/phobologic/refscan/internal/extract"
	"github.com/phobologic/refscan/internal/graph"
	"github.com/phobologic/refscan/internal/lang"
	"github.com/phobologic/refscan/internal/model"
	"github.com/phobologic/refscan/internal/parse"
	"github.com/phobologic/refscan/internal/resolve"
)

// ErrNoFiles is returned when discovery leaves nothing to index.
var ErrNoFiles = errors.New("no parseable files found")

// DefaultMaxFileSize is the size above which files are skipped.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// Options configures a Run.
type Options struct {
	Discover discover.Options

	// Workers bounds the number of files processed concurrently.
	// Zero means GOMAXPROCS.
	Workers int

	// MaxFileSize skips larger files with a warning. Zero disables the limit.
	MaxFileSize int64

	// TreeCacheSize is the number of syntax trees kept between the
	// extraction and resolution passes. Zero disables reuse.
	TreeCacheSize int

	Logger *slog.Logger
}

// Run indexes the codebase at root. An unreadable source file aborts the
// whole run.
func Run(ctx context.Context, root string, opts Options) (*model.Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Discover.Logger == nil {
		opts.Discover.Logger = logger
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}
	repo := filepath.Base(root)

	files, err := discover.Files(root, opts.Discover)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	files = filterBySize(root, files, opts.MaxFileSize, logger)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w (all exceeded size limit)", ErrNoFiles)
	}

	p := &pipeline{
		root:    root,
		repo:    repo,
		files:   files,
		cache:   parse.NewCache(opts.TreeCacheSize),
		workers: opts.Workers,
		logger:  logger,
	}

	entities, err := p.extract(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("extracted entities", "files", len(files), "entities", len(entities))
	logger.Debug("syntax trees cached", "trees", p.cache.Len())

	if err := p.resolve(ctx, entities); err != nil {
		return nil, err
	}

	fileInfos := make([]model.FileInfo, len(files))
	for i, f := range files {
		fileInfos[i] = model.FileInfo{Path: f.Path, Language: f.Language}
	}
	deps := graph.BuildGraph(entities)
	graph.Rank(fileInfos, deps)

	return &model.Index{
		Repository:   repo,
		Root:         root,
		Files:        fileInfos,
		Entities:     entities,
		Dependencies: deps,
	}, nil
}

type pipeline struct {
	root    string
	repo    string
	files   []discover.FileEntry
	cache   *parse.Cache
	workers int
	logger  *slog.Logger
}

// worker holds per-goroutine parsers; a tree-sitter parser is not safe for
// concurrent use.
type worker struct {
	parsers map[string]*sitter.Parser
}

func (w *worker) parser(l *lang.Language) *sitter.Parser {
	p, ok := w.parsers[l.Name]
	if !ok {
		p = l.NewParser()
		w.parsers[l.Name] = p
	}
	return p
}

// forEachFile calls fn for every file index on a bounded set of workers.
// The first error cancels the remaining work and is returned.
func (p *pipeline) forEachFile(ctx context.Context, fn func(ctx context.Context, w *worker, i int) error) error {
	numWorkers := p.workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(p.files) {
		numWorkers = len(p.files)
	}

	g, ctx := errgroup.WithContext(ctx)
	work := make(chan int)

	g.Go(func() error {
		defer close(work)
		for i := range p.files {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range numWorkers {
		g.Go(func() error {
			w := &worker{parsers: make(map[string]*sitter.Parser)}
			for i := range work {
				if err := fn(ctx, w, i); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func (p *pipeline) load(ctx context.Context, w *worker, f discover.FileEntry) (*lang.Language, *parse.File, error) {
	l := lang.Languages[f.Language]
	if l == nil {
		return nil, nil, fmt.Errorf("%s: unknown language %q", f.Path, f.Language)
	}
	pf, err := p.cache.Load(ctx, w.parser(l), p.root, f.Path)
	if err != nil {
		return nil, nil, err
	}
	return l, pf, nil
}

// extract runs the Entity Extractor over every file. Entities are returned
// in file order.
func (p *pipeline) extract(ctx context.Context) ([]model.Entity, error) {
	perFile := make([][]model.Entity, len(p.files))

	err := p.forEachFile(ctx, func(ctx context.Context, w *worker, i int) error {
		f := p.files[i]
		l, pf, err := p.load(ctx, w, f)
		if err != nil {
			return err
		}
		perFile[i] = extract.Entities(l, pf.Root(), pf.Source, f.Path, p.repo, p.logger)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extracting entities: %w", err)
	}

	var entities []model.Entity
	for _, es := range perFile {
		entities = append(entities, es...)
	}
	return entities, nil
}

// resolve walks every file again and appends the references found. Files
// are walked in parallel against a read-only index; their hits are merged
// in file order afterwards so the result does not depend on scheduling.
func (p *pipeline) resolve(ctx context.Context, entities []model.Entity) error {
	ix := resolve.NewIndex(entities)

	for _, name := range lang.Names() {
		if _, ok := resolve.Dialects[name]; !ok {
			p.logger.Info("no reference resolver for language, skipping", "language", name)
		}
	}

	perFile := make([][]resolve.Hit, len(p.files))
	err := p.forEachFile(ctx, func(ctx context.Context, w *worker, i int) error {
		f := p.files[i]
		d, ok := resolve.Dialects[f.Language]
		if !ok {
			return nil
		}
		_, pf, err := p.load(ctx, w, f)
		if err != nil {
			return err
		}
		fc := resolve.FileContext{Path: f.Path, Repository: p.repo}
		scope := resolve.NewScope(ix, resolve.ImportContext(d, ix, fc, pf.Root(), pf.Source))
		perFile[i] = resolve.FindReferences(d, scope, f.Path, pf.Root(), pf.Source)
		return nil
	})
	if err != nil {
		return fmt.Errorf("resolving references: %w", err)
	}

	added := 0
	for _, hits := range perFile {
		added += ix.Apply(hits)
	}
	ix.Share()
	p.logger.Info("resolved references", "references", added)

	if p.logger.Enabled(ctx, slog.LevelDebug) {
		for i := range entities {
			e := &entities[i]
			p.logger.Debug("entity references", "entity", e.QualifiedName(), "count", len(e.References))
		}
	}
	return nil
}

func filterBySize(root string, files []discover.FileEntry, maxSize int64, logger *slog.Logger) []discover.FileEntry {
	if maxSize <= 0 {
		return files
	}
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, filepath.FromSlash(f.Path)))
		if err != nil {
			kept = append(kept, f) // keep if can't stat; reading reports it
			continue
		}
		if fi.Size() > maxSize {
			logger.Warn("file skipped", "path", f.Path, "size", fi.Size(), "limit", maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
