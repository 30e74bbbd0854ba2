// Package jar reads the game archive into a catalog: loot tables become
// sources and yields, item tags and recipes are scanned for the
// reachability checks, and obtainment data supplies the progression areas.
package jar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"runtime"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// Options selects what the loader turns into sources.
type Options struct {
	// RandomizeLoot lists loot table subfolders whose tables are randomized,
	// e.g. "blocks" or "entities".
	RandomizeLoot []string
	// Obtainment defaults to the embedded vanilla data.
	Obtainment *Obtainment
	// StartSource overrides Obtainment.Start when set.
	StartSource string
}

// Table is the original file of a loot table.
type Table struct {
	Path string
	Data []byte
}

// Game is a loaded archive.
type Game struct {
	Catalog *catalog.Catalog
	Layout  Layout
	tables  map[string]Table
}

// Table returns the original file shipped for a source or yield ID.
func (g *Game) Table(id string) (Table, bool) {
	t, ok := g.tables[id]
	return t, ok
}

type Loader struct {
	opts Options
	log  *slog.Logger
}

func NewLoader(opts Options, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loader{opts: opts, log: log}
}

// LoadFile opens the archive at file and loads it.
func (l *Loader) LoadFile(ctx context.Context, file string) (*Game, error) {
	rc, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", file, err)
	}
	defer rc.Close()
	l.log.Info("reading archive", "path", file, "files", len(rc.File))
	return l.load(ctx, &rc.Reader)
}

// Load reads an archive of the given size from r.
func (l *Loader) Load(ctx context.Context, r io.ReaderAt, size int64) (*Game, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return l.load(ctx, zr)
}

type entry struct {
	id   string
	file *zip.File
}

func (l *Loader) load(ctx context.Context, zr *zip.Reader) (*Game, error) {
	obt := l.opts.Obtainment
	if obt == nil {
		var err error
		if obt, err = DefaultObtainment(); err != nil {
			return nil, err
		}
	}

	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	layout := detectLayout(names)

	var lootFiles, recipeFiles, tagFiles []entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if id, ok := relative(f.Name, layout.LootTables); ok {
			lootFiles = append(lootFiles, entry{id, f})
		} else if id, ok := relative(f.Name, layout.Recipes); ok {
			recipeFiles = append(recipeFiles, entry{id, f})
		} else if id, ok := relative(f.Name, layout.ItemTags); ok {
			tagFiles = append(tagFiles, entry{id, f})
		}
	}
	for _, files := range [][]entry{lootFiles, recipeFiles, tagFiles} {
		sort.Slice(files, func(i, j int) bool { return files[i].id < files[j].id })
	}
	if len(lootFiles) == 0 {
		return nil, fmt.Errorf("archive has no loot tables under %s%s", dataRoot, layout.LootTables)
	}

	// Tags first: loot table tag entries are expanded while parsing.
	tagMembers := make([][]string, len(tagFiles))
	if err := forEachFile(ctx, tagFiles, func(i int, data []byte) error {
		m, err := parseTag(tagFiles[i].id, data)
		tagMembers[i] = m
		return err
	}); err != nil {
		return nil, err
	}
	tags := make(tagIndex, len(tagFiles))
	for i, e := range tagFiles {
		tags[e.id] = tagMembers[i]
	}

	tables := make([]*lootTable, len(lootFiles))
	recipes := make([]*catalog.Recipe, len(recipeFiles))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return forEachFile(gctx, lootFiles, func(i int, data []byte) error {
			t, err := parseLootTable(lootFiles[i].id, lootFiles[i].file.Name, data, tags)
			tables[i] = t
			return err
		})
	})
	g.Go(func() error {
		return forEachFile(gctx, recipeFiles, func(i int, data []byte) error {
			r, ok, err := parseRecipe(recipeFiles[i].id, data, tags)
			if ok {
				recipes[i] = &r
			}
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	game, err := l.assemble(obt, layout, tables, recipes, tagFiles, tags)
	if err != nil {
		return nil, err
	}
	l.log.Info("archive loaded",
		"legacy_layout", layout.Legacy(),
		"sources", len(game.Catalog.Sources()),
		"recipes", len(recipeFiles),
		"tags", len(tagFiles),
	)
	return game, nil
}

func (l *Loader) assemble(obt *Obtainment, layout Layout, tables []*lootTable, recipes []*catalog.Recipe, tagFiles []entry, tags tagIndex) (*Game, error) {
	all := make(map[string]*lootTable, len(tables))
	randomized := make(map[string]bool)
	for _, t := range tables {
		all[t.ID] = t
		if l.selected(t.ID) {
			randomized[t.ID] = true
		}
	}
	if len(randomized) == 0 {
		return nil, fmt.Errorf("no loot tables under %v", l.opts.RandomizeLoot)
	}

	unreliable := make(map[string][]string)
	for _, u := range obt.UnreliableDrops {
		unreliable[u.Source] = append(unreliable[u.Source], u.Item)
	}
	areaOf := obt.areaOf()
	for id := range areaOf {
		if !randomized[id] {
			l.log.Debug("area override for a source that is not randomized", "source", id)
		}
	}

	b := catalog.NewBuilder()
	game := &Game{Layout: layout, tables: make(map[string]Table, len(randomized))}
	for _, t := range tables {
		if !randomized[t.ID] {
			continue
		}
		rules := inlineTables(t.Rules, all, randomized, map[string]bool{t.ID: true})
		for _, item := range unreliable[t.ID] {
			rules = removeDrop(rules, item)
		}

		src := catalog.Source{ID: t.ID, Kind: catalog.KindSpecial, Area: areaOf[t.ID]}
		if t.Type == blockTableType {
			src.Kind = catalog.KindOrdinary
			src.Item = path.Base(t.ID)
		}
		b.AddSource(src)
		b.AddYield(catalog.Yield{ID: t.ID, Origin: t.ID, Rules: rules})
		game.tables[t.ID] = Table{Path: t.Path, Data: t.Data}
	}

	for _, e := range tagFiles {
		b.AddTag(e.id, tags[e.id]...)
	}
	for _, r := range recipes {
		if r == nil {
			continue
		}
		b.AddRecipe(*r)
		b.AddItems(ingredientItems(*r)...)
	}
	for _, a := range obt.Areas {
		b.AddArea(a.Name, a.Criteria...)
	}
	start := obt.Start
	if l.opts.StartSource != "" {
		start = l.opts.StartSource
	}
	b.SetStart(start)

	cat, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	game.Catalog = cat
	return game, nil
}

func (l *Loader) selected(id string) bool {
	for _, folder := range l.opts.RandomizeLoot {
		if strings.HasPrefix(id, strings.TrimSuffix(folder, "/")+"/") {
			return true
		}
	}
	return false
}

// inlineTables replaces references to tables that are not randomized with
// their rules, so they keep contributing drops without becoming sources.
func inlineTables(rules []catalog.DropRule, all map[string]*lootTable, randomized, visiting map[string]bool) []catalog.DropRule {
	out := make([]catalog.DropRule, 0, len(rules))
	for _, r := range rules {
		switch r := r.(type) {
		case catalog.NestedTable:
			t, known := all[r.Ref]
			if randomized[r.Ref] || !known {
				out = append(out, r)
				continue
			}
			if visiting[r.Ref] {
				continue
			}
			visiting[r.Ref] = true
			if children := inlineTables(t.Rules, all, randomized, visiting); len(children) > 0 {
				out = append(out, catalog.Alternatives{Children: children})
			}
			delete(visiting, r.Ref)
		case catalog.Alternatives:
			if children := inlineTables(r.Children, all, randomized, visiting); len(children) > 0 {
				out = append(out, catalog.Alternatives{Children: children})
			}
		default:
			out = append(out, r)
		}
	}
	return out
}

// removeDrop drops every direct mention of item. Nested tables are left
// alone: they are yields of their own.
func removeDrop(rules []catalog.DropRule, item string) []catalog.DropRule {
	out := make([]catalog.DropRule, 0, len(rules))
	for _, r := range rules {
		switch r := r.(type) {
		case catalog.ItemDrop:
			if r.Name == item {
				continue
			}
			out = append(out, r)
		case catalog.Alternatives:
			if children := removeDrop(r.Children, item); len(children) > 0 {
				out = append(out, catalog.Alternatives{Children: children})
			}
		default:
			out = append(out, r)
		}
	}
	return out
}

// forEachFile reads files concurrently and hands each one to fn with its
// index. fn must only write to index i of any shared slice.
func forEachFile(ctx context.Context, files []entry, fn func(i int, data []byte) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := readFile(files[i].file)
			if err != nil {
				return err
			}
			return fn(i, data)
		})
	}
	return g.Wait()
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}
