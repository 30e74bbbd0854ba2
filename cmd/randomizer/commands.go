package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/OCharnyshevich/loot-randomizer/internal/config"
	"github.com/OCharnyshevich/loot-randomizer/internal/datapack"
	"github.com/OCharnyshevich/loot-randomizer/internal/fetch"
	"github.com/OCharnyshevich/loot-randomizer/internal/jar"
	"github.com/OCharnyshevich/loot-randomizer/internal/report"
	"github.com/OCharnyshevich/loot-randomizer/internal/storage"
	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
	"github.com/OCharnyshevich/loot-randomizer/pkg/randomizer"
)

// gameFlags select and load the game archive.
type gameFlags struct {
	Jar        string   `short:"j" long:"jar" description:"game archive; defaults to the newest installed version"`
	JarURL     string   `long:"jar-url" description:"download the archive from this go-getter URL"`
	CacheDir   string   `long:"cache-dir" description:"where downloaded archives are kept"`
	Loot       []string `long:"loot" description:"loot table folder to randomize (repeatable)"`
	Start      string   `long:"start" description:"start source, e.g. blocks/dirt"`
	Obtainment string   `long:"obtainment" description:"obtainment data YAML; defaults to the embedded vanilla data"`
}

func (f *gameFlags) apply(cfg *config.Config) {
	cfg.Jar = f.Jar
	cfg.JarURL = f.JarURL
	cfg.CacheDir = f.CacheDir
	cfg.RandomizeLoot = f.Loot
	cfg.StartSource = f.Start
	cfg.ObtainmentFile = f.Obtainment
}

// archive resolves the game archive: an explicit path, a download, or the
// newest installed version.
func (a *app) archive(cfg *config.Config) (string, error) {
	switch {
	case cfg.Jar != "":
		return cfg.Jar, nil
	case cfg.JarURL != "":
		return fetch.New(cfg.CacheDir, a.log).Fetch(a.ctx, cfg.JarURL, false)
	}
	dir, err := jar.GameDir()
	if err != nil {
		return "", fmt.Errorf("locate game directory: %w", err)
	}
	path, err := jar.Find(dir)
	if err != nil {
		return "", fmt.Errorf("no archive given and none installed under %s: %w", dir, err)
	}
	a.log.Info("found installed archive", "path", path)
	return path, nil
}

func (a *app) loadGame(cfg *config.Config) (*jar.Game, string, error) {
	path, err := a.archive(cfg)
	if err != nil {
		return nil, "", err
	}
	opts := jar.Options{RandomizeLoot: cfg.RandomizeLoot, StartSource: cfg.StartSource}
	if cfg.ObtainmentFile != "" {
		if opts.Obtainment, err = jar.LoadObtainment(cfg.ObtainmentFile); err != nil {
			return nil, "", err
		}
	}
	game, err := jar.NewLoader(opts, a.log).LoadFile(a.ctx, path)
	if err != nil {
		return nil, "", err
	}
	return game, path, nil
}

type RandomizeCmd struct {
	gameFlags
	Seed         int64  `short:"s" long:"seed" description:"randomizer seed; random when unset"`
	Output       string `short:"o" long:"output" description:"output directory"`
	Mode         string `short:"m" long:"mode" description:"randomizer mode (progression, no_logic)"`
	Relaxed      bool   `long:"relaxed" description:"keep going past unsatisfiable criteria"`
	NoCheatsheet bool   `long:"no-cheatsheet" description:"do not write a cheat-sheet"`
	PackFormat   int    `long:"pack-format" description:"datapack pack_format"`
	DB           string `long:"db" description:"run history database; empty disables history"`

	NoSpecialKeyItems bool `long:"no-special-key-items" description:"only blocks may drop the items areas require"`

	app *app
}

func (c *RandomizeCmd) Execute(_ []string) error {
	fromFlags := &config.Config{
		Seed:            &c.Seed,
		OutputDir:       c.Output,
		Mode:            c.Mode,
		Relaxed:         c.Relaxed,
		SpecialKeyItems: !c.NoSpecialKeyItems,
		Cheatsheet:      !c.NoCheatsheet,
		PackFormat:      c.PackFormat,
		DBPath:          c.DB,
	}
	c.gameFlags.apply(fromFlags)
	cfg, err := c.app.config(fromFlags)
	if err != nil {
		return err
	}
	log := c.app.log

	seed, err := cfg.ResolveSeed()
	if err != nil {
		return err
	}
	game, archive, err := c.app.loadGame(cfg)
	if err != nil {
		return err
	}

	log.Info("generating datapack", "seed", seed, "mode", cfg.Mode, "relaxed", cfg.Relaxed, "special_key_items", cfg.SpecialKeyItems)
	table, runErr := randomizer.New(game.Catalog, seed,
		randomizer.WithLogger(log),
		randomizer.WithRelaxed(cfg.Relaxed),
		randomizer.WithSpecialKeyItems(cfg.SpecialKeyItems),
		randomizer.WithMode(cfg.Mode),
	).Run()
	if table == nil {
		return runErr
	}
	failures := countUnsatisfiable(runErr)
	if failures > 0 {
		log.Warn("some criteria are not obtainable", "count", failures)
	}

	pack := datapack.New(cfg.Mode, seed, cfg.PackFormat, game.Layout.Legacy())
	packPath, err := datapack.NewWriter(log).Write(cfg.OutputDir, pack, game, table)
	if err != nil {
		return err
	}

	st, err := storage.New(cfg.OutputDir, log)
	if err != nil {
		return err
	}
	run := &storage.Run{
		Seed:     seed,
		Mode:     cfg.Mode,
		Archive:  archive,
		Datapack: packPath,
		Relaxed:  cfg.Relaxed,
		Failures: failures,
	}
	if cfg.DBPath != "" {
		runs, err := storage.OpenRuns(cfg.DBPath, log)
		if err != nil {
			return err
		}
		defer runs.Close()
		if err := runs.SaveRun(c.app.ctx, run, table); err != nil {
			return err
		}
	}
	if _, err := st.SaveAssignment(&storage.AssignmentFile{
		RunID:      run.ID,
		Seed:       seed,
		Mode:       cfg.Mode,
		Relaxed:    cfg.Relaxed,
		Assignment: table,
	}); err != nil {
		return err
	}

	if cfg.Cheatsheet {
		if _, err := report.WriteCheatsheet(cfg.OutputDir, seed, table); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.app.stdout, "Created datapack %s. Enjoy!\n", packPath)
	return nil
}

type ValidateCmd struct {
	gameFlags

	app *app
}

func (c *ValidateCmd) Execute(_ []string) error {
	fromFlags := config.DefaultConfig()
	c.gameFlags.apply(fromFlags)
	cfg, err := c.app.config(fromFlags)
	if err != nil {
		return err
	}

	game, _, err := c.app.loadGame(cfg)
	var problems []*catalog.MalformedError
	walkErrors(err, func(e error) bool {
		if me, ok := e.(*catalog.MalformedError); ok {
			problems = append(problems, me)
			return false
		}
		return true
	})
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(c.app.stdout, p.Error())
		}
		return fmt.Errorf("%d catalog problems: %w", len(problems), catalog.ErrMalformedCatalog)
	}
	if err != nil {
		return err
	}

	cat := game.Catalog
	fmt.Fprintf(c.app.stdout, "catalog ok: %d sources, %d items, %d areas, start %s\n",
		len(cat.Sources()), len(cat.Items()), len(cat.Areas()), cat.Start().ID)
	return nil
}

type FetchCmd struct {
	URL      string `long:"url" description:"go-getter URL of the archive"`
	CacheDir string `long:"cache-dir" description:"where downloaded archives are kept"`
	Force    bool   `long:"force" description:"download even when cached"`

	app *app
}

func (c *FetchCmd) Execute(_ []string) error {
	cfg, err := c.app.config(&config.Config{JarURL: c.URL, CacheDir: c.CacheDir})
	if err != nil {
		return err
	}
	if cfg.JarURL == "" {
		return errors.New("fetch: no URL given (--url or jar_url)")
	}
	path, err := fetch.New(cfg.CacheDir, c.app.log).Fetch(c.app.ctx, cfg.JarURL, c.Force)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.app.stdout, path)
	return nil
}

type HistoryCmd struct {
	DB    string `long:"db" description:"run history database"`
	Limit int    `long:"limit" default:"20" description:"number of runs to list"`
	Run   string `long:"run" description:"print the cheat-sheet of this run ID"`

	app *app
}

func (c *HistoryCmd) Execute(_ []string) error {
	cfg, err := c.app.config(&config.Config{DBPath: c.DB})
	if err != nil {
		return err
	}
	if cfg.DBPath == "" {
		return errors.New("history: run history is disabled (empty db_path)")
	}
	runs, err := storage.OpenRuns(cfg.DBPath, c.app.log)
	if err != nil {
		return err
	}
	defer runs.Close()

	if c.Run != "" {
		_, table, err := runs.LoadRun(c.app.ctx, c.Run)
		if err != nil {
			return err
		}
		return report.Cheatsheet(c.app.stdout, table)
	}

	list, err := runs.ListRuns(c.app.ctx, c.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.app.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCreated\tSeed\tMode\tFailures\tDatapack")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Seed, r.Mode, r.Failures, r.Datapack)
	}
	return tw.Flush()
}

// walkErrors visits err and everything it wraps. fn returns false to stop
// descending below an error.
func walkErrors(err error, fn func(error) bool) {
	if err == nil || !fn(err) {
		return
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, c := range e.Unwrap() {
			walkErrors(c, fn)
		}
	case interface{ Unwrap() error }:
		walkErrors(e.Unwrap(), fn)
	}
}

func countUnsatisfiable(err error) int {
	n := 0
	walkErrors(err, func(e error) bool {
		if _, ok := e.(*randomizer.UnsatisfiableError); ok {
			n++
			return false
		}
		return true
	})
	return n
}
