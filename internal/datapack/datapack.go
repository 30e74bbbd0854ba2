// Package datapack writes a randomized assignment as a loadable datapack
// archive.
package datapack

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/OCharnyshevich/loot-randomizer/internal/jar"
	"github.com/OCharnyshevich/loot-randomizer/pkg/randomizer"
)

const resetMessage = `tellraw @a ["",{"text":"Loot tables randomized","color":"green"}]`

// Tables looks up the original loot table file of a source or yield.
type Tables interface {
	Table(id string) (jar.Table, bool)
}

// Pack describes the datapack around the randomized tables.
type Pack struct {
	Name        string
	Description string
	Format      int
	// Legacy selects the plural function folders used by older versions.
	Legacy bool
}

// New returns the pack for a run of mode with seed.
func New(mode string, seed int64, format int, legacy bool) Pack {
	return Pack{
		Name:        fmt.Sprintf("random_loot_%s_%d", mode, seed),
		Description: fmt.Sprintf("Loot table randomizer, Seed: %d", seed),
		Format:      format,
		Legacy:      legacy,
	}
}

// FileName is the archive name written into the output directory.
func (p Pack) FileName() string { return p.Name + ".zip" }

func (p Pack) functionDirs() (tags, functions string) {
	if p.Legacy {
		return "tags/functions", "functions"
	}
	return "tags/function", "function"
}

type Writer struct {
	log *slog.Logger
}

func NewWriter(log *slog.Logger) *Writer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Writer{log: log}
}

// Write stores the pack in dir and returns the archive path. Each source's
// file receives the original contents of its assigned yield.
func (w *Writer) Write(dir string, pack Pack, tables Tables, assignment *randomizer.Table) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, pack.FileName())
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if err := w.writeArchive(f, pack, tables, assignment); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename temp file: %w", err)
	}
	w.log.Info("datapack written", "path", path, "tables", assignment.Len())
	return path, nil
}

func (w *Writer) writeArchive(f *os.File, pack Pack, tables Tables, assignment *randomizer.Table) error {
	zw := zip.NewWriter(f)

	for _, p := range assignment.Pairs() {
		src, ok := tables.Table(p.Source)
		if !ok {
			return fmt.Errorf("no loot table file for source %s", p.Source)
		}
		yield, ok := tables.Table(p.Yield)
		if !ok {
			return fmt.Errorf("no loot table file for yield %s", p.Yield)
		}
		if err := writeEntry(zw, src.Path, yield.Data); err != nil {
			return err
		}
	}

	meta, err := json.MarshalIndent(map[string]any{
		"pack": map[string]any{"pack_format": pack.Format, "description": pack.Description},
	}, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal pack.mcmeta: %w", err)
	}
	load, err := json.Marshal(map[string][]string{"values": {pack.Name + ":reset"}})
	if err != nil {
		return fmt.Errorf("marshal load tag: %w", err)
	}
	tagDir, fnDir := pack.functionDirs()
	extra := []struct {
		name string
		data []byte
	}{
		{"pack.mcmeta", meta},
		{"data/minecraft/" + tagDir + "/load.json", load},
		{"data/" + pack.Name + "/" + fnDir + "/reset.mcfunction", []byte(resetMessage)},
	}
	for _, e := range extra {
		if err := writeEntry(zw, e.name, e.data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	ew, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := ew.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
