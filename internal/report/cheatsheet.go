// Package report renders a human-readable cheat-sheet of an assignment.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/OCharnyshevich/loot-randomizer/pkg/randomizer"
)

// FileName is the cheat-sheet name for seed.
func FileName(seed int64) string {
	return fmt.Sprintf("cheatsheet_%d.txt", seed)
}

// Cheatsheet writes one "source  yield" row per pair, sorted by source.
func Cheatsheet(w io.Writer, table *randomizer.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Source\tYield")
	fmt.Fprintln(tw, "------\t-----")
	for _, p := range table.Pairs() {
		fmt.Fprintf(tw, "%s\t%s\n", p.Source, p.Yield)
	}
	return tw.Flush()
}

// WriteCheatsheet stores the cheat-sheet for seed in dir and returns its path.
func WriteCheatsheet(dir string, seed int64, table *randomizer.Table) (string, error) {
	path := filepath.Join(dir, FileName(seed))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create cheatsheet: %w", err)
	}
	if err := Cheatsheet(f, table); err != nil {
		f.Close()
		return "", fmt.Errorf("write cheatsheet: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close cheatsheet: %w", err)
	}
	return path, nil
}
