package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/loot-randomizer/pkg/randomizer"
)

func TestCheatsheet(t *testing.T) {
	table, err := randomizer.NewTable([]randomizer.Pair{
		{Source: "entities/zombie", Yield: "blocks/dirt"},
		{Source: "blocks/dirt", Yield: "entities/zombie"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Cheatsheet(&buf, table))
	assert.Equal(t, ""+
		"Source           Yield\n"+
		"------           -----\n"+
		"blocks/dirt      entities/zombie\n"+
		"entities/zombie  blocks/dirt\n", buf.String())
}

func TestWriteCheatsheet(t *testing.T) {
	table, err := randomizer.NewTable([]randomizer.Pair{{Source: "blocks/dirt", Yield: "blocks/dirt"}})
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := WriteCheatsheet(dir, 42, table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cheatsheet_42.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "blocks/dirt  blocks/dirt")

	_, err = WriteCheatsheet(filepath.Join(dir, "missing"), 1, table)
	require.Error(t, err)
}
