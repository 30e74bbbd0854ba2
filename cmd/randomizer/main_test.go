package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/loot-randomizer/internal/storage"
)

func block(drop string) string {
	return `{"type":"minecraft:block","pools":[{"rolls":1,"entries":[{"type":"minecraft:item","name":"minecraft:` + drop + `"}]}]}`
}

func writeArchive(t *testing.T, dir string) string {
	t.Helper()
	files := map[string]string{
		"data/minecraft/loot_table/blocks/dirt.json":     block("dirt"),
		"data/minecraft/loot_table/blocks/stone.json":    block("stone"),
		"data/minecraft/loot_table/blocks/sand.json":     block("sand"),
		"data/minecraft/loot_table/blocks/iron_ore.json": block("raw_iron"),
		"data/minecraft/loot_table/entities/zombie.json": `{"type":"minecraft:entity","pools":[{"rolls":1,"entries":[{"type":"minecraft:item","name":"minecraft:rotten_flesh"}]}]}`,
		"data/minecraft/recipe/iron_ingot.json":          `{"type":"minecraft:smelting","ingredient":{"item":"minecraft:raw_iron"},"result":{"id":"minecraft:iron_ingot"}}`,
	}
	path := filepath.Join(dir, "1.21.jar")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func writeObtainment(t *testing.T, dir, criterion string) string {
	t.Helper()
	path := filepath.Join(dir, "obtainment.yaml")
	body := "start: blocks/dirt\nareas:\n  - name: ow\n  - name: nether\n    criteria: [" + criterion + "]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRandomize(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir)
	obt := writeObtainment(t, dir, "iron_ingot")
	out := filepath.Join(dir, "out")
	db := filepath.Join(dir, "runs.db")

	code, stdout, stderr := runCLI(t, "randomize",
		"--jar", archive, "--obtainment", obt,
		"--loot", "blocks", "--loot", "entities",
		"--seed", "42", "--output", out, "--db", db,
	)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "random_loot_progression_42.zip")

	assert.FileExists(t, filepath.Join(out, "random_loot_progression_42.zip"))
	assert.FileExists(t, filepath.Join(out, "cheatsheet_42.txt"))

	af, err := storage.ReadAssignment(filepath.Join(out, "assignment_42.json"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), af.Seed)
	assert.Equal(t, 5, af.Assignment.Len())
	require.NotEmpty(t, af.RunID)

	code, stdout, stderr = runCLI(t, "history", "--db", db)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, af.RunID)
	assert.Contains(t, stdout, "progression")

	code, stdout, stderr = runCLI(t, "history", "--db", db, "--run", af.RunID)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "blocks/iron_ore")
}

func TestRandomize_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir)
	obt := writeObtainment(t, dir, "iron_ingot")
	out := filepath.Join(dir, "out")
	cfgPath := filepath.Join(dir, "randomizer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Join([]string{
		"seed: 7",
		"jar: " + archive,
		"obtainment_file: " + obt,
		"randomize_loot: [blocks, entities]",
		"output_dir: " + out,
		"mode: no_logic",
		"cheatsheet: false",
		"db_path: ''",
	}, "\n")), 0o644))

	code, _, stderr := runCLI(t, "-f", cfgPath, "randomize", "--seed", "8")
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, filepath.Join(out, "random_loot_no_logic_8.zip"), "flags beat the config file")
	assert.NoFileExists(t, filepath.Join(out, "cheatsheet_8.txt"))
}

func TestRandomize_NoSpecialKeyItems(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir)
	obt := writeObtainment(t, dir, "rotten_flesh")
	out := filepath.Join(dir, "out")

	code, _, stderr := runCLI(t, "randomize",
		"--jar", archive, "--obtainment", obt,
		"--loot", "blocks", "--loot", "entities",
		"--seed", "3", "--output", out, "--db", filepath.Join(dir, "runs.db"),
		"--no-special-key-items",
	)
	require.Equal(t, 0, code, stderr)

	af, err := storage.ReadAssignment(filepath.Join(out, "assignment_3.json"))
	require.NoError(t, err)
	y, ok := af.Assignment.Yield("blocks/iron_ore")
	require.True(t, ok)
	assert.Equal(t, "entities/zombie", y, "only a block may carry the required drop")
}

func TestRandomize_MalformedCatalog(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir)
	obt := writeObtainment(t, dir, "rotten_flesh")
	out := filepath.Join(dir, "out")

	// Only the zombie drops rotten_flesh and entities are not loaded.
	code, _, stderr := runCLI(t, "randomize", "--jar", archive, "--obtainment", obt,
		"--loot", "blocks", "--seed", "1", "--output", out, "--db", "")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "malformed catalog")
	assert.NoFileExists(t, filepath.Join(out, "random_loot_progression_1.zip"))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir)

	code, stdout, stderr := runCLI(t, "validate", "--jar", archive,
		"--obtainment", writeObtainment(t, dir, "iron_ingot"), "--loot", "blocks")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "catalog ok: 4 sources")

	code, stdout, _ = runCLI(t, "validate", "--jar", archive,
		"--obtainment", writeObtainment(t, dir, "iron_ingots"), "--loot", "blocks")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, `did you mean "iron_ingot"`)
}

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir)
	cache := filepath.Join(dir, "cache")

	code, stdout, stderr := runCLI(t, "fetch", "--url", archive, "--cache-dir", cache)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, filepath.Join(cache, "1.21.jar"), strings.TrimSpace(stdout))
}

func TestHelpAndUsageErrors(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "randomize")

	code, _, _ = runCLI(t, "shuffle")
	assert.Equal(t, 2, code)

	code, _, stderr := runCLI(t, "randomize", "--mode", "skyblock", "--jar", "x.jar", "--pack-format", "0")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid config")
}
