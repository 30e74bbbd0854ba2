package randomizer_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
	"github.com/OCharnyshevich/loot-randomizer/pkg/randomizer"
)

func assertBijection(t *testing.T, cat *catalog.Catalog, table *randomizer.Table) {
	t.Helper()
	require.Equal(t, len(cat.Sources()), table.Len())
	yields := make(map[string]int)
	for _, p := range table.Pairs() {
		yields[p.Yield]++
	}
	for _, y := range cat.Yields() {
		assert.Equal(t, 1, yields[y.ID], "yield %s", y.ID)
	}
	for _, s := range cat.Sources() {
		_, ok := table.Yield(s.ID)
		assert.True(t, ok, "source %s", s.ID)
	}
}

func TestRun_Bijection(t *testing.T) {
	cat := progressionCatalog(t)
	for seed := int64(0); seed < 50; seed++ {
		table, err := randomizer.New(cat, seed).Run()
		require.NoError(t, err, "seed %d", seed)
		assertBijection(t, cat, table)
	}
}

func TestRun_Deterministic(t *testing.T) {
	cat := progressionCatalog(t)
	for _, seed := range []int64{0, 1, 42, -9, 1 << 40} {
		a, err := randomizer.New(cat, seed).Run()
		require.NoError(t, err)
		b, err := randomizer.New(cat, seed).Run()
		require.NoError(t, err)

		ja, err := json.Marshal(a)
		require.NoError(t, err)
		jb, err := json.Marshal(b)
		require.NoError(t, err)
		assert.Equal(t, string(ja), string(jb), "seed %d", seed)
	}
}

func TestRun_SeedsDiffer(t *testing.T) {
	cat := progressionCatalog(t)
	seen := make(map[string]bool)
	for seed := int64(0); seed < 10; seed++ {
		table, err := randomizer.New(cat, seed).Run()
		require.NoError(t, err)
		data, err := json.Marshal(table)
		require.NoError(t, err)
		seen[string(data)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestRun_CriteriaObtainableInResult(t *testing.T) {
	cat := progressionCatalog(t)
	for seed := int64(0); seed < 20; seed++ {
		table, err := randomizer.New(cat, seed).Run()
		require.NoError(t, err)

		asg := randomizer.NewAssignment()
		for _, p := range table.Pairs() {
			require.NoError(t, asg.Assign(p.Source, p.Yield))
		}
		oracle := randomizer.NewOracle(cat, asg)
		for _, area := range cat.Areas() {
			for _, c := range area.Criteria {
				assert.True(t, oracle.Satisfied(c), "seed %d: %s", seed, c)
			}
		}
	}
}

func TestRun_StrictFailureReturnsNoTable(t *testing.T) {
	table, err := randomizer.New(obsidianCatalog(t, "stone"), 1).Run()
	require.ErrorIs(t, err, randomizer.ErrUnsatisfiable)
	assert.Nil(t, table)
}

func TestRun_RelaxedReturnsTableAndFailures(t *testing.T) {
	cat := obsidianCatalog(t, "stone")
	table, err := randomizer.New(cat, 1, randomizer.WithRelaxed(true), randomizer.WithLogger(slog.New(slog.DiscardHandler))).Run()
	require.ErrorIs(t, err, randomizer.ErrRelaxedFailures)
	assert.ErrorIs(t, err, randomizer.ErrUnsatisfiable)
	require.NotNil(t, table)
	assertBijection(t, cat, table)
}

func TestRun_NoLogicMode(t *testing.T) {
	cat := obsidianCatalog(t, "stone")
	table, err := randomizer.New(cat, 3, randomizer.WithMode(randomizer.ModeNoLogic)).Run()
	require.NoError(t, err)
	assertBijection(t, cat, table)
}

func TestRun_UnknownMode(t *testing.T) {
	_, err := randomizer.New(obsidianCatalog(t, "stone"), 1, randomizer.WithMode("skyblock")).Run()
	require.ErrorIs(t, err, randomizer.ErrUnknownMode)
}

func TestModes(t *testing.T) {
	assert.Contains(t, randomizer.Modes(), randomizer.ModeProgression)
	assert.Contains(t, randomizer.Modes(), randomizer.ModeNoLogic)

	called := false
	randomizer.Register("test-mode", func(st *randomizer.State) error {
		called = true
		return randomizer.Complete(st.Catalog, st.Assignment, st.Rand)
	})
	table, err := randomizer.New(obsidianCatalog(t, "stone"), 1, randomizer.WithMode("test-mode")).Run()
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 3, table.Len())
}

func TestBuildChain_Closure(t *testing.T) {
	const n = 12
	b := catalog.NewBuilder()
	block(b, "start", "start")
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("block_%02d", i)
		block(b, id, id)
	}
	special(b, "entities/pig", "", items("porkchop")...)
	b.AddArea("ow")
	b.SetStart("start")
	cat, err := b.Build()
	require.NoError(t, err)

	asg := randomizer.NewAssignment()
	oracle := randomizer.NewOracle(cat, asg)
	chain, err := randomizer.BuildChain(cat, oracle, asg, randomizer.NewRand(99), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.Equal(t, n+1, chain.Len())
	assert.Equal(t, "start", chain.Members[0])
	assert.False(t, asg.HasSource("entities/pig"))

	// Breaking a source and placing what it drops walks the whole chain.
	visited := map[string]bool{}
	cur := "start"
	for steps := 0; steps <= n+1; steps++ {
		require.False(t, visited[cur], "source %s visited twice", cur)
		visited[cur] = true
		y, ok := asg.YieldOf(cur)
		require.True(t, ok, "source %s has no yield", cur)
		drops := oracle.DropSet(y)
		require.Len(t, drops, 1)
		cur = drops[0]
		if cur == "start" {
			break
		}
	}
	assert.Equal(t, "start", cur)
	assert.Len(t, visited, n+1)
}

func TestBuildChain_SkipsSpecialAndAssigned(t *testing.T) {
	b := catalog.NewBuilder()
	block(b, "dirt", "dirt")
	block(b, "stone", "stone")
	block(b, "sand", "sand")
	b.AddSource(catalog.Source{ID: "spawner", Item: "spawner", Kind: catalog.KindSpecial})
	b.AddYield(catalog.Yield{ID: "spawner", Origin: "spawner", Rules: items("spawner")})
	b.AddArea("ow")
	b.SetStart("dirt")
	cat, err := b.Build()
	require.NoError(t, err)

	asg := randomizer.NewAssignment()
	require.NoError(t, asg.Assign("sand", "spawner"))
	chain, err := randomizer.BuildChain(cat, randomizer.NewOracle(cat, asg), asg, randomizer.NewRand(1), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, []string{"dirt", "stone"}, chain.Members)
}

func TestComplete_PairsRemaining(t *testing.T) {
	cat := obsidianCatalog(t, "stone")
	asg := randomizer.NewAssignment()
	require.NoError(t, asg.Assign("dirt", "log"))
	require.NoError(t, randomizer.Complete(cat, asg, randomizer.NewRand(4)))
	assert.Equal(t, 3, asg.Len())
	y, _ := asg.YieldOf("dirt")
	assert.Equal(t, "log", y)
}
