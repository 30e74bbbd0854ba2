package catalog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

func newBuilder() *catalog.Builder {
	b := catalog.NewBuilder()
	for _, id := range []string{"stone", "dirt", "oak_log"} {
		b.AddSource(catalog.Source{ID: id, Item: id})
		b.AddYield(catalog.Yield{ID: id, Origin: id, Rules: []catalog.DropRule{catalog.ItemDrop{Name: id}}})
	}
	return b.AddArea("ow").SetStart("dirt")
}

func malformed(t *testing.T, err error) []*catalog.MalformedError {
	t.Helper()
	require.ErrorIs(t, err, catalog.ErrMalformedCatalog)
	var out []*catalog.MalformedError
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "expected joined errors, got %T", err)
	for _, e := range joined.Unwrap() {
		var me *catalog.MalformedError
		require.True(t, errors.As(e, &me))
		out = append(out, me)
	}
	return out
}

func TestBuild_CanonicalOrder(t *testing.T) {
	cat, err := newBuilder().Build()
	require.NoError(t, err)

	var ids []string
	for _, s := range cat.Sources() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"dirt", "oak_log", "stone"}, ids)

	start := cat.Start()
	assert.Equal(t, "dirt", start.ID)
	assert.True(t, start.Reserved)

	stone, ok := cat.Source("stone")
	require.True(t, ok)
	assert.False(t, stone.Reserved)
	assert.Equal(t, catalog.KindOrdinary, stone.Kind)

	y, ok := cat.OriginalYield("oak_log")
	assert.True(t, ok)
	assert.Equal(t, "oak_log", y)
}

func TestBuild_TagsExpandTransitively(t *testing.T) {
	b := newBuilder()
	b.AddItems("birch_log", "spruce_log")
	b.AddTag("logs", "#oak_logs", "birch_log", "#logs")
	b.AddTag("oak_logs", "oak_log", "spruce_log")
	b.AddArea("nether", "#logs")

	cat, err := b.Build()
	require.NoError(t, err)

	tag, ok := cat.Tag("logs")
	require.True(t, ok)
	assert.Equal(t, []string{"birch_log", "oak_log", "spruce_log"}, tag.Members)

	areas := cat.Areas()
	require.Len(t, areas, 2)
	require.Len(t, areas[1].Criteria, 1)
	c, ok := areas[1].Criteria[0].(catalog.AnyOf)
	require.True(t, ok)
	assert.Equal(t, "logs", c.Tag)
	assert.Equal(t, "#logs", c.String())
	assert.Equal(t, tag.Members, c.Items())

	idx, ok := cat.AreaIndex("nether")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestBuild_SlotCriterion(t *testing.T) {
	b := newBuilder()
	b.AddTag("soil", "dirt", "stone")
	cat, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, catalog.Single{Item: "dirt"}, cat.SlotCriterion(catalog.ItemSlot{Item: "dirt"}))
	assert.Equal(t, catalog.AnyOf{Tag: "soil", Members: []string{"dirt", "stone"}}, cat.SlotCriterion(catalog.TagSlot{Tag: "soil"}))
	assert.Equal(t, catalog.AnyOf{Members: []string{"dirt", "stone"}}, cat.SlotCriterion(catalog.AnyOfSlot{Items: []string{"stone", "dirt", "stone"}}))
	assert.Equal(t, catalog.Single{Item: "dirt"}, cat.SlotCriterion(catalog.AnyOfSlot{Items: []string{"dirt", "dirt"}}))
}

func TestBuild_RecipesKeepOrder(t *testing.T) {
	b := newBuilder()
	b.AddRecipe(catalog.Recipe{ID: "planks_from_log", Item: "planks", Slots: []catalog.RecipeSlot{catalog.ItemSlot{Item: "oak_log"}}})
	b.AddRecipe(catalog.Recipe{Item: "planks", Slots: []catalog.RecipeSlot{catalog.ItemSlot{Item: "stone"}}})
	cat, err := b.Build()
	require.NoError(t, err)

	recipes := cat.Recipes("planks")
	require.Len(t, recipes, 2)
	assert.Equal(t, "planks_from_log", recipes[0].ID)
	assert.Equal(t, "planks", recipes[1].ID)
	assert.True(t, cat.HasItem("planks"))
	assert.Contains(t, cat.Items(), "planks")
}

func TestBuild_UnknownNestedTable(t *testing.T) {
	b := newBuilder()
	b.AddSource(catalog.Source{ID: "zombie", Kind: catalog.KindSpecial})
	b.AddYield(catalog.Yield{ID: "zombie", Origin: "zombie", Rules: []catalog.DropRule{
		catalog.Alternatives{Children: []catalog.DropRule{catalog.NestedTable{Ref: "stonee"}}},
	}})

	_, err := b.Build()
	problems := malformed(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, catalog.ProblemUnknownYield, problems[0].Kind)
	assert.Equal(t, "stonee", problems[0].Ref)
	assert.Equal(t, "stone", problems[0].Suggestion)
	assert.Contains(t, err.Error(), `did you mean "stone"`)
}

func TestBuild_UnknownRecipeReferences(t *testing.T) {
	b := newBuilder()
	b.AddRecipe(catalog.Recipe{Item: "obsidian", Slots: []catalog.RecipeSlot{
		catalog.ItemSlot{Item: "water_bucket"},
		catalog.TagSlot{Tag: "lava"},
	}})

	_, err := b.Build()
	problems := malformed(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, catalog.ProblemUnknownItem, problems[0].Kind)
	assert.Equal(t, "water_bucket", problems[0].Ref)
	assert.Equal(t, catalog.ProblemUnknownTag, problems[1].Kind)
	assert.Equal(t, "lava", problems[1].Ref)
}

func TestBuild_UnknownCriterion(t *testing.T) {
	b := newBuilder()
	b.AddArea("end", "ender_eye", "#portal")

	_, err := b.Build()
	problems := malformed(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "ender_eye", problems[0].Ref)
	assert.Equal(t, "portal", problems[1].Ref)
}

func TestBuild_StructuralProblems(t *testing.T) {
	b := catalog.NewBuilder()
	b.AddSource(catalog.Source{ID: "dirt", Item: "dirt", Area: "nether"})
	b.AddSource(catalog.Source{ID: "dirt", Item: "dirt"})
	b.AddYield(catalog.Yield{ID: "dirt", Origin: "grass"})

	_, err := b.Build()
	problems := malformed(t, err)

	kinds := make([]string, len(problems))
	for i, p := range problems {
		kinds[i] = p.Kind
	}
	assert.Contains(t, kinds, catalog.ProblemNoAreas)
	assert.Contains(t, kinds, catalog.ProblemUnknownArea)
	assert.Contains(t, kinds, catalog.ProblemDuplicate)
	assert.Contains(t, kinds, catalog.ProblemUnknownSource)
	assert.Contains(t, kinds, catalog.ProblemMissingStart)
}

func TestBuild_CountMismatch(t *testing.T) {
	b := newBuilder()
	b.AddSource(catalog.Source{ID: "bat", Kind: catalog.KindSpecial})

	_, err := b.Build()
	problems := malformed(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, catalog.ProblemCountMismatch, problems[0].Kind)
}

func TestBuild_UnknownStartSuggests(t *testing.T) {
	b := newBuilder().SetStart("dirtt")
	_, err := b.Build()
	problems := malformed(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, catalog.ProblemMissingStart, problems[0].Kind)
	assert.Equal(t, "dirt", problems[0].Suggestion)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ordinary", catalog.KindOrdinary.String())
	assert.Equal(t, "special", catalog.KindSpecial.String())
}
