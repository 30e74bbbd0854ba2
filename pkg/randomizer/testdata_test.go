package randomizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// block adds an ordinary source whose original yield drops drops.
func block(b *catalog.Builder, id string, drops ...string) {
	b.AddSource(catalog.Source{ID: id, Item: id, Kind: catalog.KindOrdinary})
	rules := make([]catalog.DropRule, len(drops))
	for i, d := range drops {
		rules[i] = catalog.ItemDrop{Name: d}
	}
	b.AddYield(catalog.Yield{ID: id, Origin: id, Rules: rules})
}

// special adds a special source in area with a yield made of rules.
func special(b *catalog.Builder, id, area string, rules ...catalog.DropRule) {
	b.AddSource(catalog.Source{ID: id, Kind: catalog.KindSpecial, Area: area})
	b.AddYield(catalog.Yield{ID: id, Origin: id, Rules: rules})
}

func items(names ...string) []catalog.DropRule {
	out := make([]catalog.DropRule, len(names))
	for i, n := range names {
		out[i] = catalog.ItemDrop{Name: n}
	}
	return out
}

// obsidianCatalog is the dirt/stone/log scenario. stoneDrops replaces the
// drop-set of the stone yield.
func obsidianCatalog(t *testing.T, stoneDrops ...string) *catalog.Catalog {
	t.Helper()
	b := catalog.NewBuilder()
	block(b, "dirt", "dirt")
	block(b, "stone", stoneDrops...)
	block(b, "log", "log")
	b.AddItems("bucket_of_water", "bucket_of_lava", "obsidian")
	b.AddRecipe(catalog.Recipe{
		Item:  "obsidian",
		Slots: []catalog.RecipeSlot{catalog.ItemSlot{Item: "bucket_of_water"}, catalog.ItemSlot{Item: "bucket_of_lava"}},
	})
	b.AddArea("ow")
	b.AddArea("nether", "obsidian")
	b.SetStart("dirt")
	cat, err := b.Build()
	require.NoError(t, err)
	return cat
}

// progressionCatalog is a small game with three gated areas.
func progressionCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	b := catalog.NewBuilder()
	for _, id := range []string{"dirt", "stone", "sand", "oak_log", "birch_log", "cobblestone", "clay"} {
		block(b, id, id)
	}
	b.AddSource(catalog.Source{ID: "gravel", Item: "gravel", Kind: catalog.KindOrdinary})
	b.AddYield(catalog.Yield{ID: "gravel", Origin: "gravel", Rules: []catalog.DropRule{
		catalog.Alternatives{Children: items("gravel", "flint")},
	}})
	block(b, "iron_ore", "raw_iron")
	special(b, "entities/blaze", "nether", items("blaze_rod")...)
	special(b, "entities/enderman", "", items("ender_pearl")...)
	special(b, "chests/ruined_portal", "", catalog.NestedTable{Ref: "gameplay/bonus"}, catalog.ItemDrop{Name: "gold_nugget"})
	special(b, "gameplay/bonus", "", items("obsidian")...)

	b.AddTag("logs", "oak_log", "birch_log")
	b.AddRecipe(catalog.Recipe{ID: "iron_ingot_from_smelting", Item: "iron_ingot", Slots: []catalog.RecipeSlot{catalog.ItemSlot{Item: "raw_iron"}}})
	b.AddRecipe(catalog.Recipe{Item: "flint_and_steel", Slots: []catalog.RecipeSlot{catalog.ItemSlot{Item: "iron_ingot"}, catalog.ItemSlot{Item: "flint"}}})
	b.AddRecipe(catalog.Recipe{Item: "blaze_powder", Slots: []catalog.RecipeSlot{catalog.ItemSlot{Item: "blaze_rod"}}})
	b.AddRecipe(catalog.Recipe{Item: "ender_eye", Slots: []catalog.RecipeSlot{catalog.ItemSlot{Item: "ender_pearl"}, catalog.ItemSlot{Item: "blaze_powder"}}})

	b.AddArea("ow", "#logs")
	b.AddArea("nether", "obsidian", "flint_and_steel")
	b.AddArea("end", "ender_eye")
	b.SetStart("dirt")

	cat, err := b.Build()
	require.NoError(t, err)
	return cat
}
