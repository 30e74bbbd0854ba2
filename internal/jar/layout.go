package jar

import "strings"

const dataRoot = "data/minecraft/"

// Layout names the folders, relative to data/minecraft/, that hold loot
// tables, recipes and item tags. Newer archives use singular folder names.
type Layout struct {
	LootTables string
	Recipes    string
	ItemTags   string
}

var (
	LegacyLayout  = Layout{LootTables: "loot_tables/", Recipes: "recipes/", ItemTags: "tags/items/"}
	CurrentLayout = Layout{LootTables: "loot_table/", Recipes: "recipe/", ItemTags: "tags/item/"}
)

// Legacy reports whether l is the plural-folder layout.
func (l Layout) Legacy() bool { return l == LegacyLayout }

// detectLayout picks the layout whose loot table folder appears in names.
func detectLayout(names []string) Layout {
	for _, n := range names {
		if strings.HasPrefix(n, dataRoot+LegacyLayout.LootTables) {
			return LegacyLayout
		}
		if strings.HasPrefix(n, dataRoot+CurrentLayout.LootTables) {
			return CurrentLayout
		}
	}
	return CurrentLayout
}

// relative returns the path of name below data/minecraft/<folder> without
// the .json suffix.
func relative(name, folder string) (string, bool) {
	rest, ok := strings.CutPrefix(name, dataRoot+folder)
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, ".json")
}

// stripNamespace turns "minecraft:dirt" into "dirt".
func stripNamespace(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
