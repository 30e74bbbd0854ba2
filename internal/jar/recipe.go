package jar

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// parseRecipe returns the recipe described by data, or ok=false for recipe
// types that do not turn ingredients into a fixed item (map cloning,
// armor trims, banner patterns and the like). Tags inside ingredient lists
// are expanded through tags.
func parseRecipe(id string, data []byte, tags tagIndex) (r catalog.Recipe, ok bool, err error) {
	if !gjson.ValidBytes(data) {
		return catalog.Recipe{}, false, fmt.Errorf("recipe %s: invalid json", id)
	}
	doc := gjson.ParseBytes(data)

	var slots []gjson.Result
	switch stripNamespace(doc.Get("type").String()) {
	case "crafting_shaped":
		used := patternKeys(doc.Get("pattern"))
		doc.Get("key").ForEach(func(k, v gjson.Result) bool {
			if used == nil || used[k.String()] {
				slots = append(slots, v)
			}
			return true
		})
	case "crafting_shapeless":
		doc.Get("ingredients").ForEach(func(_, v gjson.Result) bool {
			slots = append(slots, v)
			return true
		})
	case "smelting", "blasting", "smoking", "campfire_cooking", "stonecutting":
		slots = append(slots, doc.Get("ingredient"))
	case "smithing_transform", "smithing":
		for _, key := range []string{"template", "base", "addition"} {
			if v := doc.Get(key); v.Exists() {
				slots = append(slots, v)
			}
		}
	default:
		return catalog.Recipe{}, false, nil
	}

	item := resultItem(doc.Get("result"))
	if item == "" {
		return catalog.Recipe{}, false, nil
	}
	r = catalog.Recipe{ID: id, Item: item}
	for _, v := range slots {
		if slot := ingredient(v, tags); slot != nil {
			r.Slots = append(r.Slots, slot)
		}
	}
	return r, true, nil
}

// resultItem handles "result": "minecraft:x", {"item": ...} and {"id": ...}.
func resultItem(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return stripNamespace(v.String())
	case v.IsObject():
		if id := v.Get("id"); id.Exists() {
			return stripNamespace(id.String())
		}
		return stripNamespace(v.Get("item").String())
	}
	return ""
}

// ingredient accepts the object form ({"item"} or {"tag"}), the string
// form ("minecraft:x" or "#minecraft:tag") and lists of either.
func ingredient(v gjson.Result, tags tagIndex) catalog.RecipeSlot {
	switch {
	case v.Type == gjson.String:
		ref := v.String()
		if rest, ok := strings.CutPrefix(ref, catalog.TagPrefix); ok {
			return catalog.TagSlot{Tag: stripNamespace(rest)}
		}
		if ref == "" {
			return nil
		}
		return catalog.ItemSlot{Item: stripNamespace(ref)}
	case v.IsObject():
		if tag := v.Get("tag"); tag.Exists() {
			return catalog.TagSlot{Tag: stripNamespace(tag.String())}
		}
		if item := v.Get("item"); item.Exists() {
			return catalog.ItemSlot{Item: stripNamespace(item.String())}
		}
	case v.IsArray():
		var alts []catalog.RecipeSlot
		v.ForEach(func(_, e gjson.Result) bool {
			if s := ingredient(e, tags); s != nil {
				alts = append(alts, s)
			}
			return true
		})
		return listSlot(alts, tags)
	}
	return nil
}

// listSlot collapses alternatives into a single slot listing every item any
// alternative accepts, tags included. When no alternative resolves to an
// item the first one is kept so the catalog reports the unknown tag.
func listSlot(alts []catalog.RecipeSlot, tags tagIndex) catalog.RecipeSlot {
	if len(alts) == 0 {
		return nil
	}
	if len(alts) == 1 {
		return alts[0]
	}
	var items []string
	seen := make(map[string]bool)
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				items = append(items, n)
			}
		}
	}
	for _, a := range alts {
		switch s := a.(type) {
		case catalog.ItemSlot:
			add(s.Item)
		case catalog.AnyOfSlot:
			add(s.Items...)
		case catalog.TagSlot:
			add(tags.expand(s.Tag)...)
		}
	}
	if len(items) == 0 {
		return alts[0]
	}
	return catalog.AnyOfSlot{Items: items}
}

func patternKeys(pattern gjson.Result) map[string]bool {
	if !pattern.IsArray() {
		return nil
	}
	used := make(map[string]bool)
	pattern.ForEach(func(_, row gjson.Result) bool {
		for _, c := range row.String() {
			used[string(c)] = true
		}
		return true
	})
	return used
}

// ingredientItems lists every plain item a recipe mentions.
func ingredientItems(r catalog.Recipe) []string {
	var out []string
	for _, slot := range r.Slots {
		switch s := slot.(type) {
		case catalog.ItemSlot:
			out = append(out, s.Item)
		case catalog.AnyOfSlot:
			out = append(out, s.Items...)
		}
	}
	return out
}
