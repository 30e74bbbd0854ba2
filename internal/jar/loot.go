package jar

import (
	"fmt"
	"path"

	"github.com/tidwall/gjson"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

const blockTableType = "minecraft:block"

// lootTable is one parsed loot table file.
type lootTable struct {
	ID    string // path below the loot table folder, e.g. "blocks/dirt"
	Path  string // full archive path
	Type  string
	Rules []catalog.DropRule
	Data  []byte
}

// parseLootTable extracts every item a loot table can drop. Conditions,
// functions and weights are ignored: an entry that can ever produce an
// item counts as dropping it.
func parseLootTable(id, file string, data []byte, tags tagIndex) (*lootTable, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("loot table %s: invalid json", id)
	}
	doc := gjson.ParseBytes(data)
	t := &lootTable{ID: id, Path: file, Type: doc.Get("type").String(), Data: data}
	if t.Type == "" && path.Dir(id) == "blocks" {
		t.Type = blockTableType
	}
	doc.Get("pools").ForEach(func(_, pool gjson.Result) bool {
		pool.Get("entries").ForEach(func(_, e gjson.Result) bool {
			if r := dropRule(e, tags); r != nil {
				t.Rules = append(t.Rules, r)
			}
			return true
		})
		return true
	})
	return t, nil
}

func dropRule(e gjson.Result, tags tagIndex) catalog.DropRule {
	switch stripNamespace(e.Get("type").String()) {
	case "item":
		if name := e.Get("name").String(); name != "" {
			return catalog.ItemDrop{Name: stripNamespace(name)}
		}
	case "alternatives", "group", "sequence":
		var children []catalog.DropRule
		e.Get("children").ForEach(func(_, c gjson.Result) bool {
			if r := dropRule(c, tags); r != nil {
				children = append(children, r)
			}
			return true
		})
		if len(children) > 0 {
			return catalog.Alternatives{Children: children}
		}
	case "loot_table":
		// 1.20.5 renamed "name" to "value"; inline tables are objects.
		ref := e.Get("value")
		if !ref.Exists() {
			ref = e.Get("name")
		}
		if ref.Type == gjson.String {
			return catalog.NestedTable{Ref: stripNamespace(ref.String())}
		}
		if ref.IsObject() {
			var inline []catalog.DropRule
			ref.Get("pools.#.entries").ForEach(func(_, entries gjson.Result) bool {
				entries.ForEach(func(_, c gjson.Result) bool {
					if r := dropRule(c, tags); r != nil {
						inline = append(inline, r)
					}
					return true
				})
				return true
			})
			if len(inline) > 0 {
				return catalog.Alternatives{Children: inline}
			}
		}
	case "tag":
		members := tags.expand(stripNamespace(e.Get("name").String()))
		if len(members) == 0 {
			return nil
		}
		children := make([]catalog.DropRule, len(members))
		for i, m := range members {
			children[i] = catalog.ItemDrop{Name: m}
		}
		return catalog.Alternatives{Children: children}
	}
	return nil
}
