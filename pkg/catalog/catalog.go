// Package catalog holds the read-only game data the randomizer works on:
// sources, the yield tables they originally carry, recipes, tags and the
// ordered progression areas.
package catalog

import "sort"

// Kind separates sources that can take part in the block chain from all
// other sources (entities, chests, fishing, gifts).
type Kind int

const (
	KindOrdinary Kind = iota
	KindSpecial
)

func (k Kind) String() string {
	switch k {
	case KindOrdinary:
		return "ordinary"
	case KindSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Source is an entity slot that receives exactly one yield.
type Source struct {
	ID   string
	Item string // represented item, empty when the source is not placeable
	Kind Kind
	Area string // empty means the first area

	// Reserved is set by the catalog for the start source.
	Reserved bool
}

// Yield is a production table. Origin is the source it was shipped with.
type Yield struct {
	ID     string
	Origin string
	Rules  []DropRule
}

// Tag is a named set of interchangeable items, fully expanded.
type Tag struct {
	Name    string
	Members []string
}

// Area is a progression stage. Its position in Catalog.Areas is its rank.
type Area struct {
	Name     string
	Criteria []Criterion
}

// Catalog is immutable once built.
type Catalog struct {
	sources   []Source
	sourceIdx map[string]int
	yields    []Yield
	yieldIdx  map[string]int
	origin    map[string]string

	recipes map[string][]Recipe
	tags    map[string]Tag
	areas   []Area
	areaIdx map[string]int
	items   map[string]struct{}

	start string
}

// Sources returns all sources sorted by ID.
func (c *Catalog) Sources() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Yields returns all yields sorted by ID.
func (c *Catalog) Yields() []Yield {
	out := make([]Yield, len(c.yields))
	copy(out, c.yields)
	return out
}

// Areas returns the areas in progression order.
func (c *Catalog) Areas() []Area {
	out := make([]Area, len(c.areas))
	copy(out, c.areas)
	return out
}

func (c *Catalog) Source(id string) (Source, bool) {
	i, ok := c.sourceIdx[id]
	if !ok {
		return Source{}, false
	}
	return c.sources[i], true
}

func (c *Catalog) Yield(id string) (Yield, bool) {
	i, ok := c.yieldIdx[id]
	if !ok {
		return Yield{}, false
	}
	return c.yields[i], true
}

// OriginalYield returns the ID of the yield originally paired with source.
func (c *Catalog) OriginalYield(source string) (string, bool) {
	y, ok := c.origin[source]
	return y, ok
}

// Recipes returns the recipes producing item, in catalog order.
func (c *Catalog) Recipes(item string) []Recipe {
	return c.recipes[item]
}

// CraftedItems returns every item with at least one recipe, sorted.
func (c *Catalog) CraftedItems() []string {
	return sortedKeys(c.recipes)
}

func (c *Catalog) Tag(name string) (Tag, bool) {
	t, ok := c.tags[name]
	return t, ok
}

// AreaIndex returns the rank of the named area.
func (c *Catalog) AreaIndex(name string) (int, bool) {
	i, ok := c.areaIdx[name]
	return i, ok
}

// Rank returns the rank of the area a source is found in.
func (c *Catalog) Rank(s Source) int {
	if s.Area == "" {
		return 0
	}
	return c.areaIdx[s.Area]
}

// Start returns the ID of the reserved start source.
func (c *Catalog) Start() Source {
	return c.sources[c.sourceIdx[c.start]]
}

// HasItem reports whether name is a known item.
func (c *Catalog) HasItem(name string) bool {
	_, ok := c.items[name]
	return ok
}

// Items returns every known item name, sorted.
func (c *Catalog) Items() []string {
	return sortedKeys(c.items)
}

// SlotCriterion turns a recipe slot into the criterion that satisfies it.
func (c *Catalog) SlotCriterion(slot RecipeSlot) Criterion {
	switch s := slot.(type) {
	case ItemSlot:
		return Single{Item: s.Item}
	case TagSlot:
		return AnyOf{Tag: s.Tag, Members: c.tags[s.Tag].Members}
	case AnyOfSlot:
		members := dedupeSorted(s.Items)
		if len(members) == 1 {
			return Single{Item: members[0]}
		}
		return AnyOf{Members: members}
	default:
		panic("catalog: unhandled recipe slot")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
