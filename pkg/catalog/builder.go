package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TagPrefix marks a tag reference in criteria and tag member lists.
const TagPrefix = "#"

// Builder collects catalog records and validates them eagerly in Build.
type Builder struct {
	sources  []Source
	yields   []Yield
	recipes  []Recipe
	tags     map[string][]string
	tagOrder []string
	areas    []rawArea
	items    map[string]struct{}
	start    string

	problems []error
}

type rawArea struct {
	name     string
	criteria []string
}

func NewBuilder() *Builder {
	return &Builder{
		tags:  make(map[string][]string),
		items: make(map[string]struct{}),
	}
}

func (b *Builder) AddSource(s Source) *Builder {
	b.sources = append(b.sources, s)
	return b
}

func (b *Builder) AddYield(y Yield) *Builder {
	b.yields = append(b.yields, y)
	return b
}

// AddRecipe appends a recipe. Recipes for the same item are tried in the
// order they were added.
func (b *Builder) AddRecipe(r Recipe) *Builder {
	b.recipes = append(b.recipes, r)
	return b
}

// AddTag registers a tag. Members prefixed with "#" reference other tags.
func (b *Builder) AddTag(name string, members ...string) *Builder {
	if _, ok := b.tags[name]; ok {
		b.problems = append(b.problems, &MalformedError{Kind: ProblemDuplicate, Ref: name, Within: "tags"})
		return b
	}
	b.tags[name] = append([]string(nil), members...)
	b.tagOrder = append(b.tagOrder, name)
	return b
}

// AddArea appends the next progression area. Criteria prefixed with "#"
// reference tags.
func (b *Builder) AddArea(name string, criteria ...string) *Builder {
	b.areas = append(b.areas, rawArea{name: name, criteria: append([]string(nil), criteria...)})
	return b
}

// AddItems declares item names that exist even if nothing drops them.
func (b *Builder) AddItems(names ...string) *Builder {
	for _, n := range names {
		b.items[n] = struct{}{}
	}
	return b
}

func (b *Builder) SetStart(id string) *Builder {
	b.start = id
	return b
}

// Build validates everything collected and returns the immutable catalog.
// All problems are reported together, each matching ErrMalformedCatalog.
func (b *Builder) Build() (*Catalog, error) {
	problems := append([]error(nil), b.problems...)
	report := func(kind, ref, within, suggestion string) {
		problems = append(problems, &MalformedError{Kind: kind, Ref: ref, Within: within, Suggestion: suggestion})
	}

	c := &Catalog{
		sourceIdx: make(map[string]int, len(b.sources)),
		yieldIdx:  make(map[string]int, len(b.yields)),
		origin:    make(map[string]string, len(b.yields)),
		recipes:   make(map[string][]Recipe),
		tags:      make(map[string]Tag, len(b.tags)),
		areaIdx:   make(map[string]int, len(b.areas)),
		items:     make(map[string]struct{}, len(b.items)),
	}
	for k := range b.items {
		c.items[k] = struct{}{}
	}

	if len(b.areas) == 0 {
		report(ProblemNoAreas, "", "", "")
	}
	for i, a := range b.areas {
		if _, ok := c.areaIdx[a.name]; ok {
			report(ProblemDuplicate, a.name, "areas", "")
			continue
		}
		c.areaIdx[a.name] = i
	}
	areaNames := make([]string, 0, len(c.areaIdx))
	for name := range c.areaIdx {
		areaNames = append(areaNames, name)
	}
	sort.Strings(areaNames)

	sources := append([]Source(nil), b.sources...)
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	for _, s := range sources {
		if _, ok := c.sourceIdx[s.ID]; ok {
			report(ProblemDuplicate, s.ID, "sources", "")
			continue
		}
		if s.Area != "" {
			if _, ok := c.areaIdx[s.Area]; !ok {
				report(ProblemUnknownArea, s.Area, "source "+s.ID, suggest(s.Area, areaNames))
			}
		}
		s.Reserved = false
		c.sourceIdx[s.ID] = len(c.sources)
		c.sources = append(c.sources, s)
		if s.Item != "" {
			c.items[s.Item] = struct{}{}
		}
	}

	yields := append([]Yield(nil), b.yields...)
	sort.SliceStable(yields, func(i, j int) bool { return yields[i].ID < yields[j].ID })
	for _, y := range yields {
		if _, ok := c.yieldIdx[y.ID]; ok {
			report(ProblemDuplicate, y.ID, "yields", "")
			continue
		}
		c.yieldIdx[y.ID] = len(c.yields)
		c.yields = append(c.yields, y)
		walkRules(y.Rules, func(r DropRule) {
			if d, ok := r.(ItemDrop); ok {
				c.items[d.Name] = struct{}{}
			}
		})
		if y.Origin == "" {
			continue
		}
		if _, ok := c.sourceIdx[y.Origin]; !ok {
			report(ProblemUnknownSource, y.Origin, "yield "+y.ID, "")
			continue
		}
		if prev, ok := c.origin[y.Origin]; ok {
			report(ProblemDuplicate, y.Origin, fmt.Sprintf("origins of yields %s and %s", prev, y.ID), "")
			continue
		}
		c.origin[y.Origin] = y.ID
	}

	yieldNames := make([]string, 0, len(c.yieldIdx))
	for _, y := range c.yields {
		yieldNames = append(yieldNames, y.ID)
	}
	for _, y := range c.yields {
		walkRules(y.Rules, func(r DropRule) {
			if n, ok := r.(NestedTable); ok {
				if _, known := c.yieldIdx[n.Ref]; !known {
					report(ProblemUnknownYield, n.Ref, "yield "+y.ID, suggest(n.Ref, yieldNames))
				}
			}
		})
	}

	tagNames := append([]string(nil), b.tagOrder...)
	sort.Strings(tagNames)
	for _, name := range tagNames {
		members := make(map[string]struct{})
		b.expandTag(name, map[string]bool{}, members, func(ref string) {
			report(ProblemUnknownTag, ref, "tag "+name, suggest(ref, tagNames))
		})
		list := make([]string, 0, len(members))
		for m := range members {
			list = append(list, m)
			c.items[m] = struct{}{}
		}
		sort.Strings(list)
		c.tags[name] = Tag{Name: name, Members: list}
	}

	for _, r := range b.recipes {
		if r.Item == "" {
			report(ProblemUnknownItem, "", "recipe "+r.ID, "")
			continue
		}
		if r.ID == "" {
			r.ID = r.Item
		}
		c.items[r.Item] = struct{}{}
		c.recipes[r.Item] = append(c.recipes[r.Item], r)
	}

	itemNames := sortedNames(c.items)
	checkItem := func(item, within string) {
		if _, ok := c.items[item]; !ok {
			report(ProblemUnknownItem, item, within, suggest(item, itemNames))
		}
	}
	checkTag := func(tag, within string) {
		if _, ok := c.tags[tag]; !ok {
			report(ProblemUnknownTag, tag, within, suggest(tag, tagNames))
		}
	}

	for _, item := range sortedKeys(c.recipes) {
		for _, r := range c.recipes[item] {
			within := "recipe " + r.ID
			for _, slot := range r.Slots {
				switch s := slot.(type) {
				case ItemSlot:
					checkItem(s.Item, within)
				case TagSlot:
					checkTag(s.Tag, within)
				case AnyOfSlot:
					if len(s.Items) == 0 {
						report(ProblemUnknownItem, "", within, "")
					}
					for _, it := range s.Items {
						checkItem(it, within)
					}
				}
			}
		}
	}

	for _, a := range b.areas {
		area := Area{Name: a.name}
		for _, raw := range a.criteria {
			within := "area " + a.name
			if tag, ok := strings.CutPrefix(raw, TagPrefix); ok {
				checkTag(tag, within)
				area.Criteria = append(area.Criteria, AnyOf{Tag: tag, Members: c.tags[tag].Members})
				continue
			}
			checkItem(raw, within)
			area.Criteria = append(area.Criteria, Single{Item: raw})
		}
		c.areas = append(c.areas, area)
	}

	switch {
	case b.start == "":
		report(ProblemMissingStart, "", "", "")
	default:
		i, ok := c.sourceIdx[b.start]
		if !ok {
			names := make([]string, len(c.sources))
			for j, s := range c.sources {
				names[j] = s.ID
			}
			report(ProblemMissingStart, b.start, "", suggest(b.start, names))
			break
		}
		if _, ok := c.origin[b.start]; !ok {
			report(ProblemUnknownYield, "", "start source "+b.start, "")
		}
		c.sources[i].Reserved = true
		c.start = b.start
	}

	if len(c.sources) != len(c.yields) {
		report(ProblemCountMismatch, "", fmt.Sprintf("%d sources, %d yields", len(c.sources), len(c.yields)), "")
	}

	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return c, nil
}

func (b *Builder) expandTag(name string, visiting map[string]bool, out map[string]struct{}, unknown func(string)) {
	if visiting[name] {
		return
	}
	visiting[name] = true
	for _, m := range b.tags[name] {
		ref, isTag := strings.CutPrefix(m, TagPrefix)
		if !isTag {
			out[m] = struct{}{}
			continue
		}
		if _, ok := b.tags[ref]; !ok {
			unknown(ref)
			continue
		}
		b.expandTag(ref, visiting, out, unknown)
	}
}
