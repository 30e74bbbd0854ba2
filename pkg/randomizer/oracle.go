package randomizer

import (
	"fmt"
	"sort"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// Oracle answers whether items can currently be obtained.
//
// An item is obtainable when an assigned yield drops it, or when one of its
// recipes has every slot satisfied by obtainable items. Drop-sets are a pure
// function of the catalog and are memoized per yield. The obtainable set is
// rebuilt from the live assignment whenever the assignment has changed since
// the last query.
type Oracle struct {
	cat     *catalog.Catalog
	asg     *Assignment
	memo    map[string]map[string]struct{}
	crafted []string

	reach    map[string]struct{}
	reachRev uint64
}

func NewOracle(cat *catalog.Catalog, asg *Assignment) *Oracle {
	return &Oracle{
		cat:     cat,
		asg:     asg,
		memo:    make(map[string]map[string]struct{}),
		crafted: cat.CraftedItems(),
	}
}

// Obtainable reports whether item can be dropped or crafted under the
// current assignment.
func (o *Oracle) Obtainable(item string) bool {
	_, ok := o.reachable()[item]
	return ok
}

func (o *Oracle) reachable() map[string]struct{} {
	if o.reach != nil && o.reachRev == o.asg.rev {
		return o.reach
	}
	set := make(map[string]struct{})
	o.asg.rangeYields(func(y string) bool {
		for it := range o.dropSet(y) {
			set[it] = struct{}{}
		}
		return true
	})
	for changed := true; changed; {
		changed = false
		for _, item := range o.crafted {
			if _, ok := set[item]; ok {
				continue
			}
			for _, r := range o.cat.Recipes(item) {
				if o.craftable(r, set) {
					set[item] = struct{}{}
					changed = true
					break
				}
			}
		}
	}
	o.reach, o.reachRev = set, o.asg.rev
	return set
}

func (o *Oracle) craftable(r catalog.Recipe, set map[string]struct{}) bool {
	for _, slot := range r.Slots {
		found := false
		for _, it := range o.cat.SlotCriterion(slot).Items() {
			if _, ok := set[it]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AnyObtainable reports whether at least one of items is obtainable.
func (o *Oracle) AnyObtainable(items []string) bool {
	for _, it := range items {
		if o.Obtainable(it) {
			return true
		}
	}
	return false
}

func (o *Oracle) Satisfied(c catalog.Criterion) bool {
	return o.AnyObtainable(c.Items())
}

// Drops reports whether item is in the drop-set of yield.
func (o *Oracle) Drops(yield, item string) bool {
	_, ok := o.dropSet(yield)[item]
	return ok
}

// DropSet returns the flattened drop-set of yield, sorted.
func (o *Oracle) DropSet(yield string) []string {
	set := o.dropSet(yield)
	out := make([]string, 0, len(set))
	for it := range set {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

func (o *Oracle) dropSet(yield string) map[string]struct{} {
	if set, ok := o.memo[yield]; ok {
		return set
	}
	set := make(map[string]struct{})
	o.flatten(yield, make(map[string]bool), set)
	o.memo[yield] = set
	return set
}

// flatten adds every item reachable from yield to out. A yield already in
// visited contributes nothing, which breaks nested table cycles.
func (o *Oracle) flatten(yield string, visited map[string]bool, out map[string]struct{}) {
	if visited[yield] {
		return
	}
	visited[yield] = true
	if done, ok := o.memo[yield]; ok {
		for it := range done {
			out[it] = struct{}{}
		}
		return
	}
	y, ok := o.cat.Yield(yield)
	if !ok {
		return
	}
	o.collect(y.Rules, visited, out)
}

func (o *Oracle) collect(rules []catalog.DropRule, visited map[string]bool, out map[string]struct{}) {
	for _, rule := range rules {
		switch r := rule.(type) {
		case catalog.ItemDrop:
			out[r.Name] = struct{}{}
		case catalog.Alternatives:
			o.collect(r.Children, visited, out)
		case catalog.NestedTable:
			o.flatten(r.Ref, visited, out)
		default:
			panic(fmt.Sprintf("randomizer: unhandled drop rule %T", rule))
		}
	}
}
