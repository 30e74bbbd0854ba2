package catalog

// DropRule is one entry of a yield table. The set of variants is closed:
// ItemDrop, Alternatives and NestedTable.
type DropRule interface {
	dropRule()
}

// ItemDrop produces a single named item.
type ItemDrop struct {
	Name string
}

// Alternatives produces any one of its children.
type Alternatives struct {
	Children []DropRule
}

// NestedTable defers to the rules of another yield.
type NestedTable struct {
	Ref string
}

func (ItemDrop) dropRule()     {}
func (Alternatives) dropRule() {}
func (NestedTable) dropRule()  {}

// Recipe maps a produced item to its requirement slots.
type Recipe struct {
	ID    string
	Item  string
	Slots []RecipeSlot
}

// RecipeSlot is one requirement of a recipe: ItemSlot, TagSlot or AnyOfSlot.
type RecipeSlot interface {
	recipeSlot()
}

type ItemSlot struct {
	Item string
}

type TagSlot struct {
	Tag string
}

// AnyOfSlot lists alternative ingredients inline.
type AnyOfSlot struct {
	Items []string
}

func (ItemSlot) recipeSlot()  {}
func (TagSlot) recipeSlot()   {}
func (AnyOfSlot) recipeSlot() {}

// Criterion is something that has to be obtainable: Single or AnyOf.
type Criterion interface {
	// Items lists the alternatives, one entry for Single.
	Items() []string
	String() string
	criterion()
}

type Single struct {
	Item string
}

// AnyOf is satisfied by any member. Tag is empty for inline alternatives.
type AnyOf struct {
	Tag     string
	Members []string
}

func (s Single) Items() []string { return []string{s.Item} }
func (s Single) String() string  { return s.Item }
func (Single) criterion()        {}

func (a AnyOf) Items() []string { return a.Members }

func (a AnyOf) String() string {
	if a.Tag != "" {
		return "#" + a.Tag
	}
	out := "["
	for i, m := range a.Members {
		if i > 0 {
			out += "|"
		}
		out += m
	}
	return out + "]"
}

func (AnyOf) criterion() {}

// walkRules calls fn for every rule in rules, descending into Alternatives
// but not into nested tables.
func walkRules(rules []DropRule, fn func(DropRule)) {
	for _, r := range rules {
		fn(r)
		if alt, ok := r.(Alternatives); ok {
			walkRules(alt.Children, fn)
		}
	}
}
