package randomizer

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Assignment is the source -> yield mapping under construction. It stays
// injective: a source or yield is never bound twice.
type Assignment struct {
	bySource map[string]string
	byYield  map[string]string

	// rev changes on every mutation.
	rev uint64
}

func NewAssignment() *Assignment {
	return &Assignment{
		bySource: make(map[string]string),
		byYield:  make(map[string]string),
	}
}

// Assign binds source to yield.
func (a *Assignment) Assign(source, yield string) error {
	if prev, ok := a.bySource[source]; ok {
		return fmt.Errorf("source %s already has yield %s: %w", source, prev, ErrAlreadyAssigned)
	}
	if prev, ok := a.byYield[yield]; ok {
		return fmt.Errorf("yield %s already bound to %s: %w", yield, prev, ErrAlreadyAssigned)
	}
	a.bySource[source] = yield
	a.byYield[yield] = source
	a.rev++
	return nil
}

// release undoes the binding of source. Only the engine uses it, to roll
// back a recipe that could not be completed.
func (a *Assignment) release(source string) {
	if y, ok := a.bySource[source]; ok {
		delete(a.bySource, source)
		delete(a.byYield, y)
		a.rev++
	}
}

func (a *Assignment) YieldOf(source string) (string, bool) {
	y, ok := a.bySource[source]
	return y, ok
}

func (a *Assignment) SourceOf(yield string) (string, bool) {
	s, ok := a.byYield[yield]
	return s, ok
}

func (a *Assignment) HasSource(source string) bool {
	_, ok := a.bySource[source]
	return ok
}

func (a *Assignment) HasYield(yield string) bool {
	_, ok := a.byYield[yield]
	return ok
}

func (a *Assignment) Len() int { return len(a.bySource) }

// rangeYields calls fn for each assigned yield until fn returns false.
func (a *Assignment) rangeYields(fn func(yield string) bool) {
	for y := range a.byYield {
		if !fn(y) {
			return
		}
	}
}

// Table snapshots the assignment sorted by source.
func (a *Assignment) Table() *Table {
	pairs := make([]Pair, 0, len(a.bySource))
	for s, y := range a.bySource {
		pairs = append(pairs, Pair{Source: s, Yield: y})
	}
	t, _ := NewTable(pairs)
	return t
}

// Pair is one row of the output table.
type Pair struct {
	Source string `json:"source"`
	Yield  string `json:"yield"`
}

// Table is the finished, read-only assignment.
type Table struct {
	pairs    []Pair
	bySource map[string]string
}

// NewTable builds a table from pairs, rejecting duplicated sources or yields.
func NewTable(pairs []Pair) (*Table, error) {
	t := &Table{
		pairs:    append([]Pair(nil), pairs...),
		bySource: make(map[string]string, len(pairs)),
	}
	sort.Slice(t.pairs, func(i, j int) bool { return t.pairs[i].Source < t.pairs[j].Source })
	yields := make(map[string]struct{}, len(pairs))
	for _, p := range t.pairs {
		if _, ok := t.bySource[p.Source]; ok {
			return nil, fmt.Errorf("source %s: %w", p.Source, ErrAlreadyAssigned)
		}
		if _, ok := yields[p.Yield]; ok {
			return nil, fmt.Errorf("yield %s: %w", p.Yield, ErrAlreadyAssigned)
		}
		t.bySource[p.Source] = p.Yield
		yields[p.Yield] = struct{}{}
	}
	return t, nil
}

// Pairs returns the rows sorted by source.
func (t *Table) Pairs() []Pair {
	return append([]Pair(nil), t.pairs...)
}

func (t *Table) Yield(source string) (string, bool) {
	y, ok := t.bySource[source]
	return y, ok
}

func (t *Table) Len() int { return len(t.pairs) }

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.pairs)
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var pairs []Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	nt, err := NewTable(pairs)
	if err != nil {
		return err
	}
	*t = *nt
	return nil
}
