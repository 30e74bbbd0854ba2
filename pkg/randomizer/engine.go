package randomizer

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// Engine assigns yields to sources so that each area's criteria become
// obtainable before the area is considered unlocked.
//
// Pools of eligible sources and candidate yields are rebuilt and shuffled
// once per area and consumed from the front. Every binding is journaled so a
// recipe that fails halfway can be rolled back before the next one is tried.
type Engine struct {
	cat       *catalog.Catalog
	oracle    *Oracle
	asg       *Assignment
	rng       *rand.Rand
	log       *slog.Logger
	relaxed   bool
	noSpecial bool

	startYield string
	journal    []string

	rank     int
	areaName string
	next     int
	sources  []string
	yields   []string
	prepared bool
}

func NewEngine(cat *catalog.Catalog, oracle *Oracle, asg *Assignment, rng *rand.Rand, log *slog.Logger) *Engine {
	startYield, _ := cat.OriginalYield(cat.Start().ID)
	return &Engine{
		cat:        cat,
		oracle:     oracle,
		asg:        asg,
		rng:        rng,
		log:        log,
		startYield: startYield,
	}
}

// SetRelaxed makes Grant log unsatisfiable criteria and keep going instead
// of stopping at the first one.
func (e *Engine) SetRelaxed(relaxed bool) { e.relaxed = relaxed }

// SetSpecialKeyItems controls whether special sources (mobs, chests,
// gameplay events) may be given the yields that carry criteria items. When
// disallowed only ordinary sources are drawn from the pool; special sources
// still receive yields during completion.
func (e *Engine) SetSpecialKeyItems(allow bool) { e.noSpecial = !allow }

// Grant makes every criterion of area obtainable. Areas must be granted in
// ascending order.
func (e *Engine) Grant(area string) error {
	rank, ok := e.cat.AreaIndex(area)
	if !ok {
		return fmt.Errorf("grant: unknown area %q", area)
	}
	if rank < e.next {
		return fmt.Errorf("grant %s: area already passed (next is %d)", area, e.next)
	}
	e.next = rank + 1
	e.prepare(rank, area)

	def := e.cat.Areas()[rank]
	var failures []error
	for _, c := range def.Criteria {
		res := newResolving()
		if err := e.satisfy(c, res); err != nil {
			uerr := e.unsatisfiable(err)
			if !e.relaxed {
				return uerr
			}
			e.log.Warn("criterion left unreachable", "area", area, "criterion", c.String(), "error", uerr)
			failures = append(failures, uerr)
			continue
		}
		e.log.Debug("criterion satisfied", "area", area, "criterion", c.String())
	}
	e.log.Info("area granted", "area", area, "rank", rank, "assigned", e.asg.Len())
	return errors.Join(failures...)
}

// AddItem makes a single item obtainable using the pools of area.
func (e *Engine) AddItem(area, item string) error {
	rank, ok := e.cat.AreaIndex(area)
	if !ok {
		return fmt.Errorf("add item: unknown area %q", area)
	}
	if !e.prepared || e.rank != rank {
		e.prepare(rank, area)
	}
	if err := e.addItem(item, newResolving()); err != nil {
		return e.unsatisfiable(err)
	}
	return nil
}

// SeedStart gives the start source a yield that drops the start item. It is
// used when no chain could be built.
func (e *Engine) SeedStart() error {
	start := e.cat.Start()
	if e.asg.HasSource(start.ID) {
		return nil
	}
	first := e.cat.Areas()[0].Name

	var candidates []string
	if start.Item != "" {
		for _, y := range e.cat.Yields() {
			if !e.asg.HasYield(y.ID) && e.oracle.Drops(y.ID, start.Item) {
				candidates = append(candidates, y.ID)
			}
		}
	}
	if len(candidates) == 0 {
		return &UnsatisfiableError{Item: start.Item, Area: first, Path: []string{start.Item}, Cause: ErrNoCandidate}
	}
	y := candidates[e.rng.IntN(len(candidates))]
	if err := e.asg.Assign(start.ID, y); err != nil {
		return fmt.Errorf("seed start: %w", err)
	}
	e.log.Info("start source seeded", "start", start.ID, "yield", y)
	return nil
}

func (e *Engine) unsatisfiable(err error) error {
	var re *resolveError
	if !errors.As(err, &re) {
		return fmt.Errorf("area %s: %w", e.areaName, err)
	}
	return &UnsatisfiableError{Item: re.path[0], Area: e.areaName, Path: re.path, Cause: re.cause}
}

// prepare rebuilds and shuffles the pools for the given area.
func (e *Engine) prepare(rank int, area string) {
	e.rank, e.areaName, e.prepared = rank, area, true

	e.sources = e.sources[:0]
	for _, s := range e.cat.Sources() {
		if s.Reserved || e.asg.HasSource(s.ID) || e.cat.Rank(s) > rank {
			continue
		}
		if e.noSpecial && s.Kind == catalog.KindSpecial {
			continue
		}
		e.sources = append(e.sources, s.ID)
	}
	e.yields = e.yields[:0]
	for _, y := range e.cat.Yields() {
		if y.ID == e.startYield || e.asg.HasYield(y.ID) {
			continue
		}
		e.yields = append(e.yields, y.ID)
	}
	e.rng.Shuffle(len(e.sources), func(i, j int) { e.sources[i], e.sources[j] = e.sources[j], e.sources[i] })
	e.rng.Shuffle(len(e.yields), func(i, j int) { e.yields[i], e.yields[j] = e.yields[j], e.yields[i] })
	e.log.Debug("pools prepared", "area", area, "sources", len(e.sources), "yields", len(e.yields))
}

func (e *Engine) hasSource() bool {
	for _, s := range e.sources {
		if !e.asg.HasSource(s) {
			return true
		}
	}
	return false
}

func (e *Engine) takeSource() (string, bool) {
	for len(e.sources) > 0 {
		s := e.sources[0]
		e.sources = e.sources[1:]
		if !e.asg.HasSource(s) {
			return s, true
		}
	}
	return "", false
}

func (e *Engine) candidateIndex(item string) int {
	for i, y := range e.yields {
		if !e.asg.HasYield(y) && e.oracle.Drops(y, item) {
			return i
		}
	}
	return -1
}

// takeCandidate returns the first unassigned yield dropping item. Yields stay
// in the pool once bound; candidateIndex skips them while they are assigned
// and offers them again after a rollback.
func (e *Engine) takeCandidate(item string) (string, bool) {
	i := e.candidateIndex(item)
	if i < 0 {
		return "", false
	}
	return e.yields[i], true
}

// mark is a point in the journal to roll back to.
type mark struct {
	journal int
	sources []string
}

func (e *Engine) checkpoint() mark {
	return mark{journal: len(e.journal), sources: e.sources}
}

// rollback releases every binding made since m and puts their sources back
// at the front of the pool in their original order.
func (e *Engine) rollback(m mark) {
	for i := len(e.journal) - 1; i >= m.journal; i-- {
		e.asg.release(e.journal[i])
	}
	e.journal = e.journal[:m.journal]
	e.sources = m.sources
}

// satisfy resolves one criterion: skip if any member is obtainable,
// otherwise pick a member at random among those that can be resolved. A
// member that still fails leaves nothing assigned, and the next one is
// drawn from the rest.
func (e *Engine) satisfy(c catalog.Criterion, res *resolving) error {
	items := c.Items()
	if len(items) == 0 {
		return failure(c.String(), ErrNoCandidate)
	}
	if e.oracle.AnyObtainable(items) {
		return nil
	}
	if len(items) == 1 {
		return e.addItem(items[0], res)
	}

	p := newProber(e, res)
	var viable []string
	var firstErr error
	for _, it := range items {
		if _, err := p.item(it); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		viable = append(viable, it)
	}
	for len(viable) > 0 {
		i := e.rng.IntN(len(viable))
		err := e.addItem(viable[i], res)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		viable = append(viable[:i], viable[i+1:]...)
	}
	return via(c.String(), firstErr)
}

// addItem binds a candidate yield dropping item to an eligible source, or
// falls back to the recipes for item in catalog order. On failure every
// binding made on the way is rolled back.
func (e *Engine) addItem(item string, res *resolving) error {
	if e.oracle.Obtainable(item) {
		return nil
	}
	if res.has(item) {
		return failure(item, ErrRecipeCycle)
	}
	candidate := e.candidateIndex(item) >= 0
	if candidate && e.hasSource() {
		y, _ := e.takeCandidate(item)
		s, _ := e.takeSource()
		if err := e.asg.Assign(s, y); err != nil {
			return via(item, err)
		}
		e.journal = append(e.journal, s)
		e.log.Debug("assigned", "source", s, "yield", y, "item", item, "area", e.areaName)
		return nil
	}

	recipes := e.cat.Recipes(item)
	if len(recipes) == 0 {
		return failure(item, missing(candidate))
	}
	res.push(item)
	defer res.pop(item)

	var firstErr error
	for _, r := range recipes {
		if _, err := newProber(e, res).recipe(r); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.log.Debug("resolving via recipe", "item", item, "recipe", r.ID)
		m := e.checkpoint()
		err := e.useRecipe(r, res)
		if err == nil {
			return nil
		}
		e.rollback(m)
		e.log.Debug("recipe rolled back", "item", item, "recipe", r.ID, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return via(item, firstErr)
}

func (e *Engine) useRecipe(r catalog.Recipe, res *resolving) error {
	for _, slot := range r.Slots {
		if err := e.satisfy(e.cat.SlotCriterion(slot), res); err != nil {
			return err
		}
	}
	return nil
}

// missing is the cause reported for an item with no usable recipe.
func missing(candidate bool) error {
	if candidate {
		return ErrPoolExhausted
	}
	return ErrNoCandidate
}

// resolving is the set of items currently being resolved through recipes.
type resolving struct {
	items map[string]bool
}

func newResolving() *resolving {
	return &resolving{items: make(map[string]bool)}
}

func (r *resolving) has(item string) bool { return r.items[item] }
func (r *resolving) push(item string)     { r.items[item] = true }
func (r *resolving) pop(item string)      { delete(r.items, item) }

// prober checks, without mutating anything, whether an item could be
// resolved from the current state. Results that did not depend on the
// resolving set are memoized for the lifetime of the prober.
type prober struct {
	e    *Engine
	res  *resolving
	memo map[string]error
}

func newProber(e *Engine, res *resolving) *prober {
	return &prober{e: e, res: res, memo: make(map[string]error)}
}

// item returns a nil error when item is resolvable. contextual reports
// whether the answer depended on the resolving set.
func (p *prober) item(item string) (contextual bool, err error) {
	if p.e.oracle.Obtainable(item) {
		return false, nil
	}
	if p.res.has(item) {
		return true, failure(item, ErrRecipeCycle)
	}
	if err, ok := p.memo[item]; ok {
		return false, err
	}
	candidate := p.e.candidateIndex(item) >= 0
	if candidate && p.e.hasSource() {
		p.memo[item] = nil
		return false, nil
	}
	recipes := p.e.cat.Recipes(item)
	if len(recipes) == 0 {
		err = failure(item, missing(candidate))
		p.memo[item] = err
		return false, err
	}

	p.res.push(item)
	defer p.res.pop(item)

	for _, r := range recipes {
		ctx, rerr := p.recipe(r)
		if rerr == nil {
			if !ctx {
				p.memo[item] = nil
			}
			return ctx, nil
		}
		contextual = contextual || ctx
		if err == nil {
			err = via(item, rerr)
		}
	}
	if !contextual {
		p.memo[item] = err
	}
	return contextual, err
}

func (p *prober) recipe(r catalog.Recipe) (contextual bool, err error) {
	for _, slot := range r.Slots {
		c := p.e.cat.SlotCriterion(slot)
		items := c.Items()
		if p.e.oracle.AnyObtainable(items) {
			continue
		}
		ok := false
		slotCtx := false
		var firstErr error
		for _, it := range items {
			ctx, err := p.item(it)
			if err == nil {
				ok = true
				contextual = contextual || ctx
				break
			}
			slotCtx = slotCtx || ctx
			if firstErr == nil {
				firstErr = err
			}
		}
		if !ok {
			if firstErr == nil {
				firstErr = failure(c.String(), ErrNoCandidate)
			}
			return slotCtx, firstErr
		}
	}
	return contextual, nil
}
