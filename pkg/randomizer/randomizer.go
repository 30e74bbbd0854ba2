// Package randomizer builds a progression-safe bijection between the
// sources of a catalog and its yields.
//
// A run is strictly sequential and owns its assignment and random stream.
// The stream is consumed in a fixed order: chain shuffle, then the start
// yield pick when no chain could be built, then for each area the source
// pool shuffle, the yield pool shuffle and the per-criterion alternative
// picks (one more pick each time a picked alternative fails and another is
// tried), then the completion shuffles of sources and yields. The same
// catalog and seed therefore always produce the same table.
package randomizer

import (
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// pcgStream is the fixed second PCG word; only the seed varies between runs.
const pcgStream = 0x6c6f6f745f726e64

// State is what a Mode works on during a single run.
type State struct {
	Catalog    *catalog.Catalog
	Assignment *Assignment
	Oracle     *Oracle
	Rand       *rand.Rand
	Log        *slog.Logger
	Relaxed    bool

	// SpecialKeyItems lets special sources receive criteria yields.
	SpecialKeyItems bool
}

// Randomizer runs one mode over a catalog with a seed.
type Randomizer struct {
	cat     *catalog.Catalog
	seed    int64
	mode    string
	relaxed bool
	special bool
	log     *slog.Logger
}

type Option func(*Randomizer)

func WithLogger(log *slog.Logger) Option {
	return func(r *Randomizer) {
		if log != nil {
			r.log = log
		}
	}
}

// WithRelaxed keeps going when a criterion cannot be satisfied. The run then
// returns its table together with an error wrapping ErrRelaxedFailures.
func WithRelaxed(relaxed bool) Option {
	return func(r *Randomizer) { r.relaxed = relaxed }
}

// WithSpecialKeyItems controls whether mobs, chests and other special
// sources may be chosen to drop the items areas require. It is allowed by
// default.
func WithSpecialKeyItems(allow bool) Option {
	return func(r *Randomizer) { r.special = allow }
}

// WithMode selects a registered mode. The default is ModeProgression.
func WithMode(name string) Option {
	return func(r *Randomizer) {
		if name != "" {
			r.mode = name
		}
	}
}

func New(cat *catalog.Catalog, seed int64, opts ...Option) *Randomizer {
	r := &Randomizer{
		cat:     cat,
		seed:    seed,
		mode:    ModeProgression,
		special: true,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRand returns the random stream used for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), pcgStream))
}

// Run produces the complete assignment. On a strict failure no table is
// returned.
func (r *Randomizer) Run() (*Table, error) {
	mode, err := Lookup(r.mode)
	if err != nil {
		return nil, err
	}

	asg := NewAssignment()
	st := &State{
		Catalog:    r.cat,
		Assignment: asg,
		Oracle:     NewOracle(r.cat, asg),
		Rand:       NewRand(r.seed),
		Log:        r.log.With("mode", r.mode, "seed", r.seed),
		Relaxed:    r.relaxed,

		SpecialKeyItems: r.special,
	}

	st.Log.Info("randomizing", "sources", len(r.cat.Sources()), "areas", len(r.cat.Areas()))
	runErr := mode(st)
	if runErr != nil && !errors.Is(runErr, ErrRelaxedFailures) {
		return nil, runErr
	}
	if err := verify(r.cat, asg); err != nil {
		return nil, err
	}
	st.Log.Info("randomized", "pairs", asg.Len())
	return asg.Table(), runErr
}
