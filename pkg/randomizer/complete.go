package randomizer

import (
	"fmt"
	"math/rand/v2"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// Complete pairs every remaining source with a remaining yield at random.
// Both sides are sorted by ID before being shuffled independently.
func Complete(cat *catalog.Catalog, asg *Assignment, rng *rand.Rand) error {
	var sources, yields []string
	for _, s := range cat.Sources() {
		if !asg.HasSource(s.ID) {
			sources = append(sources, s.ID)
		}
	}
	for _, y := range cat.Yields() {
		if !asg.HasYield(y.ID) {
			yields = append(yields, y.ID)
		}
	}
	if len(sources) != len(yields) {
		return fmt.Errorf("complete: %d sources left for %d yields: %w", len(sources), len(yields), ErrIncomplete)
	}

	rng.Shuffle(len(sources), func(i, j int) { sources[i], sources[j] = sources[j], sources[i] })
	rng.Shuffle(len(yields), func(i, j int) { yields[i], yields[j] = yields[j], yields[i] })

	for i := range sources {
		if err := asg.Assign(sources[i], yields[i]); err != nil {
			return fmt.Errorf("complete: %w", err)
		}
	}
	return nil
}

// verify checks that asg is a total bijection over the catalog.
func verify(cat *catalog.Catalog, asg *Assignment) error {
	for _, s := range cat.Sources() {
		if !asg.HasSource(s.ID) {
			return fmt.Errorf("source %s unassigned: %w", s.ID, ErrIncomplete)
		}
	}
	for _, y := range cat.Yields() {
		if !asg.HasYield(y.ID) {
			return fmt.Errorf("yield %s unused: %w", y.ID, ErrIncomplete)
		}
	}
	return nil
}
