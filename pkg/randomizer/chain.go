package randomizer

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// Chain is the closed loop of self-dropping sources built before anything
// else. Members[0] is the start source; breaking Members[i] drops the item
// of Members[i+1], and the last member drops the start item.
type Chain struct {
	Members []string
}

func (c Chain) Len() int { return len(c.Members) }

// eligibleChainSources returns ordinary, unreserved, unassigned sources whose
// original yield drops their own item, sorted by ID.
func eligibleChainSources(cat *catalog.Catalog, oracle *Oracle, asg *Assignment) []catalog.Source {
	var out []catalog.Source
	for _, s := range cat.Sources() {
		if s.Kind != catalog.KindOrdinary || s.Reserved || s.Item == "" || asg.HasSource(s.ID) {
			continue
		}
		y, ok := cat.OriginalYield(s.ID)
		if !ok || asg.HasYield(y) {
			continue
		}
		if oracle.Drops(y, s.Item) {
			out = append(out, s)
		}
	}
	return out
}

// BuildChain wires the start source into a cycle with every eligible
// self-dropping source. With no eligible source nothing is assigned and the
// start source is left to Engine.SeedStart.
func BuildChain(cat *catalog.Catalog, oracle *Oracle, asg *Assignment, rng *rand.Rand, log *slog.Logger) (Chain, error) {
	start := cat.Start()
	startYield, _ := cat.OriginalYield(start.ID)
	if asg.HasSource(start.ID) || asg.HasYield(startYield) {
		return Chain{}, fmt.Errorf("start source %s: %w", start.ID, ErrAlreadyAssigned)
	}

	members := eligibleChainSources(cat, oracle, asg)
	if len(members) == 0 {
		log.Info("no self-dropping sources, chain skipped", "start", start.ID)
		return Chain{}, nil
	}
	if start.Item == "" || !oracle.Drops(startYield, start.Item) {
		log.Warn("start source does not drop itself, chain will not close on its item", "start", start.ID)
	}

	rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

	chain := Chain{Members: make([]string, 0, len(members)+1)}
	chain.Members = append(chain.Members, start.ID)
	prev := start.ID
	for _, m := range members {
		y, _ := cat.OriginalYield(m.ID)
		if err := asg.Assign(prev, y); err != nil {
			return Chain{}, fmt.Errorf("chain link %s: %w", prev, err)
		}
		chain.Members = append(chain.Members, m.ID)
		prev = m.ID
	}
	if err := asg.Assign(prev, startYield); err != nil {
		return Chain{}, fmt.Errorf("close chain at %s: %w", prev, err)
	}

	log.Info("chain built", "start", start.ID, "length", chain.Len())
	return chain, nil
}
