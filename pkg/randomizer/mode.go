package randomizer

import (
	"errors"
	"fmt"
	"sort"
)

// Mode fills the assignment of a run.
type Mode func(st *State) error

var modes = map[string]Mode{}

// Register makes a mode available under name.
func Register(name string, mode Mode) {
	modes[name] = mode
}

// Lookup returns the mode registered under name.
func Lookup(name string) (Mode, error) {
	m, ok := modes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, name)
	}
	return m, nil
}

// Modes returns the registered mode names, sorted.
func Modes() []string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const (
	ModeProgression = "progression"
	ModeNoLogic     = "no_logic"
)

func init() {
	Register(ModeProgression, progression)
	Register(ModeNoLogic, noLogic)
}

// progression builds the chain, grants every area in order and completes
// the bijection.
func progression(st *State) error {
	chain, err := BuildChain(st.Catalog, st.Oracle, st.Assignment, st.Rand, st.Log)
	if err != nil {
		return err
	}

	eng := NewEngine(st.Catalog, st.Oracle, st.Assignment, st.Rand, st.Log)
	eng.SetRelaxed(st.Relaxed)
	eng.SetSpecialKeyItems(st.SpecialKeyItems)

	var failures []error
	if chain.Len() == 0 {
		if err := eng.SeedStart(); err != nil {
			if !st.Relaxed {
				return err
			}
			st.Log.Warn("start source left to completion", "error", err)
			failures = append(failures, err)
		}
	}
	for _, a := range st.Catalog.Areas() {
		if err := eng.Grant(a.Name); err != nil {
			if !st.Relaxed || !errors.Is(err, ErrUnsatisfiable) {
				return err
			}
			failures = append(failures, err)
		}
	}

	if err := Complete(st.Catalog, st.Assignment, st.Rand); err != nil {
		return err
	}
	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", ErrRelaxedFailures, errors.Join(failures...))
	}
	return nil
}

// noLogic only guarantees the chain; everything else is random.
func noLogic(st *State) error {
	if _, err := BuildChain(st.Catalog, st.Oracle, st.Assignment, st.Rand, st.Log); err != nil {
		return err
	}
	return Complete(st.Catalog, st.Assignment, st.Rand)
}
