package randomizer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsatisfiable matches every *UnsatisfiableError.
	ErrUnsatisfiable = errors.New("unsatisfiable constraint")

	ErrNoCandidate   = errors.New("no candidate yield and no recipe")
	ErrRecipeCycle   = errors.New("recipe cycle")
	ErrPoolExhausted = errors.New("pool exhausted")

	ErrAlreadyAssigned = errors.New("already assigned")
	ErrIncomplete      = errors.New("assignment is not a total bijection")
	ErrUnknownMode     = errors.New("unknown randomizer mode")

	// ErrRelaxedFailures wraps the criteria a relaxed run left unreachable.
	ErrRelaxedFailures = errors.New("relaxed run left criteria unreachable")
)

// UnsatisfiableError reports a progression-critical item that could not be
// made obtainable. Path is the resolution chain that failed, starting at Item.
type UnsatisfiableError struct {
	Item  string
	Area  string
	Path  []string
	Cause error
}

func (e *UnsatisfiableError) Error() string {
	msg := fmt.Sprintf("unsatisfiable constraint: item %q in area %q", e.Item, e.Area)
	if len(e.Path) > 1 {
		msg += " via " + strings.Join(e.Path, " -> ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnsatisfiableError) Is(target error) bool {
	return target == ErrUnsatisfiable
}

func (e *UnsatisfiableError) Unwrap() error { return e.Cause }

// resolveError is the internal failure of one resolution path.
type resolveError struct {
	path  []string
	cause error
}

func (e *resolveError) Error() string {
	return strings.Join(e.path, " -> ") + ": " + e.cause.Error()
}

func (e *resolveError) Unwrap() error { return e.cause }

func failure(item string, cause error) *resolveError {
	return &resolveError{path: []string{item}, cause: cause}
}

// via prefixes item to the path of err.
func via(item string, err error) error {
	var re *resolveError
	if !errors.As(err, &re) {
		return &resolveError{path: []string{item}, cause: err}
	}
	return &resolveError{path: append([]string{item}, re.path...), cause: re.cause}
}
