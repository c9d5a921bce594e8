package combinators

import (
	"errors"
	"fmt"

	"github.com/vic/godetach/pkg/term"
)

var (
	// ErrUnsupportedConstruct marks terms the pass does not handle yet
	// (superpositions, channels reached outside a guarded lambda).
	ErrUnsupportedConstruct = errors.New("unsupported construct")

	// ErrInvariantViolated marks states that well-formed input cannot
	// produce. Hitting one means an upstream precondition was broken.
	ErrInvariantViolated = errors.New("internal invariant violated")

	// errChannelBound aborts an extraction that would have to eliminate a
	// name from inside a channel-guarded lambda. The caller keeps the
	// enclosing lambda native instead.
	errChannelBound = errors.New("name bound through a channel-guarded lambda")
)

// AbstractionError reports where the pass stopped.
type AbstractionError struct {
	Kind error
	Op   string
	Name term.Name
	Term fmt.Stringer
}

func (e *AbstractionError) Error() string {
	if e.Name.None() {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Term)
	}
	return fmt.Sprintf("%s by %s: %v: %s", e.Op, e.Name, e.Kind, e.Term)
}

func (e *AbstractionError) Unwrap() error { return e.Kind }

func unsupported(op string, name term.Name, t fmt.Stringer) error {
	return &AbstractionError{Kind: ErrUnsupportedConstruct, Op: op, Name: name, Term: t}
}

func unreachable(op string, name term.Name, t fmt.Stringer) error {
	return &AbstractionError{Kind: ErrInvariantViolated, Op: op, Name: name, Term: t}
}
