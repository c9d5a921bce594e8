// Package combinators removes named lambdas from rule bodies by bracket
// abstraction, rewriting them into applications of eight global combinator
// definitions.
//
// Bound names in the processed book must already be unique; the pass does
// no renaming and produces wrong terms when two binders share a name.
package combinators

import (
	"fmt"

	"github.com/vic/godetach/pkg/term"
)

// Combinator is one of the eight primitive combinators.
type Combinator uint8

const (
	K Combinator = iota
	I
	B
	C
	S
	BPrime
	CPrime
	SPrime

	numCombinators = iota
)

// All lists the combinators in registration order.
var All = []Combinator{K, I, B, BPrime, C, CPrime, S, SPrime}

func (c Combinator) String() string {
	switch c {
	case K:
		return "K"
	case I:
		return "I"
	case B:
		return "B"
	case C:
		return "C"
	case S:
		return "S"
	case BPrime:
		return "B'"
	case CPrime:
		return "C'"
	case SPrime:
		return "S'"
	default:
		return fmt.Sprintf("Combinator(%d)", uint8(c))
	}
}

// DefName is the name the combinator's definition is registered under.
func (c Combinator) DefName() term.Name {
	switch c {
	case BPrime:
		return "_B_"
	case CPrime:
		return "_C_"
	case SPrime:
		return "_S_"
	default:
		return term.Name("_" + c.String())
	}
}

// AbsTerm is the intermediate algebra built while a binder is eliminated:
// an opaque Term leaf, a Combinator leaf, or an application.
type AbsTerm interface {
	String() string
	absTerm()
}

// Wrap holds a term that is final; its interior is not abstracted further.
type Wrap struct {
	Term term.Term
}

// AbsApp applies Fun to Arg.
type AbsApp struct {
	Fun AbsTerm
	Arg AbsTerm
}

func (Wrap) absTerm()       {}
func (AbsApp) absTerm()     {}
func (Combinator) absTerm() {}

func (w Wrap) String() string { return w.Term.String() }

func (a AbsApp) String() string {
	return fmt.Sprintf("(%s %s)", a.Fun, a.Arg)
}

// Format renders a with references resolved through names.
func Format(a AbsTerm, names *term.DefNames) string {
	switch a := a.(type) {
	case Wrap:
		return term.Format(a.Term, names)
	case AbsApp:
		return fmt.Sprintf("(%s %s)", Format(a.Fun, names), Format(a.Arg, names))
	default:
		return a.String()
	}
}

// Call left-folds args onto the combinator: Call(C, a, b, c) is ((C a) b) c.
func Call(c Combinator, args ...AbsTerm) AbsTerm {
	var acc AbsTerm = c
	for _, a := range args {
		acc = AbsApp{Fun: acc, Arg: a}
	}
	return acc
}

func wrap(t term.Term) AbsTerm { return Wrap{Term: t} }

// absOccurs reports whether name occurs free in a.
func absOccurs(a AbsTerm, name term.Name) bool {
	switch a := a.(type) {
	case Wrap:
		return Occurs(a.Term, name)
	case AbsApp:
		return absOccurs(a.Fun, name) || absOccurs(a.Arg, name)
	default:
		return false
	}
}
