package combinators

import (
	"fmt"

	"github.com/vic/godetach/pkg/term"
)

// Reduce applies the peephole rewrites bottom-up:
//
//	C' C' I I  => C
//	C' S' I I  => S
//	C' (C I) I => I
//
// Opaque leaves are not entered.
func Reduce(a AbsTerm) AbsTerm {
	var n int
	return reduce(a, &n)
}

func reduce(a AbsTerm, rewrites *int) AbsTerm {
	app, ok := a.(AbsApp)
	if !ok {
		return a
	}
	app = AbsApp{Fun: reduce(app.Fun, rewrites), Arg: reduce(app.Arg, rewrites)}

	if head, args := spine(app); head == CPrime {
		switch {
		case len(args) == 3 && args[1] == I && args[2] == I:
			switch args[0] {
			case CPrime:
				*rewrites++
				return C
			case SPrime:
				*rewrites++
				return S
			}
		case len(args) == 2 && args[1] == I && isCallOf(args[0], C, I):
			*rewrites++
			return I
		}
	}
	return app
}

// spine splits a left-nested application into its head and arguments.
func spine(a AbsTerm) (AbsTerm, []AbsTerm) {
	var args []AbsTerm
	for {
		app, ok := a.(AbsApp)
		if !ok {
			break
		}
		args = append(args, app.Arg)
		a = app.Fun
	}
	for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
		args[i], args[j] = args[j], args[i]
	}
	return a, args
}

// isCallOf reports whether a is exactly the combinator head applied to args.
func isCallOf(a AbsTerm, head Combinator, args ...Combinator) bool {
	h, got := spine(a)
	if h != head || len(got) != len(args) {
		return false
	}
	for i := range args {
		if got[i] != args[i] {
			return false
		}
	}
	return true
}

// ToTerm lowers a to a term, replacing every combinator leaf by a
// reference to its registered definition.
func ToTerm(a AbsTerm, names *term.DefNames) (term.Term, error) {
	return toTerm(a, names, nil)
}

func toTerm(a AbsTerm, names *term.DefNames, uses *[numCombinators]int) (term.Term, error) {
	switch a := a.(type) {
	case Wrap:
		return a.Term, nil
	case Combinator:
		id, ok := names.ID(a.DefName())
		if !ok {
			return nil, &AbstractionError{
				Kind: ErrInvariantViolated,
				Op:   fmt.Sprintf("lower: combinator %s is not registered", a.DefName()),
				Term: a,
			}
		}
		if uses != nil {
			uses[a]++
		}
		return term.Ref{DefID: id}, nil
	case AbsApp:
		fun, err := toTerm(a.Fun, names, uses)
		if err != nil {
			return nil, err
		}
		arg, err := toTerm(a.Arg, names, uses)
		if err != nil {
			return nil, err
		}
		return term.App{Fun: fun, Arg: arg}, nil
	default:
		return nil, unreachable("lower", "", a)
	}
}
