package combinators

import "github.com/vic/godetach/pkg/term"

// Body returns the closed lambda that defines c:
//
//	K  = x: y: x
//	I  = x: x
//	B  = x: y: z: x (y z)
//	C  = x: y: z: x z y
//	S  = x: y: z: x z (y z)
//
// and the primed variants, which take a leading d and apply it to the
// function part of the plain body: B' = d: x: y: z: d x (y z), and so on.
func Body(c Combinator) term.Term {
	x, y, z, d := term.Var{Name: "x"}, term.Var{Name: "y"}, term.Var{Name: "z"}, term.Var{Name: "d"}

	switch c {
	case K:
		return term.Lambda(x, "x", "y")
	case I:
		return term.Lambda(x, "x")
	}

	var body term.App
	switch c {
	case B, BPrime:
		body = term.App{Fun: x, Arg: term.App{Fun: y, Arg: z}}
	case C, CPrime:
		body = term.App{Fun: term.App{Fun: x, Arg: z}, Arg: y}
	case S, SPrime:
		body = term.App{Fun: term.App{Fun: x, Arg: z}, Arg: term.App{Fun: y, Arg: z}}
	}

	switch c {
	case BPrime, CPrime, SPrime:
		body = term.App{Fun: term.App{Fun: d, Arg: body.Fun}, Arg: body.Arg}
		return term.Lambda(body, "d", "x", "y", "z")
	default:
		return term.Lambda(body, "x", "y", "z")
	}
}

// RegisterCombinators allocates a fresh definition for each of the eight
// combinators and returns them, in registration order, without appending
// them to book.Defs. Calling it twice yields a second, independent set.
func RegisterCombinators(book *term.Book) []*term.Definition {
	defs := make([]*term.Definition, 0, len(All))
	for _, c := range All {
		defs = append(defs, book.Register(c.DefName(), Body(c)))
	}
	return defs
}
