package combinators

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vic/godetach/pkg/eval"
	"github.com/vic/godetach/pkg/term"
)

const testFuel = 200000

// assertSameNormalForm normalises both terms over book and compares them up
// to bound names.
func assertSameNormalForm(t *testing.T, book *term.Book, want, got term.Term) {
	t.Helper()
	wantNF, err := eval.Normalize(want, book, testFuel)
	require.NoError(t, err, "normalize %s", term.Format(want, book.Names))
	gotNF, err := eval.Normalize(got, book, testFuel)
	require.NoError(t, err, "normalize %s", term.Format(got, book.Names))
	require.True(t, eval.AlphaEqual(wantNF, gotNF),
		"normal forms differ:\n  want: %s\n  got:  %s\n  from: %s",
		term.Format(wantNF, book.Names), term.Format(gotNF, book.Names), term.Format(got, book.Names))
}

// termGen builds random channel-free terms with unique binders. Redexes
// take first-order arguments, and lambdas bound by let or dup only pass
// their parameter as a final argument, so every generated term reaches a
// normal form.
type termGen struct {
	r    *rand.Rand
	next int
}

var freeNames = []term.Name{"f", "g", "h", "a"}

func (g *termGen) fresh() term.Name {
	g.next++
	return term.Name(fmt.Sprintf("v%d", g.next))
}

func (g *termGen) maybeFresh() term.Name {
	if g.r.IntN(4) == 0 {
		return ""
	}
	return g.fresh()
}

func (g *termGen) atom(scope []term.Name) term.Term {
	if len(scope) > 0 && g.r.IntN(3) != 0 {
		return term.Var{Name: scope[g.r.IntN(len(scope))]}
	}
	return term.Var{Name: freeNames[g.r.IntN(len(freeNames))]}
}

// firstOrder builds an application spine over variables.
func (g *termGen) firstOrder(scope []term.Name, depth int) term.Term {
	if depth <= 0 || g.r.IntN(3) == 0 {
		return g.atom(scope)
	}
	return term.App{Fun: g.firstOrder(scope, depth-1), Arg: g.firstOrder(scope, depth-1)}
}

// passOn builds z: F z with F first-order over scope.
func (g *termGen) passOn(scope []term.Name) term.Lam {
	z := g.fresh()
	return term.Lam{Name: z, Body: term.App{Fun: g.firstOrder(scope, 2), Arg: term.Var{Name: z}}}
}

func with(scope []term.Name, names ...term.Name) []term.Name {
	out := append([]term.Name{}, scope...)
	for _, n := range names {
		if !n.None() {
			out = append(out, n)
		}
	}
	return out
}

func (g *termGen) body(scope []term.Name, depth int) term.Term {
	if depth <= 0 {
		return g.firstOrder(scope, 2)
	}
	switch g.r.IntN(9) {
	case 0:
		return g.firstOrder(scope, 3)
	case 1:
		return term.App{Fun: g.firstOrder(scope, 2), Arg: g.body(scope, depth-1)}
	case 2:
		n := g.maybeFresh()
		return term.Lam{Name: n, Body: g.body(with(scope, n), depth-1)}
	case 3:
		n := g.fresh()
		return term.Let{Name: n, Val: g.firstOrder(scope, 2), Next: g.body(with(scope, n), depth-1)}
	case 4:
		a, b := g.maybeFresh(), g.maybeFresh()
		return term.Dup{Fst: a, Snd: b, Val: g.firstOrder(scope, 2), Next: g.body(with(scope, a, b), depth-1)}
	case 5:
		y := g.fresh()
		return term.App{
			Fun: term.Lam{Name: y, Body: g.body(with(scope, y), depth-1)},
			Arg: g.firstOrder(scope, 2),
		}
	case 6:
		n := g.fresh()
		return term.Let{Name: n, Val: g.passOn(scope), Next: g.body(with(scope, n), depth-1)}
	case 7:
		a, b := g.maybeFresh(), g.maybeFresh()
		return term.Dup{Fst: a, Snd: b, Val: g.passOn(scope), Next: g.body(with(scope, a, b), depth-1)}
	default:
		return term.App{
			Fun: term.App{Fun: g.atom(scope), Arg: g.body(scope, depth-1)},
			Arg: g.body(scope, depth-1),
		}
	}
}

func (g *termGen) lambda() term.Lam {
	x := g.fresh()
	return term.Lam{Name: x, Body: g.body([]term.Name{x}, 4)}
}

func TestAbstractLambdaPreservesMeaning(t *testing.T) {
	gen := &termGen{r: rand.New(rand.NewPCG(1, 2))}
	book := combinatorBook()
	arg := term.Var{Name: "arg"}

	for i := 0; i < 300; i++ {
		lam := gen.lambda()
		got, err := AbstractLambda(lam, book.Names)
		require.NoError(t, err, "abstract %s", lam)
		assertSameNormalForm(t, book, term.App{Fun: lam, Arg: arg}, term.App{Fun: got, Arg: arg})
	}
}

func TestPassPreservesMeaning(t *testing.T) {
	gen := &termGen{r: rand.New(rand.NewPCG(3, 4))}
	book := combinatorBook()
	pass := NewPass(WithDebug(true))
	arg := term.Var{Name: "arg"}

	for i := 0; i < 300; i++ {
		lam := gen.lambda()
		wrapped := term.App{Fun: term.Var{Name: "f"}, Arg: lam}
		for _, in := range []term.Term{lam, wrapped} {
			got, err := pass.AbstractLambdas(in, book.Names)
			require.NoError(t, err, "detach %s", in)
			assertSameNormalForm(t, book, term.App{Fun: in, Arg: arg}, term.App{Fun: got, Arg: arg})
		}
	}
}
