package combinators

import (
	"errors"
	"fmt"

	"github.com/vic/godetach/pkg/term"
)

// AbstractBy eliminates name from t, returning a combinator expression F
// such that F applied to a value v behaves like t with name bound to v.
//
// abcdef algorithm, Combinatory Logic vol. II, pp. 42-67. Arms are tried in
// order; earlier arms are optimisations of the later general ones.
func AbstractBy(t term.Term, name term.Name) (AbsTerm, error) {
	if lam, ok := t.(term.Lam); ok {
		return abstractLam(lam, name)
	}

	// (a)
	if !Occurs(t, name) {
		return Call(K, wrap(t)), nil
	}

	switch t := t.(type) {
	case term.Var:
		// (b)
		return I, nil
	case term.App:
		return abstractApp(t, name)
	case term.Let:
		return abstractLet(t.Name, t.Val, t.Next, name)
	case term.Dup:
		switch {
		case !t.Fst.None() && !t.Snd.None():
			next := term.Subst(t.Next, t.Snd, term.Var{Name: t.Fst})
			return abstractLet(t.Fst, t.Val, next, name)
		case !t.Fst.None():
			return abstractLet(t.Fst, t.Val, t.Next, name)
		case !t.Snd.None():
			return abstractLet(t.Snd, t.Val, t.Next, name)
		default:
			return AbstractBy(t.Next, name)
		}
	case term.Chn:
		return nil, unsupported("abstract channel", name, t)
	case term.Sup:
		return nil, unsupported("abstract superposition", name, t)
	default:
		return nil, unreachable("abstract", name, t)
	}
}

func abstractLam(lam term.Lam, name term.Name) (AbsTerm, error) {
	if lam.Name.None() {
		// _: b is K b
		return abstractAbsBy(AbsApp{Fun: K, Arg: wrap(lam.Body)}, name)
	}
	if guarded(lam) {
		if Occurs(lam, name) {
			return nil, errChannelBound
		}
		return Call(K, wrap(lam)), nil
	}
	inner, err := AbstractBy(lam.Body, lam.Name)
	if err != nil {
		return nil, err
	}
	return abstractAbsBy(inner, name)
}

// abstractOwn eliminates a lambda's own binder, or keeps a guarded lambda
// as an opaque leaf.
func abstractOwn(lam term.Lam) (AbsTerm, error) {
	if guarded(lam) {
		return wrap(lam), nil
	}
	return AbstractBy(lam.Body, lam.Name)
}

func abstractApp(t term.App, name term.Name) (AbsTerm, error) {
	// (c)
	if term.IsVar(t.Arg, name) && !Occurs(t.Fun, name) {
		return wrap(t.Fun), nil
	}

	if lam, ok := t.Fun.(term.Lam); ok && !lam.Name.None() {
		fun, err := abstractOwn(lam)
		if err != nil {
			return nil, err
		}
		return abstractAbsBy(AbsApp{Fun: fun, Arg: wrap(t.Arg)}, name)
	}
	if lam, ok := t.Arg.(term.Lam); ok && !lam.Name.None() {
		arg, err := abstractOwn(lam)
		if err != nil {
			return nil, err
		}
		return abstractAbsBy(AbsApp{Fun: wrap(t.Fun), Arg: arg}, name)
	}

	if inner, ok := t.Fun.(term.App); ok && !Occurs(inner.Fun, name) {
		return abstractTriple(wrap(inner.Fun), wrap(inner.Arg), wrap(t.Arg), name, t)
	}

	return abstractPair(wrap(t.Fun), wrap(t.Arg), name, t)
}

// abstractTriple handles ((fun arg) arg2) where fun does not mention name,
// using the primed combinators to avoid an extra application node.
func abstractTriple(fun, arg, arg2 AbsTerm, name term.Name, at fmt.Stringer) (AbsTerm, error) {
	inArg, inArg2 := absOccurs(arg, name), absOccurs(arg2, name)
	switch {
	case !inArg && inArg2:
		a2, err := abstractAbsBy(arg2, name)
		if err != nil {
			return nil, err
		}
		return Call(BPrime, fun, arg, a2), nil
	case inArg && !inArg2:
		a, err := abstractAbsBy(arg, name)
		if err != nil {
			return nil, err
		}
		return Call(CPrime, fun, a, arg2), nil
	case inArg && inArg2:
		a, err := abstractAbsBy(arg, name)
		if err != nil {
			return nil, err
		}
		a2, err := abstractAbsBy(arg2, name)
		if err != nil {
			return nil, err
		}
		return Call(SPrime, fun, a, a2), nil
	default:
		return nil, unreachable("abstract triple", name, at)
	}
}

// abstractPair is rules (d), (e) and (f).
func abstractPair(fun, arg AbsTerm, name term.Name, at fmt.Stringer) (AbsTerm, error) {
	inFun, inArg := absOccurs(fun, name), absOccurs(arg, name)
	switch {
	case !inFun && inArg:
		a, err := abstractAbsBy(arg, name)
		if err != nil {
			return nil, err
		}
		return Call(B, fun, a), nil
	case inFun && !inArg:
		f, err := abstractAbsBy(fun, name)
		if err != nil {
			return nil, err
		}
		return Call(C, f, arg), nil
	case inFun && inArg:
		f, err := abstractAbsBy(fun, name)
		if err != nil {
			return nil, err
		}
		a, err := abstractAbsBy(arg, name)
		if err != nil {
			return nil, err
		}
		return Call(S, f, a), nil
	default:
		return nil, unreachable("abstract application", name, at)
	}
}

// abstractLet treats `let bind = val in next` as (bind: next) val. An
// unused binder drops val and abstracts next directly.
func abstractLet(bind term.Name, val, next term.Term, name term.Name) (AbsTerm, error) {
	if !Occurs(next, bind) {
		return AbstractBy(next, name)
	}
	fun, err := AbstractBy(next, bind)
	if err != nil {
		return nil, err
	}
	return abstractAbsBy(AbsApp{Fun: fun, Arg: wrap(val)}, name)
}

// abstractAbsBy re-abstracts a partially built expression.
func abstractAbsBy(a AbsTerm, name term.Name) (AbsTerm, error) {
	switch a := a.(type) {
	case Wrap:
		return AbstractBy(a.Term, name)
	case Combinator:
		return Call(K, a), nil
	case AbsApp:
		// (c)
		if w, ok := a.Arg.(Wrap); ok && term.IsVar(w.Term, name) && !absOccurs(a.Fun, name) {
			return a.Fun, nil
		}
		// (a)
		if !absOccurs(a, name) {
			return Call(K, a), nil
		}
		if inner, ok := a.Fun.(AbsApp); ok && !absOccurs(inner.Fun, name) {
			return abstractTriple(inner.Fun, inner.Arg, a.Arg, name, a)
		}
		return abstractPair(a.Fun, a.Arg, name, a)
	default:
		return nil, unreachable("abstract", name, a)
	}
}

// extraction is the outcome of replacing one lambda.
type extraction struct {
	term      term.Term
	extracted bool
	rewrites  int
	uses      [numCombinators]int
}

// AbstractLambda replaces lam by an equivalent combinator expression over
// the definitions registered in names. A lambda whose binder is guarded by
// a channel is returned unchanged.
func AbstractLambda(lam term.Lam, names *term.DefNames) (term.Term, error) {
	x, err := extract(lam, names)
	if err != nil {
		return nil, err
	}
	return x.term, nil
}

func extract(lam term.Lam, names *term.DefNames) (extraction, error) {
	x := extraction{term: lam}
	var abs AbsTerm
	if lam.Name.None() {
		abs = AbsApp{Fun: K, Arg: wrap(lam.Body)}
	} else {
		if guarded(lam) {
			return x, nil
		}
		var err error
		abs, err = AbstractBy(lam.Body, lam.Name)
		if errors.Is(err, errChannelBound) {
			return x, nil
		}
		if err != nil {
			return x, err
		}
	}

	abs = reduce(abs, &x.rewrites)
	t, err := toTerm(abs, names, &x.uses)
	if err != nil {
		return x, err
	}
	x.term, x.extracted = t, true
	return x, nil
}
