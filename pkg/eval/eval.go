// Package eval normalises terms by normal-order reduction. It is the
// reference semantics the combinator pass is checked against: a term and
// its detached form must reach the same βη-normal form.
package eval

import (
	"errors"
	"fmt"

	"github.com/vic/godetach/pkg/term"
)

var (
	ErrFuelExhausted = errors.New("eval: fuel exhausted")
	ErrUnsupported   = errors.New("eval: unsupported term")
)

// Machine reduces terms over the definitions of a book.
type Machine struct {
	book  *term.Book
	defs  map[term.DefID]term.Term
	fuel  int
	steps int
	fresh int
}

func NewMachine(book *term.Book, fuel int) *Machine {
	m := &Machine{book: book, fuel: fuel, defs: make(map[term.DefID]term.Term)}
	if book != nil {
		for _, def := range book.Defs {
			if len(def.Rules) == 1 && len(def.Rules[0].Pats) == 0 {
				m.defs[def.DefID] = def.Rules[0].Body
			}
		}
	}
	return m
}

// Steps returns the number of β and unfolding steps taken so far.
func (m *Machine) Steps() int { return m.steps }

// Normalize returns the βη-normal form of t, unfolding references. Let and
// dup are read as applications; channels, links and superpositions are
// rejected.
func Normalize(t term.Term, book *term.Book, fuel int) (term.Term, error) {
	return NewMachine(book, fuel).Normalize(t)
}

func (m *Machine) Normalize(t term.Term) (term.Term, error) {
	core, err := desugar(t)
	if err != nil {
		return nil, err
	}
	nf, err := m.normalize(core)
	if err != nil {
		return nil, err
	}
	return EtaReduce(nf), nil
}

// desugar rewrites let and dup into applications.
func desugar(t term.Term) (term.Term, error) {
	switch t := t.(type) {
	case term.Var, term.Ref, term.Era:
		return t, nil
	case term.Lam:
		body, err := desugar(t.Body)
		if err != nil {
			return nil, err
		}
		return term.Lam{Name: t.Name, Body: body}, nil
	case term.App:
		fun, err := desugar(t.Fun)
		if err != nil {
			return nil, err
		}
		arg, err := desugar(t.Arg)
		if err != nil {
			return nil, err
		}
		return term.App{Fun: fun, Arg: arg}, nil
	case term.Let:
		val, err := desugar(t.Val)
		if err != nil {
			return nil, err
		}
		next, err := desugar(t.Next)
		if err != nil {
			return nil, err
		}
		return term.App{Fun: term.Lam{Name: t.Name, Body: next}, Arg: val}, nil
	case term.Dup:
		val, err := desugar(t.Val)
		if err != nil {
			return nil, err
		}
		next, err := desugar(t.Next)
		if err != nil {
			return nil, err
		}
		switch {
		case !t.Fst.None() && !t.Snd.None():
			// dup a b = v in n  =>  (a: (b: n) a) v
			inner := term.App{Fun: term.Lam{Name: t.Snd, Body: next}, Arg: term.Var{Name: t.Fst}}
			return term.App{Fun: term.Lam{Name: t.Fst, Body: inner}, Arg: val}, nil
		case !t.Fst.None():
			return term.App{Fun: term.Lam{Name: t.Fst, Body: next}, Arg: val}, nil
		case !t.Snd.None():
			return term.App{Fun: term.Lam{Name: t.Snd, Body: next}, Arg: val}, nil
		default:
			return next, nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
}

func (m *Machine) tick() error {
	m.steps++
	if m.fuel > 0 && m.steps > m.fuel {
		return ErrFuelExhausted
	}
	return nil
}

func (m *Machine) unfold(r term.Ref) (term.Term, error) {
	body, ok := m.defs[r.DefID]
	if !ok {
		return nil, fmt.Errorf("%w: no single-rule definition for %s", ErrUnsupported, term.Format(r, m.names()))
	}
	return desugar(body)
}

func (m *Machine) names() *term.DefNames {
	if m.book == nil {
		return nil
	}
	return m.book.Names
}

// whnf reduces t to weak head normal form.
func (m *Machine) whnf(t term.Term) (term.Term, error) {
	for {
		switch u := t.(type) {
		case term.Ref:
			if err := m.tick(); err != nil {
				return nil, err
			}
			body, err := m.unfold(u)
			if err != nil {
				return nil, err
			}
			t = body
		case term.App:
			fun, err := m.whnf(u.Fun)
			if err != nil {
				return nil, err
			}
			lam, ok := fun.(term.Lam)
			if !ok {
				return term.App{Fun: fun, Arg: u.Arg}, nil
			}
			if err := m.tick(); err != nil {
				return nil, err
			}
			t = m.subst(lam.Body, lam.Name, u.Arg)
		default:
			return t, nil
		}
	}
}

func (m *Machine) normalize(t term.Term) (term.Term, error) {
	w, err := m.whnf(t)
	if err != nil {
		return nil, err
	}
	switch w := w.(type) {
	case term.Lam:
		body, err := m.normalize(w.Body)
		if err != nil {
			return nil, err
		}
		return term.Lam{Name: w.Name, Body: body}, nil
	case term.App:
		fun, err := m.normalize(w.Fun)
		if err != nil {
			return nil, err
		}
		arg, err := m.normalize(w.Arg)
		if err != nil {
			return nil, err
		}
		return term.App{Fun: fun, Arg: arg}, nil
	default:
		return w, nil
	}
}

// subst is capture-avoiding substitution over the desugared core.
func (m *Machine) subst(t term.Term, name term.Name, val term.Term) term.Term {
	if name.None() {
		return t
	}
	switch t := t.(type) {
	case term.Var:
		if t.Name == name {
			return val
		}
		return t
	case term.App:
		return term.App{Fun: m.subst(t.Fun, name, val), Arg: m.subst(t.Arg, name, val)}
	case term.Lam:
		if t.Name == name {
			return t
		}
		if !t.Name.None() && FreeIn(val, t.Name) && FreeIn(t.Body, name) {
			m.fresh++
			renamed := term.Name(fmt.Sprintf("%s'%d", t.Name, m.fresh))
			body := m.subst(t.Body, t.Name, term.Var{Name: renamed})
			return term.Lam{Name: renamed, Body: m.subst(body, name, val)}
		}
		return term.Lam{Name: t.Name, Body: m.subst(t.Body, name, val)}
	default:
		return t
	}
}

// FreeIn reports whether name occurs free in the core term t.
func FreeIn(t term.Term, name term.Name) bool {
	switch t := t.(type) {
	case term.Var:
		return t.Name == name
	case term.App:
		return FreeIn(t.Fun, name) || FreeIn(t.Arg, name)
	case term.Lam:
		return t.Name != name && FreeIn(t.Body, name)
	default:
		return false
	}
}

// EtaReduce rewrites (x: f x) to f, bottom-up, when x is not free in f.
func EtaReduce(t term.Term) term.Term {
	switch t := t.(type) {
	case term.App:
		return term.App{Fun: EtaReduce(t.Fun), Arg: EtaReduce(t.Arg)}
	case term.Lam:
		body := EtaReduce(t.Body)
		if app, ok := body.(term.App); ok && !t.Name.None() && term.IsVar(app.Arg, t.Name) && !FreeIn(app.Fun, t.Name) {
			return app.Fun
		}
		return term.Lam{Name: t.Name, Body: body}
	default:
		return t
	}
}

// AlphaEqual reports whether a and b differ only in bound names.
func AlphaEqual(a, b term.Term) bool {
	return alphaEqual(a, b, map[term.Name]int{}, map[term.Name]int{}, 0)
}

func alphaEqual(a, b term.Term, envA, envB map[term.Name]int, depth int) bool {
	switch a := a.(type) {
	case term.Var:
		bv, ok := b.(term.Var)
		if !ok {
			return false
		}
		da, boundA := envA[a.Name]
		db, boundB := envB[bv.Name]
		if boundA || boundB {
			return boundA && boundB && da == db
		}
		return a.Name == bv.Name
	case term.App:
		bb, ok := b.(term.App)
		return ok && alphaEqual(a.Fun, bb.Fun, envA, envB, depth) && alphaEqual(a.Arg, bb.Arg, envA, envB, depth)
	case term.Lam:
		bl, ok := b.(term.Lam)
		if !ok {
			return false
		}
		restoreA := bindLevel(envA, a.Name, depth)
		restoreB := bindLevel(envB, bl.Name, depth)
		eq := alphaEqual(a.Body, bl.Body, envA, envB, depth+1)
		restoreA()
		restoreB()
		return eq
	case term.Ref:
		br, ok := b.(term.Ref)
		return ok && a.DefID == br.DefID
	case term.Era:
		_, ok := b.(term.Era)
		return ok
	default:
		return false
	}
}

// bindLevel binds name to depth in env and returns a function undoing it.
// An absent name binds nothing, so no variable can refer to it.
func bindLevel(env map[term.Name]int, name term.Name, depth int) func() {
	if name.None() {
		return func() {}
	}
	old, had := env[name]
	env[name] = depth
	return func() {
		if had {
			env[name] = old
		} else {
			delete(env, name)
		}
	}
}
