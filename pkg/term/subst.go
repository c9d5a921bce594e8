package term

import "fmt"

// Subst replaces the free occurrences of name in t by val. Binders that
// shadow name stop the replacement. No renaming is performed: callers rely
// on bound names being unique.
func Subst(t Term, name Name, val Term) Term {
	switch t := t.(type) {
	case Var:
		if t.Name == name {
			return val
		}
		return t
	case Lam:
		if t.Name == name {
			return t
		}
		return Lam{Name: t.Name, Body: Subst(t.Body, name, val)}
	case Chn:
		return Chn{Name: t.Name, Body: Subst(t.Body, name, val)}
	case Let:
		next := t.Next
		if t.Name != name {
			next = Subst(next, name, val)
		}
		return Let{Name: t.Name, Val: Subst(t.Val, name, val), Next: next}
	case App:
		return App{Fun: Subst(t.Fun, name, val), Arg: Subst(t.Arg, name, val)}
	case Dup:
		next := t.Next
		if t.Fst != name && t.Snd != name {
			next = Subst(next, name, val)
		}
		return Dup{Fst: t.Fst, Snd: t.Snd, Val: Subst(t.Val, name, val), Next: next}
	case Sup:
		return Sup{Fst: Subst(t.Fst, name, val), Snd: Subst(t.Snd, name, val)}
	default:
		return t
	}
}

// CheckUniqueNames returns an error naming the first binder that appears
// twice in t. Lambda, let and dup binders are considered.
func CheckUniqueNames(t Term) error {
	seen := make(map[Name]bool)
	bind := func(n Name) error {
		if n.None() {
			return nil
		}
		if seen[n] {
			return fmt.Errorf("binder %s is not unique", n)
		}
		seen[n] = true
		return nil
	}

	var walk func(Term) error
	walk = func(t Term) error {
		switch t := t.(type) {
		case Lam:
			if err := bind(t.Name); err != nil {
				return err
			}
			return walk(t.Body)
		case Chn:
			return walk(t.Body)
		case Let:
			if err := bind(t.Name); err != nil {
				return err
			}
			if err := walk(t.Val); err != nil {
				return err
			}
			return walk(t.Next)
		case App:
			if err := walk(t.Fun); err != nil {
				return err
			}
			return walk(t.Arg)
		case Dup:
			if err := bind(t.Fst); err != nil {
				return err
			}
			if err := bind(t.Snd); err != nil {
				return err
			}
			if err := walk(t.Val); err != nil {
				return err
			}
			return walk(t.Next)
		case Sup:
			if err := walk(t.Fst); err != nil {
				return err
			}
			return walk(t.Snd)
		}
		return nil
	}
	return walk(t)
}
