package combinators

import "github.com/vic/godetach/pkg/term"

// IsSimple reports whether t does no sharing or let-bound computation:
// variables, links, references and erasers, and lambdas, channels and
// applications built only from simple terms.
func IsSimple(t term.Term) bool {
	switch t := t.(type) {
	case term.Var, term.Lnk, term.Ref, term.Era:
		return true
	case term.Lam:
		return IsSimple(t.Body)
	case term.Chn:
		return IsSimple(t.Body)
	case term.App:
		return IsSimple(t.Fun) && IsSimple(t.Arg)
	default:
		return false
	}
}

// Occurs reports whether name occurs free in t.
func Occurs(t term.Term, name term.Name) bool {
	switch t := t.(type) {
	case term.Var:
		return t.Name == name
	case term.Lam:
		return t.Name != name && Occurs(t.Body, name)
	case term.Chn:
		return Occurs(t.Body, name)
	case term.App:
		return Occurs(t.Fun, name) || Occurs(t.Arg, name)
	case term.Sup:
		return Occurs(t.Fst, name) || Occurs(t.Snd, name)
	case term.Let:
		return Occurs(t.Val, name) || (t.Name != name && Occurs(t.Next, name))
	case term.Dup:
		return Occurs(t.Val, name) ||
			(t.Fst != name && t.Snd != name && Occurs(t.Next, name))
	default:
		return false
	}
}

// ChannelCheck reports whether name occurs below a channel in t. Scoping
// follows Occurs. A dup whose value mentions name passes the property on to
// its aliases.
func ChannelCheck(t term.Term, name term.Name, insideChn bool) bool {
	switch t := t.(type) {
	case term.Var:
		return insideChn && t.Name == name
	case term.Lam:
		return t.Name != name && ChannelCheck(t.Body, name, insideChn)
	case term.Chn:
		return ChannelCheck(t.Body, name, true)
	case term.App:
		return ChannelCheck(t.Fun, name, insideChn) || ChannelCheck(t.Arg, name, insideChn)
	case term.Sup:
		return ChannelCheck(t.Fst, name, insideChn) || ChannelCheck(t.Snd, name, insideChn)
	case term.Let:
		return ChannelCheck(t.Val, name, insideChn) ||
			(t.Name != name && ChannelCheck(t.Next, name, insideChn))
	case term.Dup:
		if Occurs(t.Val, name) {
			if !t.Fst.None() && ChannelCheck(t.Next, t.Fst, insideChn) {
				return true
			}
			if !t.Snd.None() && ChannelCheck(t.Next, t.Snd, insideChn) {
				return true
			}
		}
		return ChannelCheck(t.Val, name, insideChn) ||
			(t.Fst != name && t.Snd != name && ChannelCheck(t.Next, name, insideChn))
	default:
		return false
	}
}

// guarded reports whether lam's own binder is used inside a channel.
func guarded(lam term.Lam) bool {
	return !lam.Name.None() && ChannelCheck(lam.Body, lam.Name, false)
}
