package term

import (
	"fmt"
	"strings"
)

// Format renders t in the surface syntax accepted by Parse. References are
// printed by name when names is non-nil and knows the id, as @#id otherwise.
func Format(t Term, names *DefNames) string {
	var sb strings.Builder
	format(&sb, t, names)
	return sb.String()
}

func binder(n Name) string {
	if n.None() {
		return "_"
	}
	return string(n)
}

func format(sb *strings.Builder, t Term, names *DefNames) {
	switch t := t.(type) {
	case Var:
		sb.WriteString(string(t.Name))
	case Lam:
		fmt.Fprintf(sb, "(%s: ", binder(t.Name))
		format(sb, t.Body, names)
		sb.WriteByte(')')
	case Chn:
		fmt.Fprintf(sb, "($%s: ", t.Name)
		format(sb, t.Body, names)
		sb.WriteByte(')')
	case Let:
		fmt.Fprintf(sb, "(let %s = ", t.Name)
		format(sb, t.Val, names)
		sb.WriteString(" in ")
		format(sb, t.Next, names)
		sb.WriteByte(')')
	case App:
		sb.WriteByte('(')
		format(sb, t.Fun, names)
		sb.WriteByte(' ')
		format(sb, t.Arg, names)
		sb.WriteByte(')')
	case Dup:
		fmt.Fprintf(sb, "(dup %s %s = ", binder(t.Fst), binder(t.Snd))
		format(sb, t.Val, names)
		sb.WriteString(" in ")
		format(sb, t.Next, names)
		sb.WriteByte(')')
	case Sup:
		sb.WriteByte('{')
		format(sb, t.Fst, names)
		sb.WriteString(", ")
		format(sb, t.Snd, names)
		sb.WriteByte('}')
	case Ref:
		if names != nil {
			if n, ok := names.Name(t.DefID); ok {
				fmt.Fprintf(sb, "@%s", n)
				return
			}
		}
		fmt.Fprintf(sb, "@#%d", t.DefID)
	case Lnk:
		fmt.Fprintf(sb, "$%s", t.Name)
	case Era:
		sb.WriteByte('*')
	case nil:
		sb.WriteString("<nil>")
	default:
		fmt.Fprintf(sb, "<? %T>", t)
	}
}
