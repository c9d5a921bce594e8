package term

// Name identifies a variable. The empty name marks an absent binder
// (an erased lambda parameter or an unused dup alias).
type Name string

// None reports whether the name is absent.
func (n Name) None() bool { return n == "" }

// Term represents a program term.
type Term interface {
	String() string
}

// Var represents a variable usage.
type Var struct {
	Name Name
}

// Lam represents an abstraction. An empty Name is an erased parameter.
type Lam struct {
	Name Name
	Body Term
}

// Chn marks Body as running inside a channel. Name is a scopeless
// variable, not a binder in the usual lexical sense.
type Chn struct {
	Name Name
	Body Term
}

// Let binds Name to Val inside Next.
type Let struct {
	Name Name
	Val  Term
	Next Term
}

// App represents an application.
type App struct {
	Fun Term
	Arg Term
}

// Dup introduces up to two aliases sharing Val inside Next.
type Dup struct {
	Fst  Name
	Snd  Name
	Val  Term
	Next Term
}

// Sup is a superposition of two terms.
type Sup struct {
	Fst Term
	Snd Term
}

// Ref points to a definition of the book.
type Ref struct {
	DefID DefID
}

// Lnk is a use of a scopeless (channel) variable.
type Lnk struct {
	Name Name
}

// Era is the erased term.
type Era struct{}

func (t Var) String() string { return Format(t, nil) }
func (t Lam) String() string { return Format(t, nil) }
func (t Chn) String() string { return Format(t, nil) }
func (t Let) String() string { return Format(t, nil) }
func (t App) String() string { return Format(t, nil) }
func (t Dup) String() string { return Format(t, nil) }
func (t Sup) String() string { return Format(t, nil) }
func (t Ref) String() string { return Format(t, nil) }
func (t Lnk) String() string { return Format(t, nil) }
func (t Era) String() string { return Format(t, nil) }

// IsVar reports whether t is exactly the variable name.
func IsVar(t Term, name Name) bool {
	v, ok := t.(Var)
	return ok && v.Name == name
}

// Apply left-folds args onto fun.
func Apply(fun Term, args ...Term) Term {
	for _, a := range args {
		fun = App{Fun: fun, Arg: a}
	}
	return fun
}

// Lambda nests one lambda per name around body, outermost first.
func Lambda(body Term, names ...Name) Term {
	for i := len(names) - 1; i >= 0; i-- {
		body = Lam{Name: names[i], Body: body}
	}
	return body
}
