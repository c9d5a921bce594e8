package term

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, src string) Term {
	t.Helper()
	term, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return term
}

func TestSubst(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Free", "f y", "f z"},
		{"UnderLambda", "x: y x", "x: z x"},
		{"ShadowedByLambda", "y: y", "y: y"},
		{"ShadowedByLet", "let y = y in y", "let y = z in y"},
		{"ShadowedByDup", "dup a y = y in y", "dup a y = z in y"},
		{"InsideChannel", "$c: y $c", "$c: z $c"},
		{"InsideSup", "{y, a}", "{z, a}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subst(mustParse(t, tt.in), "y", v("z"))
			want := mustParse(t, tt.want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Subst mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckUniqueNames(t *testing.T) {
	unique := []string{
		"x: y: x y",
		"x: let y = x in dup a b = y in a b",
		"_: _: a",
		"dup _ _ = a in b",
	}
	for _, src := range unique {
		if err := CheckUniqueNames(mustParse(t, src)); err != nil {
			t.Errorf("CheckUniqueNames(%q) = %v, want nil", src, err)
		}
	}

	repeated := []string{
		"x: x: x",
		"(x: x) (x: x)",
		"let a = b in a: a",
		"dup a a = v in a",
	}
	for _, src := range repeated {
		if err := CheckUniqueNames(mustParse(t, src)); err == nil {
			t.Errorf("CheckUniqueNames(%q) = nil, want error", src)
		}
	}
}

func TestDefNames(t *testing.T) {
	names := NewDefNames()
	a := names.Insert("A")
	b := names.Insert("B")
	a2 := names.Insert("A")

	if a == b || a == a2 || b == a2 {
		t.Fatalf("ids are not distinct: %d %d %d", a, b, a2)
	}
	if id, _ := names.ID("A"); id != a2 {
		t.Errorf("ID(A) = %d, want newest id %d", id, a2)
	}
	if n, ok := names.Name(a); !ok || n != "A" {
		t.Errorf("Name(%d) = %q, %v", a, n, ok)
	}
	if _, ok := names.Name(DefID(names.Len())); ok {
		t.Errorf("Name of an unallocated id succeeded")
	}
	if names.Len() != 3 {
		t.Errorf("Len() = %d, want 3", names.Len())
	}
}

func TestBookRegister(t *testing.T) {
	book := NewBook()
	def := book.Register("Id", Lam{Name: "x", Body: v("x")})

	if len(book.Defs) != 0 {
		t.Fatalf("Register must not append to Defs")
	}
	if def.Rules[0].DefID != def.DefID {
		t.Errorf("rule id %d does not match definition id %d", def.Rules[0].DefID, def.DefID)
	}
	if _, ok := book.Lookup("Id"); ok {
		t.Errorf("Lookup found a definition that is not in the book")
	}

	book.Defs = append(book.Defs, def)
	got, ok := book.Lookup("Id")
	if !ok || got != def {
		t.Errorf("Lookup(Id) = %v, %v", got, ok)
	}
}

func TestHelpers(t *testing.T) {
	got := Lambda(Apply(v("f"), v("x"), v("y")), "x", "y")
	want := mustParse(t, "x: y: f x y")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lambda/Apply mismatch (-want +got):\n%s", diff)
	}
	if !IsVar(v("x"), "x") || IsVar(v("x"), "y") || IsVar(Era{}, "x") {
		t.Errorf("IsVar misbehaves")
	}
}
