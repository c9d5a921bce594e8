package combinators

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vic/godetach/pkg/term"
)

func parseBook(t *testing.T, src string) *term.Book {
	t.Helper()
	book, err := term.ParseBook(src)
	require.NoError(t, err)
	return book
}

func bodies(book *term.Book) []term.Term {
	var out []term.Term
	for _, def := range book.Defs {
		for _, r := range def.Rules {
			out = append(out, r.Body)
		}
	}
	return out
}

func TestDetachCombinators(t *testing.T) {
	book := parseBook(t, `
def Id = x: y: x
def Eta = f (x: g x)
def Share = f (x: x x)
def Erased = f (_: a)
def NonSimpleRoot = x: let y = x in y
def Nested = f (x: g (y: y))
def InLet = let a = (x: x) in a
def RootChain = x: y: f (z: z)
`)
	require.NoError(t, DetachCombinators(book, WithWorkers(2)))

	want := `def Id = (x: (y: x))
def Eta = (f g)
def Share = (f ((@_S @_I) @_I))
def Erased = (f (@_K a))
def NonSimpleRoot = @_I
def Nested = (f (@_K (g @_I)))
def InLet = (let a = @_I in a)
def RootChain = (x: (y: (f @_I)))
def _K = (x: (y: x))
def _I = (x: x)
def _B = (x: (y: (z: (x (y z)))))
def _B_ = (d: (x: (y: (z: ((d x) (y z))))))
def _C = (x: (y: (z: ((x z) y))))
def _C_ = (d: (x: (y: (z: ((d (x z)) y)))))
def _S = (x: (y: (z: ((x z) (y z)))))
def _S_ = (d: (x: (y: (z: ((d (x z)) (y z))))))
`
	assert.Equal(t, want, book.String())
}

func TestRootChainStaysNative(t *testing.T) {
	book := parseBook(t, "def Main = x: y: x")
	pass := NewPass()
	require.NoError(t, pass.Run(book))

	want := parseBook(t, "def Main = x: y: x")
	assert.Empty(t, cmp.Diff(want.Defs[0].Rules[0].Body, book.Defs[0].Rules[0].Body))

	s := pass.GetStats()
	assert.Equal(t, uint64(1), s.Rules)
	assert.Equal(t, uint64(2), s.KeptSimple)
	assert.Zero(t, s.Extracted)
	assert.Zero(t, s.Total())
}

func TestChannelGuardedLambdaUntouched(t *testing.T) {
	src := "def Main = f (x: $c: g x $c)"
	book := parseBook(t, src)
	pass := NewPass()
	require.NoError(t, pass.Run(book))

	want := parseBook(t, src)
	assert.Empty(t, cmp.Diff(want.Defs[0].Rules[0].Body, book.Defs[0].Rules[0].Body))
	assert.Equal(t, uint64(1), pass.GetStats().Preserved)
}

func TestDetachAtomicOnError(t *testing.T) {
	book := parseBook(t, `
def Good = f (x: g x)
def Bad = f {a, b}
`)
	before := bodies(book)

	err := DetachCombinators(book, WithWorkers(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedConstruct), "got %v", err)
	assert.Contains(t, err.Error(), "def Bad")

	assert.Len(t, book.Defs, 2, "no combinator definitions appended")
	assert.Empty(t, cmp.Diff(before, bodies(book)), "rule bodies changed")
}

func TestDebugChecksUniqueNames(t *testing.T) {
	src := "def Main = f (x: x) (x: x)"

	err := DetachCombinators(parseBook(t, src), WithDebug(true))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolated), "got %v", err)

	// Without the check the rule is processed.
	require.NoError(t, DetachCombinators(parseBook(t, src)))
}

func TestPassStatsAndTrace(t *testing.T) {
	book := parseBook(t, `
def A = f (x: x x)
def B = x: y: g (z: z) (w: $c: w $c)
`)
	pass := NewPass(WithWorkers(1))
	pass.EnableTrace(16)
	require.NoError(t, pass.Run(book))

	s := pass.GetStats()
	assert.Equal(t, uint64(2), s.Rules)
	assert.Equal(t, uint64(2), s.Extracted)
	assert.Equal(t, uint64(1), s.Preserved)
	assert.Equal(t, uint64(2), s.KeptSimple)
	assert.Equal(t, uint64(3), s.Uses[I])
	assert.Equal(t, uint64(1), s.Uses[S])
	assert.Equal(t, uint64(4), s.Total())

	events := pass.TraceSnapshot()
	require.Len(t, events, 5)
	kinds := make(map[EventKind]int)
	for i, ev := range events {
		assert.Equal(t, uint64(i), ev.Step)
		kinds[ev.Kind]++
	}
	assert.Equal(t, map[EventKind]int{EventExtracted: 2, EventPreserved: 1, EventKeptSimple: 2}, kinds)

	pass.EnableTrace(0)
	assert.Nil(t, pass.TraceSnapshot())
}

func TestTraceResetsEachRun(t *testing.T) {
	pass := NewPass(WithWorkers(1))
	pass.EnableTrace(2)

	require.NoError(t, pass.Run(parseBook(t, "def A = f (x: x) (y: y) (z: z)")))
	require.Len(t, pass.TraceSnapshot(), 2)

	require.NoError(t, pass.Run(parseBook(t, "def B = g (x: x)")))
	events := pass.TraceSnapshot()
	require.Len(t, events, 1)
	assert.Equal(t, term.Name("B"), events[0].Def)
	assert.Equal(t, uint64(0), events[0].Step)

	// Statistics keep adding up.
	assert.Equal(t, uint64(4), pass.GetStats().Extracted)
}

func TestTraceCapacity(t *testing.T) {
	book := parseBook(t, "def A = f (x: x) (y: y) (z: z)")
	pass := NewPass()
	pass.EnableTrace(2)
	require.NoError(t, pass.Run(book))
	assert.Len(t, pass.TraceSnapshot(), 2)
	assert.Equal(t, uint64(3), pass.GetStats().Extracted)
}

func TestPassLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	book := parseBook(t, "def A = f (x: x)")
	require.NoError(t, DetachCombinators(book, WithLogger(zap.New(core))))

	summary := logs.FilterMessage("detached combinators").All()
	require.Len(t, summary, 1)
	fields := summary[0].ContextMap()
	assert.Equal(t, uint64(1), fields["extracted"])
	assert.NotEmpty(t, fields["pass"])

	assert.Equal(t, 1, logs.FilterMessage("rule detached").Len())
}

func TestAbstractLambdas(t *testing.T) {
	book := combinatorBook()
	in := parse(t, "x: f (y: y)")
	got, err := NewPass().AbstractLambdas(in, book.Names)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(parseWith(t, "x: f @_I", book.Names), got))

	_, err = NewPass().AbstractLambdas(parse(t, "f {a, b}"), book.Names)
	assert.True(t, errors.Is(err, ErrUnsupportedConstruct), "got %v", err)
}
