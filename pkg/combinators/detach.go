package combinators

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vic/godetach/pkg/term"
)

// Pass detaches combinators from the rule bodies of a book.
type Pass struct {
	log     *zap.Logger
	workers int
	debug   bool

	c counters
}

type Option func(*Pass)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pass) { p.log = l }
}

// WithWorkers bounds how many rules are transformed concurrently.
// n <= 0 uses one worker per CPU.
func WithWorkers(n int) Option {
	return func(p *Pass) { p.workers = n }
}

// WithDebug checks, before transforming a rule, that its bound names are
// unique.
func WithDebug(on bool) Option {
	return func(p *Pass) { p.debug = on }
}

func NewPass(opts ...Option) *Pass {
	p := &Pass{log: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}
	return p
}

// DetachCombinators runs a new pass over book.
func DetachCombinators(book *term.Book, opts ...Option) error {
	return NewPass(opts...).Run(book)
}

// Run registers the combinators, rewrites every rule body and appends the
// combinator definitions to book. On error no rule body is modified and no
// definition is appended.
func (p *Pass) Run(book *term.Book) error {
	log := p.log.With(zap.String("pass", uuid.NewString()))

	// Registration writes the name table; it completes before any rule
	// is read concurrently.
	combs := RegisterCombinators(book)
	log.Debug("registered combinators", zap.Int("count", len(combs)), zap.Int("names", book.Names.Len()))
	p.resetTrace()

	results := make([][]term.Term, len(book.Defs))
	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, def := range book.Defs {
		name, _ := book.Names.Name(def.DefID)
		results[i] = make([]term.Term, len(def.Rules))
		for j, rule := range def.Rules {
			g.Go(func() error {
				body, err := p.rule(log, book.Names, name, rule.Body)
				if err != nil {
					return fmt.Errorf("def %s rule %d: %w", name, j, err)
				}
				results[i][j] = body
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		log.Error("detach combinators failed", zap.Error(err))
		return err
	}

	for i, def := range book.Defs {
		for j := range def.Rules {
			def.Rules[j].Body = results[i][j]
		}
	}
	book.Defs = append(book.Defs, combs...)

	s := p.GetStats()
	log.Info("detached combinators",
		zap.Uint64("rules", s.Rules),
		zap.Uint64("extracted", s.Extracted),
		zap.Uint64("preserved", s.Preserved),
		zap.Uint64("kept_simple", s.KeptSimple),
		zap.Uint64("rewrites", s.Rewrites),
		zap.Uint64("refs", s.Total()),
	)
	return nil
}

func (p *Pass) rule(log *zap.Logger, names *term.DefNames, def term.Name, body term.Term) (term.Term, error) {
	atomic.AddUint64(&p.c.rules, 1)
	if p.debug {
		if err := term.CheckUniqueNames(body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvariantViolated, err)
		}
	}
	w := walker{pass: p, names: names, def: def}
	out, err := w.walk(body, 0)
	if err != nil {
		return nil, err
	}
	log.Debug("rule detached",
		zap.String("def", string(def)),
		zap.Stringer("body", lazyFormat{out, names}),
	)
	return out, nil
}

// AbstractLambdas rewrites the lambdas of a single rule body. The
// combinators must already be registered in names.
func (p *Pass) AbstractLambdas(t term.Term, names *term.DefNames) (term.Term, error) {
	w := walker{pass: p, names: names}
	return w.walk(t, 0)
}

type walker struct {
	pass  *Pass
	names *term.DefNames
	def   term.Name
}

// walk extracts every lambda below the root lambda chain, and the root
// lambdas themselves when their body is not simple.
func (w *walker) walk(t term.Term, depth int) (term.Term, error) {
	switch t := t.(type) {
	case term.Lam:
		if depth == 0 && IsSimple(t.Body) {
			atomic.AddUint64(&w.pass.c.keptSimple, 1)
			w.pass.recordTrace(EventKeptSimple, w.def, t.Name, depth)
			body, err := w.walk(t.Body, depth)
			if err != nil {
				return nil, err
			}
			return term.Lam{Name: t.Name, Body: body}, nil
		}
		return w.extract(t, depth)
	case term.Chn:
		body, err := w.walk(t.Body, depth+1)
		if err != nil {
			return nil, err
		}
		return term.Chn{Name: t.Name, Body: body}, nil
	case term.Let:
		val, err := w.walk(t.Val, depth+1)
		if err != nil {
			return nil, err
		}
		next, err := w.walk(t.Next, depth+1)
		if err != nil {
			return nil, err
		}
		return term.Let{Name: t.Name, Val: val, Next: next}, nil
	case term.App:
		fun, err := w.walk(t.Fun, depth+1)
		if err != nil {
			return nil, err
		}
		arg, err := w.walk(t.Arg, depth+1)
		if err != nil {
			return nil, err
		}
		return term.App{Fun: fun, Arg: arg}, nil
	case term.Dup:
		val, err := w.walk(t.Val, depth+1)
		if err != nil {
			return nil, err
		}
		next, err := w.walk(t.Next, depth+1)
		if err != nil {
			return nil, err
		}
		return term.Dup{Fst: t.Fst, Snd: t.Snd, Val: val, Next: next}, nil
	case term.Sup:
		return nil, unsupported("abstract lambdas", "", t)
	default:
		return t, nil
	}
}

func (w *walker) extract(lam term.Lam, depth int) (term.Term, error) {
	x, err := extract(lam, w.names)
	if err != nil {
		return nil, err
	}
	if !x.extracted {
		atomic.AddUint64(&w.pass.c.preserved, 1)
		w.pass.recordTrace(EventPreserved, w.def, lam.Name, depth)
		return lam, nil
	}

	atomic.AddUint64(&w.pass.c.extracted, 1)
	atomic.AddUint64(&w.pass.c.rewrites, uint64(x.rewrites))
	for c, n := range x.uses {
		atomic.AddUint64(&w.pass.c.uses[c], uint64(n))
	}
	w.pass.recordTrace(EventExtracted, w.def, lam.Name, depth)

	// Closed subterms were kept as opaque leaves; extract the lambdas
	// they still hold.
	return w.walk(x.term, depth+1)
}

// lazyFormat defers formatting until the log entry is written.
type lazyFormat struct {
	t     term.Term
	names *term.DefNames
}

func (l lazyFormat) String() string { return term.Format(l.t, l.names) }
