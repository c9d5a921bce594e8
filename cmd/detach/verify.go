package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/vic/godetach/pkg/eval"
	"github.com/vic/godetach/pkg/term"
)

// errMismatch reports definitions whose normal form changed.
var errMismatch = errors.New("verification failed")

// snapshot copies the definitions of book so the pass can rewrite the
// original in place. The name table is shared.
func snapshot(book *term.Book) *term.Book {
	cp := &term.Book{Names: book.Names, Defs: make([]*term.Definition, len(book.Defs))}
	for i, def := range book.Defs {
		rules := make([]term.Rule, len(def.Rules))
		copy(rules, def.Rules)
		cp.Defs[i] = &term.Definition{DefID: def.DefID, Rules: rules}
	}
	return cp
}

// verifyBook normalises every definition of before in both books and
// compares the results up to bound names. Definitions the evaluator cannot
// handle are reported as skipped.
func verifyBook(w io.Writer, before, after *term.Book, fuel int) error {
	var checked, skipped, failed, steps int
	for _, def := range before.Defs {
		name, _ := before.Names.Name(def.DefID)
		ref := term.Ref{DefID: def.DefID}

		mb, ma := eval.NewMachine(before, fuel), eval.NewMachine(after, fuel)
		want, err := mb.Normalize(ref)
		if err == nil {
			var got term.Term
			got, err = ma.Normalize(ref)
			steps += mb.Steps() + ma.Steps()
			if err == nil {
				checked++
				if !eval.AlphaEqual(want, got) {
					failed++
					fmt.Fprintf(w, "verify: %s: normal form changed\n  before: %s\n  after:  %s\n",
						name, term.Format(want, before.Names), term.Format(got, after.Names))
				}
				continue
			}
		}
		if errors.Is(err, eval.ErrFuelExhausted) || errors.Is(err, eval.ErrUnsupported) {
			skipped++
			fmt.Fprintf(w, "verify: %s: skipped (%v)\n", name, err)
			continue
		}
		return fmt.Errorf("verify %s: %w", name, err)
	}

	fmt.Fprintf(w, "verify: %d checked, %d skipped, %d failed (%d steps)\n", checked, skipped, failed, steps)
	if failed > 0 {
		return fmt.Errorf("%w: %d definitions", errMismatch, failed)
	}
	return nil
}
