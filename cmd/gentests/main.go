// Command gentests regenerates the golden cases of the detach command.
// Run it from the repository root after an intended change in output.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vic/godetach/pkg/combinators"
	"github.com/vic/godetach/pkg/term"
)

type TestCase struct {
	Name  string
	Input string
}

func main() {
	tests := []TestCase{
		// Root chains stay native
		{"001_id", "def Main = x: x"},

		// Basic combinators
		{"002_k", "def Main = f (x: y: x)"},
		{"006_s_prime", "def Main = h (f: g: x: v (f x) (g x))"},
		{"020_flip", "def Main = h (x: y: y x)"},

		// Let and dup
		{"040_let", "def Main = x: let y = x in f y"},
		{"070_dup", "def Main = h (x: dup a b = x in f a b)"},

		// Channels block extraction
		{"050_channel", "def Main = h (x: $c: x $c)"},

		// Closed subterms are walked again
		{"060_nested", "def Main = f (x: g (y: y))"},
	}

	baseDir := "cmd/detach/testdata"

	var generated int
	for _, tc := range tests {
		book, err := term.ParseBook(tc.Input)
		if err != nil {
			fmt.Printf("Error parsing input for %s: %v\n", tc.Name, err)
			continue
		}
		input := book.String()

		if err := combinators.DetachCombinators(book); err != nil {
			fmt.Printf("Error detaching %s: %v\n", tc.Name, err)
			continue
		}

		dir := filepath.Join(baseDir, tc.Name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("Error creating %s: %v\n", dir, err)
			os.Exit(1)
		}
		os.WriteFile(filepath.Join(dir, "input.book"), []byte(input), 0644)
		os.WriteFile(filepath.Join(dir, "output.book"), []byte(book.String()), 0644)
		generated++
	}

	fmt.Printf("Generated %d tests\n", generated)
}
