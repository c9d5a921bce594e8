package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vic/godetach/pkg/combinators"
	"github.com/vic/godetach/pkg/config"
	"github.com/vic/godetach/pkg/term"
)

// options holds the flag values and the state built from them before a
// command runs.
type options struct {
	configPath string
	verbose    bool
	workers    int
	debug      bool
	verify     bool
	showStats  bool
	traceCap   int

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "detach [file]",
		Short: "Rewrite lambdas of a book into combinator references",
		Long: `detach reads a book of definitions (from a file, or stdin when no file is
given), replaces every lambda that is not part of a simple root lambda chain by
an application of the K, I, B, C, S, B', C' and S' combinators, and prints the
resulting book followed by the eight combinator definitions.

Book syntax:
  def Name = term

Terms:
  x: body     lambda           _: body    erased lambda
  $c: body    channel          f a b      application
  let x = v in body            dup a b = v in body
  {a, b}      superposition    @Name      reference
  $c          link             *          erased term`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: o.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
		RunE: o.runDetach,
	}

	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	root.Flags().IntVarP(&o.workers, "workers", "w", 0, "rules transformed concurrently (0 = one per CPU)")
	root.Flags().BoolVar(&o.debug, "debug", false, "check that bound names are unique")
	root.Flags().BoolVar(&o.verify, "verify", false, "compare normal forms before and after the pass")
	root.Flags().BoolVar(&o.showStats, "stats", false, "print pass statistics to stderr")
	root.Flags().IntVar(&o.traceCap, "trace", 0, "print the first N extraction events to stderr")

	var bookPath string
	abstractCmd := &cobra.Command{
		Use:   "abstract [term]",
		Short: "Show the combinator form of a single lambda",
		Long: `Eliminates the binder of a lambda term and prints the raw combinator
expression, the expression after peephole reduction and the lowered term.
With --book the argument names a definition of that book instead.

Examples:
  detach abstract "f: g: x: v (f x) (g x)"
  detach abstract --book main.book Main`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAbstract(cmd, args[0], bookPath)
		},
	}
	abstractCmd.Flags().StringVarP(&bookPath, "book", "b", "", "take the lambda from the named definition of this book")
	root.AddCommand(abstractCmd)

	var writePath string
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after the file, the environment and the flags
have been applied. With --write it is saved as YAML instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writePath != "" {
				return o.cfg.Save(writePath)
			}
			data, err := o.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	configCmd.Flags().StringVarP(&writePath, "write", "o", "", "save the configuration to this file")
	root.AddCommand(configCmd)

	return root
}

// setup loads the configuration and builds the logger. Explicitly set
// flags win over the configuration.
func (o *options) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if flags.Changed("verify") {
		cfg.Verify.Enabled = o.verify
	}
	if flags.Changed("trace") {
		cfg.Trace = o.traceCap
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger, err = cfg.Logger()
	return err
}

func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("error reading file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("error reading stdin: %w", err)
	}
	return string(data), nil
}

func (o *options) runDetach(cmd *cobra.Command, args []string) error {
	input, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	book, err := term.ParseBook(input)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	original := snapshot(book)

	pass := combinators.NewPass(
		combinators.WithLogger(o.logger),
		combinators.WithWorkers(o.cfg.Workers),
		combinators.WithDebug(o.cfg.Debug),
	)
	if o.cfg.Trace > 0 {
		pass.EnableTrace(o.cfg.Trace)
	}

	start := time.Now()
	if err := pass.Run(book); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprint(cmd.OutOrStdout(), book.String())

	stderr := cmd.ErrOrStderr()
	if o.showStats {
		printStats(stderr, pass.GetStats(), elapsed)
	}
	for _, ev := range pass.TraceSnapshot() {
		fmt.Fprintf(stderr, "%4d %-11s def=%s binder=%s depth=%d\n", ev.Step, ev.Kind, ev.Def, binderName(ev.Binder), ev.Depth)
	}

	if o.cfg.Verify.Enabled {
		return verifyBook(stderr, original, book, o.cfg.Verify.Fuel)
	}
	return nil
}

func binderName(n term.Name) string {
	if n.None() {
		return "_"
	}
	return string(n)
}

func printStats(w io.Writer, stats combinators.Stats, elapsed time.Duration) {
	fmt.Fprintf(w, "\nStats:\n")
	fmt.Fprintf(w, "Time: %v\n", elapsed)
	fmt.Fprintf(w, "Rules:                %6d\n", stats.Rules)
	fmt.Fprintf(w, "Lambdas extracted:    %6d\n", stats.Extracted)
	fmt.Fprintf(w, "Lambdas preserved:    %6d\n", stats.Preserved)
	fmt.Fprintf(w, "Root lambdas kept:    %6d\n", stats.KeptSimple)
	fmt.Fprintf(w, "Peephole rewrites:    %6d\n", stats.Rewrites)
	fmt.Fprintf(w, "Combinator refs:      %6d\n", stats.Total())

	fmt.Fprintf(w, "\nBreakdown:\n")
	for _, c := range combinators.All {
		if n := stats.Uses[c]; n > 0 {
			fmt.Fprintf(w, "  %-3s %6d\n", c, n)
		}
	}
}

func runAbstract(cmd *cobra.Command, arg, bookPath string) error {
	var (
		t    term.Term
		book *term.Book
	)
	if bookPath != "" {
		input, err := readInput([]string{bookPath}, nil)
		if err != nil {
			return err
		}
		book, err = term.ParseBook(input)
		if err != nil {
			return fmt.Errorf("parse error: %w", err)
		}
		def, ok := book.Lookup(term.Name(arg))
		if !ok {
			return fmt.Errorf("definition %s not found in %s", arg, bookPath)
		}
		if len(def.Rules) != 1 {
			return fmt.Errorf("definition %s has %d rules", arg, len(def.Rules))
		}
		t = def.Rules[0].Body
	} else {
		var err error
		t, err = term.Parse(arg)
		if err != nil {
			return fmt.Errorf("parse error: %w", err)
		}
		book = term.NewBook()
	}

	lam, ok := t.(term.Lam)
	if !ok || lam.Name.None() {
		return fmt.Errorf("expected a named lambda, got %s", term.Format(t, book.Names))
	}
	combinators.RegisterCombinators(book)

	out := cmd.OutOrStdout()
	raw, err := combinators.AbstractBy(lam.Body, lam.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "abstracted: %s\n", combinators.Format(raw, book.Names))
	reduced := combinators.Reduce(raw)
	fmt.Fprintf(out, "reduced:    %s\n", combinators.Format(reduced, book.Names))
	lowered, err := combinators.ToTerm(reduced, book.Names)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "lowered:    %s\n", term.Format(lowered, book.Names))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
