package main

import (
	"fmt"
	"sort"

	"github.com/cwbudde/momentsolve/internal/problem"
	"github.com/cwbudde/momentsolve/internal/store"
	"github.com/spf13/cobra"
)

// examples holds built-in problems with known answers, useful for a
// first run and as a smoke test of the full pipeline.
var examples = map[string]struct {
	description string
	def         problem.Definition
}{
	"quadratic": {
		description: "min x^2+y^2 with E[x+y]=4; unique atom (2,2), bound 8",
		def: problem.Definition{
			Vars:      []string{"x", "y"},
			Objective: "x^2 + y^2",
			MomentEqualities: []store.MomentTarget{
				{Expr: "x + y", Target: 4},
			},
		},
	},
	"motzkin": {
		description: "min of the shifted Motzkin polynomial on the unit box; needs order escalation",
		def: problem.Definition{
			Vars:      []string{"x", "y"},
			Objective: "x^4*y^2 + x^2*y^4 - 3*x^2*y^2 + 1",
			Inequalities: []string{
				"1 - x^2",
				"1 - y^2",
			},
			MaxRounds: 8,
		},
	},
	"mixture": {
		description: "recover a two-atom measure on [0,3] from E[x^n], n=1..4; atoms 1 and 2, weights 1/2 each",
		def: problem.Definition{
			Vars:      []string{"x"},
			Objective: "x",
			Inequalities: []string{
				"x",
				"3 - x",
			},
			MomentEqualities: []store.MomentTarget{
				{Expr: "x", Target: 1.5},
				{Expr: "x^2", Target: 2.5},
				{Expr: "x^3", Target: 4.5},
				{Expr: "x^4", Target: 8.5},
			},
			MinOrder: 2,
		},
	},
}

var exampleCmd = &cobra.Command{
	Use:   "example [name]",
	Short: "Run a built-in example problem",
	Long: `Runs one of the built-in example problems end to end. Without an
argument, lists the available examples.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExample,
}

func init() {
	rootCmd.AddCommand(exampleCmd)
}

func runExample(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		names := make([]string, 0, len(examples))
		for name := range examples {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("Available examples:")
		for _, name := range names {
			fmt.Printf("  %-12s %s\n", name, examples[name].description)
		}
		return nil
	}

	ex, ok := examples[args[0]]
	if !ok {
		return fmt.Errorf("unknown example: %s", args[0])
	}
	fmt.Printf("%s: %s\n\n", args[0], ex.description)
	return runDefinition(ex.def, runOptions{})
}
