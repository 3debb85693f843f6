package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/momentsolve/internal/extract"
	"github.com/cwbudde/momentsolve/internal/opt"
	"github.com/cwbudde/momentsolve/internal/problem"
	"github.com/cwbudde/momentsolve/internal/report"
	"github.com/cwbudde/momentsolve/internal/sdp"
	"github.com/cwbudde/momentsolve/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	solveVars     string
	solveObj      string
	solveIneqs    []string
	solveMomEqs   []string
	solveRounds   int
	solveMinOrder int
	solveRankTol  float64
	solveSeed     int64

	refineAtoms  bool
	refineRadius float64
	refineIters  int
	refinePop    int

	plotPath    string
	scatterPath string
	solveData   string
	solveJobID  string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run the relaxation hierarchy on a problem given inline",
	Long: `Solves a polynomial optimization or moment problem given as
command-line expressions. Escalates the relaxation order until the
flat-extension rank test certifies convergence, then recovers the
optimizing points.`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&solveVars, "vars", "x,y", "Comma-separated variable names")
	solveCmd.Flags().StringVar(&solveObj, "objective", "", "Objective polynomial (required)")
	solveCmd.Flags().StringArrayVar(&solveIneqs, "ineq", nil, "Inequality constraint g >= 0 (repeatable)")
	solveCmd.Flags().StringArrayVar(&solveMomEqs, "momeq", nil, "Moment equality expr=target (repeatable)")
	solveCmd.Flags().IntVar(&solveRounds, "rounds", 6, "Max relaxation rounds")
	solveCmd.Flags().IntVar(&solveMinOrder, "min-order", 0, "Minimum starting relaxation order")
	solveCmd.Flags().Float64Var(&solveRankTol, "rank-tol", 1e-6, "Relative eigenvalue cutoff for rank decisions")
	solveCmd.Flags().Int64Var(&solveSeed, "seed", 1, "Random seed for extraction")

	solveCmd.Flags().BoolVar(&refineAtoms, "refine", false, "Polish extracted atoms with the mayfly optimizer")
	solveCmd.Flags().Float64Var(&refineRadius, "refine-radius", 0.1, "Search radius around each atom")
	solveCmd.Flags().IntVar(&refineIters, "refine-iters", 200, "Refinement iterations")
	solveCmd.Flags().IntVar(&refinePop, "refine-pop", 30, "Refinement population size")

	solveCmd.Flags().StringVar(&plotPath, "plot", "", "Write convergence plot PNG to this path")
	solveCmd.Flags().StringVar(&scatterPath, "scatter", "", "Write atom scatter PNG to this path (2 vars only)")
	solveCmd.Flags().StringVar(&solveData, "data", "", "Checkpoint directory (empty disables checkpoints)")
	solveCmd.Flags().StringVar(&solveJobID, "job-id", "", "Checkpoint job ID (default: new UUID)")

	solveCmd.MarkFlagRequired("objective")
	rootCmd.AddCommand(solveCmd)
}

// runOptions bundles the post-solve actions shared between the solve and
// example commands.
type runOptions struct {
	refine       bool
	refineRadius float64
	refineIters  int
	refinePop    int
	plotPath     string
	scatterPath  string
	dataDir      string
	jobID        string
}

func runSolve(cmd *cobra.Command, args []string) error {
	momEqs, err := parseMomentTargets(solveMomEqs)
	if err != nil {
		return err
	}

	def := problem.Definition{
		Vars:             splitVars(solveVars),
		Objective:        solveObj,
		Inequalities:     solveIneqs,
		MomentEqualities: momEqs,
		MaxRounds:        solveRounds,
		MinOrder:         solveMinOrder,
		RankTol:          solveRankTol,
		Seed:             solveSeed,
	}

	return runDefinition(def, runOptions{
		refine:       refineAtoms,
		refineRadius: refineRadius,
		refineIters:  refineIters,
		refinePop:    refinePop,
		plotPath:     plotPath,
		scatterPath:  scatterPath,
		dataDir:      solveData,
		jobID:        solveJobID,
	})
}

// runDefinition builds the problem, drives the hierarchy, extracts atoms
// and applies the requested post-solve actions.
func runDefinition(def problem.Definition, opts runOptions) error {
	objective, cons, err := problem.Build(def)
	if err != nil {
		return err
	}

	slog.Info("Starting relaxation",
		"vars", def.Vars,
		"objective", def.Objective,
		"inequalities", len(def.Inequalities),
		"moment_equalities", len(def.MomentEqualities),
	)

	solver := sdp.NewConeSolver(0, 0, false)
	driver := sdp.NewDriver(solver, problem.DriverOptions(def))

	start := time.Now()
	res, err := driver.Run(context.Background(), objective, cons)
	if err != nil {
		if errors.Is(err, sdp.ErrInfeasible) {
			return fmt.Errorf("relaxation infeasible: the constraint set admits no measure")
		}
		return err
	}
	elapsed := time.Since(start)

	var set *extract.SolutionSet
	if res.Moments != nil {
		set, err = extract.Solutions(res, extract.Options{Seed: def.Seed})
		if err != nil {
			slog.Warn("Extraction failed; bound is still valid", "error", err)
			set = nil
		}
	}

	if set != nil && opts.refine {
		optimizer := opt.NewMayfly(opts.refineIters, opts.refinePop, def.Seed)
		set.Atoms = opt.Refine(objective, set.Atoms, opts.refineRadius, optimizer)
	}

	printResult(def, res, set, elapsed)

	if opts.plotPath != "" {
		if err := report.SaveConvergence(res.Rounds, opts.plotPath); err != nil {
			return fmt.Errorf("failed to write convergence plot: %w", err)
		}
		fmt.Printf("Wrote %s\n", opts.plotPath)
	}
	if opts.scatterPath != "" && set != nil {
		if err := report.SaveAtoms(set, def.Vars, opts.scatterPath); err != nil {
			return fmt.Errorf("failed to write atom plot: %w", err)
		}
		fmt.Printf("Wrote %s\n", opts.scatterPath)
	}

	if opts.dataDir != "" && res.Moments != nil {
		jobID := opts.jobID
		if jobID == "" {
			jobID = uuid.New().String()
		}
		checkpointStore, err := store.NewFSStore(opts.dataDir)
		if err != nil {
			return fmt.Errorf("failed to create checkpoint store: %w", err)
		}
		checkpoint := store.NewCheckpoint(
			jobID,
			len(res.Rounds),
			res.Order,
			res.Status.String(),
			res.Converged,
			res.Objective,
			res.Moments,
			def,
		)
		if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		fmt.Printf("Saved checkpoint %s\n", jobID)
	}

	return nil
}

// printResult writes the round trace, the bound and the recovered
// measure to stdout.
func printResult(def problem.Definition, res *sdp.Result, set *extract.SolutionSet, elapsed time.Duration) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROUND\tORDER\tBASIS\tRANK\tBOUND\tSTATUS")
	for _, r := range res.Rounds {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.6g\t%s\n", r.Round, r.Order, r.BasisSize, r.Rank, r.Objective, r.Status)
	}
	w.Flush()

	fmt.Println()
	fmt.Printf("Bound: %.6g (order %d, %s, %s)\n", res.Objective, res.Order, res.Status, elapsed.Round(time.Millisecond))
	if res.Converged {
		fmt.Println("Converged: flat-extension rank test passed")
	} else {
		fmt.Println("Not converged: bound may be below the true optimum")
	}

	if set == nil {
		return
	}

	fmt.Println()
	aw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "ATOM"
	for _, name := range def.Vars {
		header += "\t" + strings.ToUpper(name)
	}
	header += "\tWEIGHT"
	fmt.Fprintln(aw, header)
	for i, atom := range set.Atoms {
		row := strconv.Itoa(i)
		for _, v := range atom {
			row += fmt.Sprintf("\t%.6g", v)
		}
		row += fmt.Sprintf("\t%.6g", set.Weights[i])
		fmt.Fprintln(aw, row)
	}
	aw.Flush()
	if set.Residual > 1e-9 {
		fmt.Printf("Lost mass: %.3g\n", set.Residual)
	}
}

// splitVars parses a comma-separated variable list, trimming whitespace.
func splitVars(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseMomentTargets parses repeated "expr=target" flags. The split is
// on the last '=' so expressions containing none are rejected cleanly.
func parseMomentTargets(args []string) ([]store.MomentTarget, error) {
	var out []store.MomentTarget
	for _, arg := range args {
		i := strings.LastIndex(arg, "=")
		if i < 0 {
			return nil, fmt.Errorf("invalid moment equality %q: expected expr=target", arg)
		}
		target, err := strconv.ParseFloat(strings.TrimSpace(arg[i+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid moment equality %q: %w", arg, err)
		}
		out = append(out, store.MomentTarget{Expr: strings.TrimSpace(arg[:i]), Target: target})
	}
	return out, nil
}
