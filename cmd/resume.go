package main

import (
	"fmt"

	"github.com/cwbudde/momentsolve/internal/store"
	"github.com/spf13/cobra"
)

var (
	resumeData    string
	resumeRounds  int
	resumeRankTol float64
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a relaxation from its checkpoint",
	Long: `Resumes a relaxation job from its saved checkpoint. Each SDP solve
is stateless, so resuming restarts the escalation loop at the recorded
relaxation order; at most one round of work is repeated. The problem
itself must be unchanged, while round budgets and tolerances may be
overridden.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeData, "data", "./data", "Checkpoint directory")
	resumeCmd.Flags().IntVar(&resumeRounds, "rounds", 0, "Override max relaxation rounds (0 keeps saved value)")
	resumeCmd.Flags().Float64Var(&resumeRankTol, "rank-tol", 0, "Override rank tolerance (0 keeps saved value)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	checkpointStore, err := store.NewFSStore(resumeData)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	checkpoint, err := checkpointStore.LoadCheckpoint(jobID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := checkpoint.Validate(); err != nil {
		return fmt.Errorf("checkpoint unusable: %w", err)
	}

	def := checkpoint.Config
	if resumeRounds > 0 {
		def.MaxRounds = resumeRounds
	}
	if resumeRankTol > 0 {
		def.RankTol = resumeRankTol
	}

	// Budgets and tolerances may change between runs; the problem must
	// not. Guards against a checkpoint edited by hand.
	if err := checkpoint.IsCompatible(def); err != nil {
		return fmt.Errorf("cannot resume: %w", err)
	}

	// Restart escalation at the order the checkpoint recorded.
	if checkpoint.Order > def.MinOrder {
		def.MinOrder = checkpoint.Order
	}

	fmt.Printf("Resuming job %s at order %d (round %d had bound %.6g)\n",
		jobID, def.MinOrder, checkpoint.Round, checkpoint.Objective)

	return runDefinition(def, runOptions{
		dataDir: resumeData,
		jobID:   jobID,
	})
}
