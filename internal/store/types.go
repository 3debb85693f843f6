package store

import (
	"fmt"
	"time"
)

// MomentTarget pairs a moment-equality expression with its target value.
type MomentTarget struct {
	Expr   string  `json:"expr"`
	Target float64 `json:"target"`
}

// ProblemConfig describes a generalized moment problem in its
// human-authored expression form. This is the checkpoint copy, kept
// here to avoid import cycles with the server package.
type ProblemConfig struct {
	Vars             []string       `json:"vars"`
	Objective        string         `json:"objective"`
	Inequalities     []string       `json:"inequalities,omitempty"`
	MomentEqualities []MomentTarget `json:"momentEqualities,omitempty"`
	MaxRounds        int            `json:"maxRounds,omitempty"`
	MinOrder         int            `json:"minOrder,omitempty"`
	RankTol          float64        `json:"rankTol,omitempty"`
	Seed             int64          `json:"seed,omitempty"`
}

// Checkpoint is a persisted relaxation state that can be resumed later.
//
// The checkpoint saves the last completed round's moment vector and
// relaxation order, but not the SDP solver's internal iterates: each
// solve is stateless, so resuming restarts the escalation loop at the
// recorded order rather than inside a solve. A resumed run therefore
// repeats at most one round of work and its bound can only tighten.
type Checkpoint struct {
	// JobID is the unique identifier for this relaxation job.
	JobID string `json:"jobId"`

	// Round is the last completed relaxation round.
	Round int `json:"round"`

	// Order is the relaxation order used by that round.
	Order int `json:"order"`

	// Status is that round's solver status (optimal, unknown, ...).
	Status string `json:"status"`

	// Converged reports whether the flat-extension rank condition held.
	Converged bool `json:"converged"`

	// Objective is the relaxation bound reported by that round.
	Objective float64 `json:"objective"`

	// Moments is the consolidated moment vector of that round.
	Moments []float64 `json:"moments"`

	// Timestamp records when this checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Config holds the problem, needed for validation during resume.
	Config ProblemConfig `json:"config"`
}

// NewCheckpoint creates a checkpoint from runtime relaxation state.
func NewCheckpoint(jobID string, round, order int, status string, converged bool, objective float64, moments []float64, config ProblemConfig) *Checkpoint {
	return &Checkpoint{
		JobID:     jobID,
		Round:     round,
		Order:     order,
		Status:    status,
		Converged: converged,
		Objective: objective,
		Moments:   moments,
		Timestamp: time.Now(),
		Config:    config,
	}
}

// CheckpointInfo contains checkpoint metadata without the moment vector.
// Used for listing checkpoints without loading large arrays.
type CheckpointInfo struct {
	JobID         string    `json:"jobId"`
	Round         int       `json:"round"`
	Order         int       `json:"order"`
	Status        string    `json:"status"`
	Converged     bool      `json:"converged"`
	Objective     float64   `json:"objective"`
	Timestamp     time.Time `json:"timestamp"`
	Vars          []string  `json:"vars"`
	ObjectiveExpr string    `json:"objectiveExpr"`
}

// ToInfo converts a full Checkpoint to its metadata.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:         c.JobID,
		Round:         c.Round,
		Order:         c.Order,
		Status:        c.Status,
		Converged:     c.Converged,
		Objective:     c.Objective,
		Timestamp:     c.Timestamp,
		Vars:          c.Config.Vars,
		ObjectiveExpr: c.Config.Objective,
	}
}

// Validate checks that the checkpoint has usable data.
// Returns an error if any required field is missing or invalid.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if c.Round <= 0 {
		return &ValidationError{Field: "Round", Reason: "must be positive"}
	}
	if c.Order <= 0 {
		return &ValidationError{Field: "Order", Reason: "must be positive"}
	}
	if len(c.Moments) == 0 {
		return &ValidationError{Field: "Moments", Reason: "cannot be empty"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if len(c.Config.Vars) == 0 {
		return &ValidationError{Field: "Config.Vars", Reason: "cannot be empty"}
	}
	if c.Config.Objective == "" {
		return &ValidationError{Field: "Config.Objective", Reason: "cannot be empty"}
	}
	return nil
}

// IsCompatible checks whether this checkpoint can be resumed with the
// given config: the problem itself must be unchanged, while budgets and
// tolerances may differ between runs.
func (c *Checkpoint) IsCompatible(config ProblemConfig) error {
	if fmt.Sprint(c.Config.Vars) != fmt.Sprint(config.Vars) {
		return &CompatibilityError{
			Field:    "Vars",
			Expected: fmt.Sprint(c.Config.Vars),
			Actual:   fmt.Sprint(config.Vars),
		}
	}
	if c.Config.Objective != config.Objective {
		return &CompatibilityError{
			Field:    "Objective",
			Expected: c.Config.Objective,
			Actual:   config.Objective,
		}
	}
	if fmt.Sprint(c.Config.Inequalities) != fmt.Sprint(config.Inequalities) {
		return &CompatibilityError{
			Field:    "Inequalities",
			Expected: fmt.Sprint(c.Config.Inequalities),
			Actual:   fmt.Sprint(config.Inequalities),
		}
	}
	if fmt.Sprint(c.Config.MomentEqualities) != fmt.Sprint(config.MomentEqualities) {
		return &CompatibilityError{
			Field:    "MomentEqualities",
			Expected: fmt.Sprint(c.Config.MomentEqualities),
			Actual:   fmt.Sprint(config.MomentEqualities),
		}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
