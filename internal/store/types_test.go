package store

import (
	"errors"
	"testing"
	"time"
)

func validCheckpoint() *Checkpoint {
	return &Checkpoint{
		JobID:     "job-1",
		Round:     2,
		Order:     2,
		Status:    "optimal",
		Converged: true,
		Objective: 8.0,
		Moments:   []float64{1, 2, 2, 4, 4, 4},
		Timestamp: time.Now(),
		Config: ProblemConfig{
			Vars:      []string{"x", "y"},
			Objective: "x^2 + y^2",
			MomentEqualities: []MomentTarget{
				{Expr: "x + y", Target: 4},
			},
		},
	}
}

func TestCheckpoint_Validate(t *testing.T) {
	if err := validCheckpoint().Validate(); err != nil {
		t.Errorf("Valid checkpoint should pass validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Checkpoint)
	}{
		{"empty job ID", func(c *Checkpoint) { c.JobID = "" }},
		{"zero round", func(c *Checkpoint) { c.Round = 0 }},
		{"zero order", func(c *Checkpoint) { c.Order = 0 }},
		{"no moments", func(c *Checkpoint) { c.Moments = nil }},
		{"zero timestamp", func(c *Checkpoint) { c.Timestamp = time.Time{} }},
		{"no vars", func(c *Checkpoint) { c.Config.Vars = nil }},
		{"no objective", func(c *Checkpoint) { c.Config.Objective = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCheckpoint()
			tt.mutate(c)

			err := c.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}

func TestCheckpoint_ToInfo(t *testing.T) {
	c := validCheckpoint()
	info := c.ToInfo()

	if info.JobID != c.JobID {
		t.Errorf("JobID mismatch: got %s", info.JobID)
	}
	if info.Round != c.Round || info.Order != c.Order {
		t.Errorf("Round/order mismatch: got %d/%d", info.Round, info.Order)
	}
	if info.Objective != c.Objective {
		t.Errorf("Objective mismatch: got %v", info.Objective)
	}
	if info.ObjectiveExpr != c.Config.Objective {
		t.Errorf("ObjectiveExpr mismatch: got %q", info.ObjectiveExpr)
	}
	if len(info.Vars) != len(c.Config.Vars) {
		t.Errorf("Vars mismatch: got %v", info.Vars)
	}
}

func TestCheckpoint_IsCompatible(t *testing.T) {
	c := validCheckpoint()

	// Identical problem is compatible.
	if err := c.IsCompatible(c.Config); err != nil {
		t.Errorf("Identical config should be compatible: %v", err)
	}

	// Budget and tolerance changes are allowed.
	tuned := c.Config
	tuned.MaxRounds = 20
	tuned.RankTol = 1e-8
	tuned.MinOrder = 4
	tuned.Seed = 99
	if err := c.IsCompatible(tuned); err != nil {
		t.Errorf("Tuning changes should be compatible: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ProblemConfig)
	}{
		{"changed vars", func(cfg *ProblemConfig) { cfg.Vars = []string{"x", "z"} }},
		{"changed objective", func(cfg *ProblemConfig) { cfg.Objective = "x^4" }},
		{"changed inequalities", func(cfg *ProblemConfig) { cfg.Inequalities = []string{"1 - x^2"} }},
		{"changed moment equalities", func(cfg *ProblemConfig) {
			cfg.MomentEqualities = []MomentTarget{{Expr: "x", Target: 1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCheckpoint().Config
			tt.mutate(&cfg)

			err := c.IsCompatible(cfg)
			if err == nil {
				t.Fatal("Expected compatibility error")
			}
			var cerr *CompatibilityError
			if !errors.As(err, &cerr) {
				t.Errorf("Expected CompatibilityError, got %T", err)
			}
		})
	}
}

func TestNewCheckpoint(t *testing.T) {
	config := validCheckpoint().Config
	moments := []float64{1, 2, 4}

	c := NewCheckpoint("job-9", 3, 2, "optimal", true, 4.0, moments, config)

	if c.JobID != "job-9" {
		t.Errorf("JobID = %s", c.JobID)
	}
	if c.Round != 3 || c.Order != 2 {
		t.Errorf("Round/order = %d/%d", c.Round, c.Order)
	}
	if !c.Converged {
		t.Error("Converged should be set")
	}
	if c.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("NewCheckpoint should produce a valid checkpoint: %v", err)
	}
}

func TestNotFoundError_Is(t *testing.T) {
	err := &NotFoundError{JobID: "abc"}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	if errors.Is(err, &ValidationError{}) {
		t.Error("NotFoundError should not match other error types")
	}
}
