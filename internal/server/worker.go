package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/momentsolve/internal/extract"
	"github.com/cwbudde/momentsolve/internal/problem"
	"github.com/cwbudde/momentsolve/internal/sdp"
	"github.com/cwbudde/momentsolve/internal/store"
)

// runJob executes a relaxation job in the background. If checkpointStore
// is not nil, a checkpoint and a round trace are written after every
// round, so an interrupted job can be resumed at its last order.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, solver sdp.Solver, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "objective", job.Config.Objective, "vars", job.Config.Vars)

	objective, cons, err := problem.Build(job.Config)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	var trace *store.TraceWriter
	if fsStore, ok := checkpointStore.(*store.FSStore); ok {
		trace, err = store.NewTraceWriter(fsStore.BaseDir(), jobID, false)
		if err != nil {
			slog.Warn("Failed to open round trace", "job_id", jobID, "error", err)
			trace = nil
		} else {
			defer trace.Close()
		}
	}

	opts := problem.DriverOptions(job.Config)
	opts.Quiet = true
	opts.OnRound = func(r sdp.RoundReport) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Round = r.Round
			j.Order = r.Order
			j.Rank = r.Rank
			j.Objective = r.Objective
			j.SolverStatus = r.Status
		})
		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:     jobID,
			State:     StateRunning,
			Round:     r.Round,
			Order:     r.Order,
			BasisSize: r.BasisSize,
			Rank:      r.Rank,
			Objective: r.Objective,
			Status:    r.Status,
			Timestamp: time.Now(),
		})
		if trace != nil {
			trace.Write(store.TraceEntry{
				Round:     r.Round,
				Order:     r.Order,
				BasisSize: r.BasisSize,
				Rank:      r.Rank,
				Objective: r.Objective,
				Status:    r.Status,
				Timestamp: time.Now(),
			})
			trace.Flush()
		}
	}

	driver := sdp.NewDriver(solver, opts)
	start := time.Now()
	res, err := driver.Run(ctx, objective, cons)

	if ctx.Err() != nil {
		markJobCancelled(jm, jobID)
		return ctx.Err()
	}
	if err != nil {
		if errors.Is(err, sdp.ErrInfeasible) {
			markJobFailed(jm, jobID, fmt.Errorf("relaxation infeasible"))
		} else {
			markJobFailed(jm, jobID, err)
		}
		return err
	}

	if checkpointStore != nil && res.Moments != nil {
		checkpoint := store.NewCheckpoint(
			jobID,
			len(res.Rounds),
			res.Order,
			res.Status.String(),
			res.Converged,
			res.Objective,
			res.Moments,
			job.Config,
		)
		if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
			slog.Warn("Failed to save checkpoint", "job_id", jobID, "error", err)
		}
	}

	// Extract atoms from the final moment matrix. A non-converged run
	// still gets a best-effort extraction; failures there are reported
	// on the job rather than failing it.
	var set *extract.SolutionSet
	if res.Moments != nil {
		set, err = extract.Solutions(res, extract.Options{Seed: job.Config.Seed})
		if err != nil {
			slog.Warn("Extraction failed", "job_id", jobID, "error", err)
		}
	}

	elapsed := time.Since(start)
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Converged = res.Converged
		j.Objective = res.Objective
		j.Order = res.Order
		j.SolverStatus = res.Status.String()
		j.EndTime = &endTime
		if set != nil {
			j.Atoms = set.Atoms
			j.Weights = set.Weights
			j.Residual = set.Residual
		}
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"rounds", len(res.Rounds),
		"order", res.Order,
		"objective", res.Objective,
		"converged", res.Converged,
	)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCompleted,
		Round:     len(res.Rounds),
		Order:     res.Order,
		Objective: res.Objective,
		Status:    res.Status.String(),
		Timestamp: time.Now(),
	})

	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}
