package server

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/momentsolve/internal/store"
)

func testJobConfig() JobConfig {
	return JobConfig{
		Vars:      []string{"x", "y"},
		Objective: "x^2 + y^2",
		MomentEqualities: []store.MomentTarget{
			{Expr: "x + y", Target: 4},
		},
		MaxRounds: 3,
	}
}

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testJobConfig())

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}

	if job.Config.Objective != "x^2 + y^2" {
		t.Errorf("Config not set correctly")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testJobConfig())

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Error("Job should exist")
	}

	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	_, exists = jm.GetJob("nonexistent")
	if exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	jm.CreateJob(JobConfig{Vars: []string{"x"}, Objective: "x"})
	jm.CreateJob(JobConfig{Vars: []string{"x"}, Objective: "x^2"})

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testJobConfig())

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Round = 2
		j.Objective = 7.5
	})

	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Round != 2 {
		t.Error("Round should be updated")
	}
	if updated.Objective != 7.5 {
		t.Error("Objective should be updated")
	}

	err = jm.UpdateJob("nonexistent", func(j *Job) {})
	if err == nil {
		t.Error("Update of nonexistent job should fail")
	}
}

func TestJobManager_Cancel(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testJobConfig())

	if jm.Cancel(job.ID) {
		t.Error("Cancel without a registered hook should report false")
	}

	called := false
	jm.RegisterCancel(job.ID, func() { called = true })

	if !jm.Cancel(job.ID) {
		t.Error("Cancel with a registered hook should report true")
	}
	if !called {
		t.Error("Cancel should invoke the registered hook")
	}

	// Hook is consumed on first use.
	if jm.Cancel(job.ID) {
		t.Error("Second cancel should report false")
	}
}

func TestJobManager_SnapshotIsolation(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testJobConfig())

	// A snapshot must not observe later updates.
	before, _ := jm.GetJob(job.ID)
	jm.UpdateJob(job.ID, func(j *Job) {
		j.Round = 5
		j.Atoms = [][]float64{{2, 2}}
		j.Weights = []float64{1}
	})
	if before.Round != 0 || before.Atoms != nil {
		t.Errorf("Snapshot changed after update: round %d, atoms %v", before.Round, before.Atoms)
	}

	after, _ := jm.GetJob(job.ID)
	if after.Round != 5 || len(after.Atoms) != 1 {
		t.Fatalf("Fresh snapshot missed the update: %+v", after)
	}

	// Mutating a snapshot must not reach the stored job.
	after.Atoms[0][0] = 99
	after.Weights[0] = 99
	check, _ := jm.GetJob(job.ID)
	if check.Atoms[0][0] != 2 || check.Weights[0] != 1 {
		t.Errorf("Snapshot mutation leaked into the store: %v %v", check.Atoms, check.Weights)
	}
}

func TestJobManager_ConcurrentReadDuringUpdates(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testJobConfig())

	// A worker-style writer mutates the job while readers JSON-encode
	// it, as the HTTP handlers do for a running job.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		round := 0
		for {
			select {
			case <-stop:
				return
			default:
			}
			round++
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Round = round
				j.Objective = float64(round)
				j.Atoms = [][]float64{{float64(round), 2}}
				j.Weights = []float64{1}
			})
		}
	}()

	for i := 0; i < 200; i++ {
		got, _ := jm.GetJob(job.ID)
		if _, err := json.Marshal(got); err != nil {
			t.Fatalf("Marshal of snapshot failed: %v", err)
		}
		if _, err := json.Marshal(jm.ListJobs()); err != nil {
			t.Fatalf("Marshal of job list failed: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testJobConfig())

	// Simulate concurrent updates
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(round int) {
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Round = round
				time.Sleep(1 * time.Millisecond)
			})
			done <- true
		}(i)
	}

	// Wait for all updates
	for i := 0; i < 10; i++ {
		<-done
	}

	// Should not crash - actual value depends on race
	_, exists := jm.GetJob(job.ID)
	if !exists {
		t.Error("Job should still exist after concurrent updates")
	}
}
