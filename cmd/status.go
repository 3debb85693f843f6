package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var url string

	if len(args) == 0 {
		// List all jobs
		url = fmt.Sprintf("%s/api/v1/jobs", serverURL)
		return listJobs(url)
	} else {
		// Get specific job status
		jobID := args[0]
		url = fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID)
		return getJobStatus(url, jobID)
	}
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		config := job["config"].(map[string]interface{})
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		fmt.Printf("  Objective: %s\n", config["objective"])
		fmt.Printf("  Vars: %v\n", config["vars"])
		if job["round"] != nil && job["round"].(float64) > 0 {
			fmt.Printf("  Round: %v (order %v, bound %.6g)\n", job["round"], job["order"], job["objective"])
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// Display status
	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	config := status["config"].(map[string]interface{})
	fmt.Println("Problem:")
	fmt.Printf("  Vars: %v\n", config["vars"])
	fmt.Printf("  Objective: %s\n", config["objective"])
	if ineqs, ok := config["inequalities"].([]interface{}); ok {
		for _, g := range ineqs {
			fmt.Printf("  Subject to: %s >= 0\n", g)
		}
	}
	if moms, ok := config["momentEqualities"].([]interface{}); ok {
		for _, m := range moms {
			mt := m.(map[string]interface{})
			fmt.Printf("  Moment: E[%s] = %v\n", mt["expr"], mt["target"])
		}
	}
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Round: %v\n", status["round"])
	fmt.Printf("  Order: %v\n", status["order"])
	fmt.Printf("  Rank: %v\n", status["rank"])
	if bound, ok := status["objective"].(float64); ok {
		fmt.Printf("  Bound: %.6g\n", bound)
	}
	if solver, ok := status["solverStatus"].(string); ok && solver != "" {
		fmt.Printf("  Solver: %s\n", solver)
	}
	fmt.Printf("  Converged: %v\n", status["converged"])

	if status["elapsed"] != nil {
		elapsed := time.Duration(status["elapsed"].(float64) * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("\nError: %s\n", errMsg)
	}

	return nil
}
