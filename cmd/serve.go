package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/momentsolve/internal/sdp"
	"github.com/cwbudde/momentsolve/internal/server"
	"github.com/cwbudde/momentsolve/internal/store"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveData string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relaxation job server",
	Long: `Starts an HTTP server that accepts relaxation jobs over a JSON API
and streams per-round progress via SSE. With --data set, every finished
job writes a resumable checkpoint.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveData, "data", "", "Checkpoint directory (empty disables checkpoints)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	var checkpointStore store.Store
	if serveData != "" {
		fsStore, err := store.NewFSStore(serveData)
		if err != nil {
			return fmt.Errorf("failed to create checkpoint store: %w", err)
		}
		checkpointStore = fsStore
	}

	solver := sdp.NewConeSolver(0, 0, false)
	srv := server.NewServer(serveAddr, checkpointStore, solver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
