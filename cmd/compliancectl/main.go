// Package main implements compliancectl, a CLI that runs network compliance
// checks and device configuration sync against Catalyst Center.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"netcompliance/internal/catalyst"
	"netcompliance/internal/compliance"
	"netcompliance/internal/playbook"
	"netcompliance/internal/runlog"
)

var (
	playbookPath = flag.String("playbook", "", "Path to the playbook YAML (required)")
	host         = flag.String("host", "", "Catalyst Center base URL, e.g. https://ccc.example.com (required)")
	token        = flag.String("token", "", "API token (defaults to CCC_TOKEN environment variable)")
	reportDir    = flag.String("report-dir", "", "Directory to archive run outcomes as JSON (optional)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *playbookPath == "" {
		log.Fatal("Playbook path is required (use -playbook flag)")
	}
	if *host == "" {
		log.Fatal("Catalyst Center host is required (use -host flag)")
	}
	apiToken := *token
	if apiToken == "" {
		apiToken = os.Getenv("CCC_TOKEN")
	}
	if apiToken == "" {
		log.Fatal("API token is required (use -token flag or CCC_TOKEN environment variable)")
	}
	if !*debug {
		log.SetOutput(debugFilter{})
	}

	pb, err := playbook.Load(*playbookPath)
	if err != nil {
		log.Fatalf("[ERROR] Failed to load playbook: %v", err)
	}
	log.Printf("[INFO] Loaded playbook %s with %d run(s)", *playbookPath, len(pb.Runs))

	var archive *runlog.Store
	if *reportDir != "" {
		archive, err = runlog.New(*reportDir)
		if err != nil {
			log.Fatalf("[ERROR] Failed to open report directory: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("[WARN] Received signal %v, aborting", sig)
		cancel()
	}()

	client := catalyst.New(*host, apiToken)
	workflow := compliance.NewWorkflow(client, pb.PollInterval())

	failed := false
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	for i, run := range pb.Runs {
		outcome := executeRun(ctx, workflow, run.Spec(pb.Verify))
		if outcome.Failed() {
			failed = true
		}
		if archive != nil {
			if runID, err := archive.Save(outcome); err != nil {
				log.Printf("[WARN] Failed to archive outcome of run %d: %v", i+1, err)
			} else {
				log.Printf("[INFO] Run %d archived as %s", i+1, runID)
			}
		}
		if err := encoder.Encode(outcome); err != nil {
			log.Printf("[ERROR] Failed to encode outcome of run %d: %v", i+1, err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

// executeRun folds workflow failures (validation, resolution, sync
// precondition, task polling) into a failed outcome so every run produces
// exactly one report.
func executeRun(ctx context.Context, workflow *compliance.Workflow, spec compliance.RunSpec) compliance.Outcome {
	outcome, err := workflow.Execute(ctx, spec)
	if err == nil {
		return outcome
	}

	var validationErr *compliance.ValidationError
	var notFoundErr *compliance.NotFoundError
	var preconditionErr *compliance.PreconditionError
	var pollErr *compliance.PollError
	switch {
	case errors.As(err, &validationErr):
		log.Printf("[ERROR] Invalid run configuration: %v", err)
	case errors.As(err, &notFoundErr):
		log.Printf("[ERROR] Target resolution failed: %v", err)
	case errors.As(err, &preconditionErr):
		log.Printf("[ERROR] Sync precondition not met: %v", err)
	case errors.As(err, &pollErr):
		log.Printf("[ERROR] Task polling failed: %v", err)
	default:
		log.Printf("[ERROR] Run failed: %v", err)
	}
	return compliance.Outcome{Status: compliance.OutcomeFailed, Message: err.Error()}
}

// debugFilter drops [DEBUG] lines when -debug is not set.
type debugFilter struct{}

func (debugFilter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("[DEBUG]")) {
		return len(p), nil
	}
	return os.Stderr.Write(p)
}
