package compliance

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

const (
	// Hard ceiling on how long a dispatched task is polled. Once exceeded the
	// task is reported failed locally; it may still be running remotely.
	taskTimeout = 360 * time.Second

	// Default delay between status queries.
	defaultPollInterval = 2 * time.Second
)

// Per-device result markers the control plane embeds in the free-text
// progress of config-sync subtasks. This substring matching is the wire
// contract; the progress field has no structured form.
const (
	syncSuccessMarker = "copy_Running_To_Startup=Success"
	syncFailureMarker = "copy_Running_To_Startup=Failed"
)

// Poller drives a dispatched task to a terminal state by repeatedly querying
// the task subsystem. The clock and sleep functions are injectable so tests
// can simulate elapsed time.
type Poller struct {
	api      ControlPlane
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
}

// NewPoller returns a poller using the real clock. A non-positive interval
// falls back to the default poll cadence.
func NewPoller(api ControlPlane, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{api: api, interval: interval, now: time.Now, sleep: time.Sleep}
}

// AwaitCompliance polls a compliance-scan task until it reaches a terminal
// state. On success the compliance detail is re-fetched and attached to the
// outcome. Remote task failures are terminal outcomes; a status query failure
// or a timeout is a PollError.
func (p *Poller) AwaitCompliance(ctx context.Context, task Task, targets TargetSet, query DetailQuery) (Outcome, error) {
	taskName := task.Kind.String()
	start := p.epoch(task)

	for {
		status, err := p.api.TaskByID(ctx, task.ID)
		if err != nil || status == nil {
			pollErr := &PollError{Operation: taskName, TaskID: task.ID, Reason: "status could not be retrieved"}
			log.Printf("[ERROR] %s: %v", pollErr, err)
			return Outcome{}, pollErr
		}

		if p.now().Sub(start) > taskTimeout {
			return Outcome{}, timeoutError(taskName, task.ID, status.Data)
		}

		if status.IsError {
			return taskErrorOutcome(taskName, targets, status.FailureReason), nil
		}

		progress := strings.ToLower(status.Progress)
		if strings.Contains(progress, "success") {
			msg := fmt.Sprintf("%s has completed successfully on device(s): %v", taskName, targets.IPs())
			log.Printf("[INFO] %s", msg)

			records, err := p.api.ComplianceDetail(ctx, query)
			if err != nil {
				msg := fmt.Sprintf("%s succeeded but retrieving compliance detail failed: %v", taskName, err)
				log.Printf("[ERROR] %s", msg)
				return Outcome{Status: OutcomeFailed, Changed: true, Message: msg}, nil
			}
			grouped, err := GroupByIP(records, targets)
			if err != nil {
				log.Printf("[ERROR] %v", err)
				return Outcome{Status: OutcomeFailed, Changed: true, Message: err.Error()}, nil
			}
			return Outcome{Status: OutcomeSuccess, Changed: true, Message: msg, Data: grouped}, nil
		}
		if strings.Contains(progress, "failed") {
			msg := fmt.Sprintf("Failed to %s on the following device(s): %v", taskName, targets.IPs())
			log.Printf("[CRITICAL] %s", msg)
			return Outcome{Status: OutcomeFailed, Message: msg}, nil
		}

		log.Printf("[DEBUG] Task %s (%s) still in progress: %s", task.ID, taskName, status.Progress)
		p.sleep(p.interval)
	}
}

// AwaitSync polls a config-sync task tree until every target device has a
// per-device result marker. Partial success is terminal: the overall outcome
// is failed but changed, since some devices committed their configuration.
func (p *Poller) AwaitSync(ctx context.Context, task Task, targets TargetSet) (Outcome, error) {
	taskName := task.Kind.String()
	start := p.epoch(task)

	for {
		tree, err := p.api.TaskTree(ctx, task.ID)
		if err != nil || len(tree) == 0 {
			pollErr := &PollError{Operation: taskName, TaskID: task.ID, Reason: "task tree could not be retrieved"}
			log.Printf("[ERROR] %s: %v", pollErr, err)
			return Outcome{}, pollErr
		}

		if p.now().Sub(start) > taskTimeout {
			return Outcome{}, timeoutError(taskName, task.ID, tree[0].Data)
		}

		if tree[0].IsError {
			return taskErrorOutcome(taskName, targets, tree[0].FailureReason), nil
		}

		succeeded, failed := partitionSyncResults(tree[1:], targets)
		switch {
		case len(succeeded) == len(targets):
			msg := fmt.Sprintf("%s has completed successfully on device(s): %v", taskName, succeeded)
			log.Printf("[INFO] %s", msg)
			return Outcome{Status: OutcomeSuccess, Changed: true, Message: msg}, nil
		case len(failed) == len(targets):
			msg := fmt.Sprintf("%s task has failed on device(s): %v", taskName, failed)
			log.Printf("[CRITICAL] %s", msg)
			return Outcome{Status: OutcomeFailed, Message: msg}, nil
		case len(failed) > 0 && len(failed)+len(succeeded) == len(targets):
			msg := fmt.Sprintf("%s task has failed on device(s): %v and succeeded on device(s): %v", taskName, failed, succeeded)
			log.Printf("[CRITICAL] %s", msg)
			return Outcome{Status: OutcomeFailed, Changed: true, Message: msg}, nil
		}

		log.Printf("[DEBUG] Task %s (%s): %d of %d device(s) reported", task.ID, taskName, len(succeeded)+len(failed), len(targets))
		p.sleep(p.interval)
	}
}

// epoch returns the instant the timeout is measured from. The dispatch time
// recorded on the task wins; a zero value falls back to the poller's clock.
func (p *Poller) epoch(task Task) time.Time {
	if !task.StartedAt.IsZero() {
		return task.StartedAt
	}
	return p.now()
}

func timeoutError(taskName, taskID, partial string) *PollError {
	err := &PollError{
		Operation:   taskName,
		TaskID:      taskID,
		Reason:      "has not completed within the timeout period",
		PartialData: partial,
	}
	log.Printf("[ERROR] %s", err)
	return err
}

func taskErrorOutcome(taskName string, targets TargetSet, failureReason string) Outcome {
	var msg string
	if failureReason != "" {
		msg = fmt.Sprintf("An error occurred while performing %s on device(s): %v. The operation failed due to the following reason: %s",
			taskName, targets.IPs(), failureReason)
	} else {
		msg = fmt.Sprintf("An error occurred while performing %s on device(s): %v", taskName, targets.IPs())
	}
	log.Printf("[ERROR] %s", msg)
	return Outcome{Status: OutcomeFailed, Message: msg}
}

// partitionSyncResults scans subtask progress text for per-device result
// markers and partitions the target devices into succeeded and failed sets.
// A device with no marker yet appears in neither.
func partitionSyncResults(subtasks []TaskStatus, targets TargetSet) (succeeded, failed []string) {
	successSet := make(map[string]struct{})
	failureSet := make(map[string]struct{})
	for _, subtask := range subtasks {
		for ip, instanceID := range targets {
			if !strings.Contains(subtask.Progress, instanceID) {
				continue
			}
			if strings.Contains(subtask.Progress, syncSuccessMarker) {
				successSet[ip] = struct{}{}
			} else if strings.Contains(subtask.Progress, syncFailureMarker) {
				failureSet[ip] = struct{}{}
			}
		}
	}
	for ip := range successSet {
		succeeded = append(succeeded, ip)
	}
	for ip := range failureSet {
		failed = append(failed, ip)
	}
	sort.Strings(succeeded)
	sort.Strings(failed)
	return succeeded, failed
}
