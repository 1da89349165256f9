package compliance

import (
	"context"
	"log"
	"strings"
	"time"
)

// RunComplianceSpec is the playbook's run_compliance action.
type RunComplianceSpec struct {
	TriggerFull bool
	Categories  []string
}

// RunSpec is the desired state for one playbook run entry.
type RunSpec struct {
	IPAddressList    []string
	SiteName         string
	RunCompliance    *RunComplianceSpec
	SyncDeviceConfig bool
	// Verify re-fetches compliance detail after a successful sync and logs
	// whether every device transitioned to COMPLIANT. Log-only.
	Verify bool
}

// Workflow orchestrates one run entry: resolve targets, gate the sync action
// on current compliance state, dispatch the requested operations, poll them to
// completion, and merge the outcomes.
type Workflow struct {
	api      ControlPlane
	resolver *Resolver
	poller   *Poller
	now      func() time.Time
}

// NewWorkflow returns a workflow backed by the given control plane.
func NewWorkflow(api ControlPlane, pollInterval time.Duration) *Workflow {
	return &Workflow{
		api:      api,
		resolver: NewResolver(api),
		poller:   NewPoller(api, pollInterval),
		now:      time.Now,
	}
}

// Execute runs one playbook entry end to end. Validation, resolution,
// precondition, and poll failures are returned as errors; dispatch failures
// and remote task failures are folded into the returned outcome.
func (w *Workflow) Execute(ctx context.Context, spec RunSpec) (Outcome, error) {
	if spec.RunCompliance == nil && !spec.SyncDeviceConfig {
		return Outcome{}, &ValidationError{
			Reason: "no actions were requested; supported actions are run_compliance and sync_device_config",
		}
	}
	if spec.RunCompliance != nil {
		if err := ValidateRunCompliance(spec.RunCompliance.TriggerFull, spec.RunCompliance.Categories); err != nil {
			return Outcome{}, err
		}
	}

	targets, err := w.resolver.Resolve(ctx, spec.IPAddressList, spec.SiteName)
	if err != nil {
		return Outcome{}, err
	}

	deviceUUIDs := strings.Join(targets.InstanceIDs(), ",")

	// The sync precondition is evaluated before dispatching anything: if the
	// devices are not uniformly NON_COMPLIANT the whole run fails here, even
	// when a compliance scan was also requested.
	var syncBaseline ComplianceByIP
	syncQuery := DetailQuery{DeviceUUID: deviceUUIDs, ComplianceType: CategoryRunningConfig}
	if spec.SyncDeviceConfig {
		records, err := w.api.ComplianceDetail(ctx, syncQuery)
		if err != nil {
			return Outcome{}, err
		}
		syncBaseline, err = GroupByIP(records, targets)
		if err != nil {
			return Outcome{}, err
		}
		required, msg := SyncRequired(syncBaseline, targets)
		if !required {
			log.Printf("[ERROR] %s", msg)
			return Outcome{}, &PreconditionError{Reason: msg}
		}
	}

	var outcomes []Outcome
	if spec.RunCompliance != nil {
		query := DetailQuery{DeviceUUID: deviceUUIDs}
		if len(spec.RunCompliance.Categories) > 0 {
			query.ComplianceType = QuoteJoin(ExpandCategories(spec.RunCompliance.Categories))
		}
		req := RunComplianceRequest{
			TriggerFull: spec.RunCompliance.TriggerFull,
			Categories:  spec.RunCompliance.Categories,
			DeviceUUIDs: targets.InstanceIDs(),
		}
		outcome, err := w.runCompliance(ctx, req, targets, query)
		if err != nil {
			return Outcome{}, err
		}
		outcomes = append(outcomes, outcome)
	}
	if spec.SyncDeviceConfig {
		outcome, err := w.syncDeviceConfig(ctx, SyncConfigRequest{DeviceIDs: targets.InstanceIDs()}, targets)
		if err != nil {
			return Outcome{}, err
		}
		if !outcome.Failed() && spec.Verify {
			w.verifySync(ctx, syncBaseline, syncQuery, targets)
		}
		outcomes = append(outcomes, outcome)
	}

	return mergeOutcomes(outcomes), nil
}

// runCompliance dispatches a compliance scan and polls it. A failed trigger
// call short-circuits as a failed outcome without entering the poller; a poll
// failure surfaces as a PollError.
func (w *Workflow) runCompliance(ctx context.Context, req RunComplianceRequest, targets TargetSet, query DetailQuery) (Outcome, error) {
	kind := TaskRunCompliance
	taskID, err := w.api.TriggerCompliance(ctx, req)
	if err != nil || taskID == "" {
		log.Printf("[ERROR] An error occurred while executing the run compliance operation: %v", err)
		dispatchErr := &DispatchError{Operation: kind.String(), Devices: targets.IPs()}
		log.Printf("[CRITICAL] %s", dispatchErr.Error())
		return Outcome{Status: OutcomeFailed, Message: dispatchErr.Error()}, nil
	}
	log.Printf("[INFO] Task id of the %s task created is %s", kind, taskID)
	outcome, err := w.poller.AwaitCompliance(ctx, Task{ID: taskID, Kind: kind, StartedAt: w.now()}, targets, query)
	if err != nil {
		return Outcome{}, err
	}
	outcome.Response = map[string]string{"taskId": taskID}
	return outcome, nil
}

// syncDeviceConfig dispatches a write-memory commit and polls its task tree.
func (w *Workflow) syncDeviceConfig(ctx context.Context, req SyncConfigRequest, targets TargetSet) (Outcome, error) {
	kind := TaskSyncConfig
	taskID, err := w.api.CommitDeviceConfig(ctx, req)
	if err != nil || taskID == "" {
		log.Printf("[ERROR] Error occurred while synchronizing device configuration: %v", err)
		dispatchErr := &DispatchError{Operation: kind.String(), Devices: targets.IPs()}
		log.Printf("[CRITICAL] %s", dispatchErr.Error())
		return Outcome{Status: OutcomeFailed, Message: dispatchErr.Error()}, nil
	}
	log.Printf("[INFO] Task id of the %s task created is %s", kind, taskID)
	outcome, err := w.poller.AwaitSync(ctx, Task{ID: taskID, Kind: kind, StartedAt: w.now()}, targets)
	if err != nil {
		return Outcome{}, err
	}
	outcome.Response = map[string]string{"taskId": taskID}
	return outcome, nil
}

// verifySync compares RUNNING_CONFIG compliance before and after a sync and
// logs whether every device transitioned NON_COMPLIANT to COMPLIANT. It never
// changes the run's outcome.
func (w *Workflow) verifySync(ctx context.Context, before ComplianceByIP, query DetailQuery, targets TargetSet) {
	records, err := w.api.ComplianceDetail(ctx, query)
	if err != nil {
		log.Printf("[WARN] Unable to verify the sync device configuration operation: %v", err)
		return
	}
	after, err := GroupByIP(records, targets)
	if err != nil {
		log.Printf("[WARN] Unable to verify the sync device configuration operation: %v", err)
		return
	}

	if !uniformStatus(before, StatusNonCompliant) {
		log.Printf("[WARN] Sync device configuration may not have been performed since devices have status other than NON_COMPLIANT.")
		return
	}
	if uniformStatus(after, StatusCompliant) {
		log.Printf("[INFO] Verified the success of the sync device configuration operation.")
	} else {
		log.Printf("[WARN] Sync device configuration operation may have been unsuccessful since not all devices have COMPLIANT status after the operation.")
	}
}

// uniformStatus reports whether every device's first record carries the given
// status.
func uniformStatus(details ComplianceByIP, status string) bool {
	if len(details) == 0 {
		return false
	}
	for _, records := range details {
		if len(records) == 0 || records[0].Status != status {
			return false
		}
	}
	return true
}

// mergeOutcomes folds per-action outcomes into one report: failed if any
// action failed, changed if any action changed device state.
func mergeOutcomes(outcomes []Outcome) Outcome {
	merged := Outcome{Status: OutcomeSuccess}
	var messages []string
	for _, outcome := range outcomes {
		if outcome.Failed() {
			merged.Status = OutcomeFailed
		}
		if outcome.Changed {
			merged.Changed = true
		}
		if outcome.Message != "" {
			messages = append(messages, outcome.Message)
		}
		if merged.Data == nil && outcome.Data != nil {
			merged.Data = outcome.Data
		}
		if outcome.Response != nil {
			merged.Response = outcome.Response
		}
	}
	merged.Message = strings.Join(messages, "; ")
	return merged
}
