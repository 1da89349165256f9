// Package compliance implements the network compliance workflow: resolving
// target devices in Catalyst Center, triggering compliance checks or device
// configuration sync, and polling the resulting tasks to completion.
package compliance

import (
	"sort"
	"time"
)

// Compliance categories accepted by the run_compliance action.
const (
	CategoryIntent          = "INTENT"
	CategoryRunningConfig   = "RUNNING_CONFIG"
	CategoryImage           = "IMAGE"
	CategoryPSIRT           = "PSIRT"
	CategoryEOX             = "EOX"
	CategoryNetworkSettings = "NETWORK_SETTINGS"
)

// ValidCategories is the set of categories accepted in a playbook.
var ValidCategories = []string{
	CategoryIntent,
	CategoryRunningConfig,
	CategoryImage,
	CategoryPSIRT,
	CategoryEOX,
	CategoryNetworkSettings,
}

// intentExpansion is the fixed set of compliance types the INTENT category
// maps to when querying compliance detail.
var intentExpansion = []string{
	"NETWORK_PROFILE",
	"APPLICATION_VISIBILITY",
	"WORKFLOW",
	"FABRIC",
	"NETWORK_SETTINGS",
}

// Compliance statuses reported by the control plane.
const (
	StatusCompliant    = "COMPLIANT"
	StatusNonCompliant = "NON_COMPLIANT"
)

// TargetSet maps management IP addresses to device instance UUIDs. It is
// produced once by the resolver and read-only afterwards.
type TargetSet map[string]string

// IPs returns the management IP addresses in sorted order.
func (t TargetSet) IPs() []string {
	ips := make([]string, 0, len(t))
	for ip := range t {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}

// InstanceIDs returns the device instance UUIDs, ordered by their IP address.
func (t TargetSet) InstanceIDs() []string {
	ids := make([]string, 0, len(t))
	for _, ip := range t.IPs() {
		ids = append(ids, t[ip])
	}
	return ids
}

// IPForInstanceID reverse-maps an instance UUID to its management IP address.
func (t TargetSet) IPForInstanceID(id string) (string, bool) {
	for ip, instanceID := range t {
		if instanceID == id {
			return ip, true
		}
	}
	return "", false
}

// ComplianceRecord is a single per-category compliance result for a device.
type ComplianceRecord struct {
	DeviceUUID     string `json:"deviceUuid"`
	ComplianceType string `json:"complianceType"`
	Status         string `json:"status"`
	State          string `json:"state,omitempty"`
	Remarks        string `json:"remarks,omitempty"`
}

// ComplianceByIP groups compliance records per management IP address,
// preserving the control plane's record order within each device.
type ComplianceByIP map[string][]ComplianceRecord

// RunComplianceRequest triggers a compliance scan on a set of devices.
type RunComplianceRequest struct {
	TriggerFull bool     `json:"triggerFull"`
	Categories  []string `json:"categories,omitempty"`
	DeviceUUIDs []string `json:"deviceUuids"`
}

// SyncConfigRequest commits running configuration to startup on a set of
// devices ("write memory").
type SyncConfigRequest struct {
	DeviceIDs []string `json:"deviceId"`
}

// DetailQuery selects compliance detail records. ComplianceType carries the
// control plane's quoted comma-joined encoding, e.g. `'IMAGE', 'PSIRT'`.
type DetailQuery struct {
	DeviceUUID     string
	ComplianceType string
}

// TaskKind distinguishes the two long-running operations the poller tracks.
type TaskKind int

const (
	TaskRunCompliance TaskKind = iota
	TaskSyncConfig
)

// String returns the operator-facing task name, matching the control plane's
// own wording for these operations.
func (k TaskKind) String() string {
	if k == TaskSyncConfig {
		return "Sync Device Configuration"
	}
	return "Run Compliance Check"
}

// TaskStatus is one status snapshot of an asynchronous control-plane task.
type TaskStatus struct {
	IsError       bool   `json:"isError"`
	Progress      string `json:"progress"`
	FailureReason string `json:"failureReason,omitempty"`
	Data          string `json:"data,omitempty"`
}

// Outcome is the final result of one requested action or of a whole run.
type Outcome struct {
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
	Message string `json:"msg"`
	// Response echoes the control plane's dispatch response (task id) of the
	// most recently triggered operation.
	Response map[string]string `json:"response,omitempty"`
	Data     ComplianceByIP    `json:"data,omitempty"`
}

// Outcome statuses.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool { return o.Status == OutcomeFailed }

// Task pairs an asynchronous task id with the operation that created it.
// StartedAt is the dispatch time; the poller measures its timeout from it.
type Task struct {
	ID        string
	Kind      TaskKind
	StartedAt time.Time
}
