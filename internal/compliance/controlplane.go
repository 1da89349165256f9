package compliance

import "context"

// DeviceInfo is the inventory view of a device as reported by the control
// plane before resolution.
type DeviceInfo struct {
	IPAddress    string
	InstanceID   string
	Reachability string
}

// Reachable is the reachability status required of every target device.
const Reachable = "Reachable"

// ControlPlane is the surface of the network management system the workflow
// talks to. internal/catalyst implements it over the REST API; tests supply
// fakes.
type ControlPlane interface {
	// ResolveSite maps a full hierarchical site name to its site id.
	ResolveSite(ctx context.Context, name string) (string, error)
	// DevicesByIP looks up inventory devices by management IP address.
	DevicesByIP(ctx context.Context, ip string) ([]DeviceInfo, error)
	// SiteMembers lists the devices assigned to a site.
	SiteMembers(ctx context.Context, siteID string) ([]DeviceInfo, error)
	// ComplianceDetail fetches per-category compliance records.
	ComplianceDetail(ctx context.Context, query DetailQuery) ([]ComplianceRecord, error)
	// TriggerCompliance starts a compliance scan and returns its task id.
	TriggerCompliance(ctx context.Context, req RunComplianceRequest) (string, error)
	// CommitDeviceConfig commits running config to startup and returns the
	// task id.
	CommitDeviceConfig(ctx context.Context, req SyncConfigRequest) (string, error)
	// TaskByID fetches one status snapshot of an asynchronous task.
	TaskByID(ctx context.Context, taskID string) (*TaskStatus, error)
	// TaskTree fetches the task and its subtasks. The root task is the first
	// entry.
	TaskTree(ctx context.Context, taskID string) ([]TaskStatus, error)
}
