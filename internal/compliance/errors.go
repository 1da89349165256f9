package compliance

import "fmt"

// ValidationError reports malformed playbook input: a bad IP address, a
// missing device selector, or an invalid compliance category.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError reports that a site or device does not exist in the control
// plane.
type NotFoundError struct {
	Kind   string // "site" or "device"
	Name   string
	Detail string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %q not found: %s", e.Kind, e.Name, e.Detail)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// DispatchError reports that a remote trigger call failed or returned no task
// id. The operation never started, so nothing was polled.
type DispatchError struct {
	Operation string
	Devices   []string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("an error occurred while retrieving the task id of the %s operation on device(s) %v",
		e.Operation, e.Devices)
}

// PollError reports a task whose status could not be tracked: the status
// query failed or the task did not terminate within the timeout. PartialData
// carries the last status text observed before the failure, when any.
type PollError struct {
	Operation   string
	TaskID      string
	Reason      string
	PartialData string
}

func (e *PollError) Error() string {
	if e.PartialData != "" {
		return fmt.Sprintf("Task %s with task id %s %s. Task Status: %s", e.Operation, e.TaskID, e.Reason, e.PartialData)
	}
	return fmt.Sprintf("Task %s with task id %s %s", e.Operation, e.TaskID, e.Reason)
}

// PreconditionError reports that a config sync was requested while the
// devices' RUNNING_CONFIG compliance state does not permit it.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }
