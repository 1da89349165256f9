package compliance

import (
	"fmt"
	"log"
)

// SyncRequired decides whether a device configuration sync is permissible
// given the devices' current RUNNING_CONFIG compliance state. Sync proceeds
// only when every target device is NON_COMPLIANT. Each device is classified by
// its first record's status.
func SyncRequired(details ComplianceByIP, targets TargetSet) (bool, string) {
	taskName := TaskSyncConfig.String()

	compliant := 0
	nonCompliant := 0
	for ip, records := range details {
		if len(records) == 0 {
			continue
		}
		switch records[0].Status {
		case StatusNonCompliant:
			nonCompliant++
		case StatusCompliant:
			compliant++
		default:
			log.Printf("[DEBUG] Device %s has RUNNING_CONFIG status %q", ip, records[0].Status)
		}
	}
	log.Printf("[INFO] Devices categorized by compliance status: %d compliant, %d non-compliant, %d total",
		compliant, nonCompliant, len(targets))

	if compliant == len(targets) {
		return false, fmt.Sprintf("Device(s) %v are already compliant with the RUNNING_CONFIG compliance type. Therefore, %s is not required.",
			targets.IPs(), taskName)
	}
	if nonCompliant != len(targets) {
		return false, fmt.Sprintf("The operation %s cannot be performed on one or more of the devices %v because the status of the RUNNING_CONFIG compliance type is not as expected; it should be NON_COMPLIANT.",
			taskName, targets.IPs())
	}
	return true, ""
}
