package compliance

import "fmt"

// GroupByIP rekeys raw compliance detail records from device UUID to
// management IP address, preserving the control plane's record order per
// device. A record whose UUID is not in the target set indicates a
// resolver/detail mismatch and is fatal.
func GroupByIP(records []ComplianceRecord, targets TargetSet) (ComplianceByIP, error) {
	grouped := make(ComplianceByIP)
	for _, record := range records {
		ip, ok := targets.IPForInstanceID(record.DeviceUUID)
		if !ok {
			return nil, fmt.Errorf("compliance record for unknown device uuid %s: not in resolved target set", record.DeviceUUID)
		}
		grouped[ip] = append(grouped[ip], record)
	}
	return grouped, nil
}
