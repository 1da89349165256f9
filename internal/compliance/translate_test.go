package compliance

import "testing"

func TestGroupByIP(t *testing.T) {
	targets := TargetSet{"10.0.0.1": "uuid-1", "10.0.0.2": "uuid-2"}
	records := []ComplianceRecord{
		{DeviceUUID: "uuid-1", ComplianceType: "RUNNING_CONFIG", Status: StatusNonCompliant},
		{DeviceUUID: "uuid-2", ComplianceType: "RUNNING_CONFIG", Status: StatusCompliant},
		{DeviceUUID: "uuid-1", ComplianceType: "IMAGE", Status: StatusCompliant},
	}

	grouped, err := GroupByIP(records, targets)
	if err != nil {
		t.Fatalf("GroupByIP failed: %v", err)
	}

	total := 0
	for _, deviceRecords := range grouped {
		total += len(deviceRecords)
	}
	if total != len(records) {
		t.Errorf("GroupByIP dropped records: got %d, want %d", total, len(records))
	}
	if len(grouped["10.0.0.1"]) != 2 {
		t.Errorf("records for 10.0.0.1 = %d, want 2", len(grouped["10.0.0.1"]))
	}
	// Source order of categories must be preserved per device.
	if grouped["10.0.0.1"][0].ComplianceType != "RUNNING_CONFIG" || grouped["10.0.0.1"][1].ComplianceType != "IMAGE" {
		t.Errorf("record order for 10.0.0.1 not preserved: %v", grouped["10.0.0.1"])
	}
}

func TestGroupByIPUnknownUUID(t *testing.T) {
	targets := TargetSet{"10.0.0.1": "uuid-1"}
	records := []ComplianceRecord{{DeviceUUID: "uuid-9", Status: StatusCompliant}}

	if _, err := GroupByIP(records, targets); err == nil {
		t.Fatal("GroupByIP accepted a record for an unresolved device, want error")
	}
}
