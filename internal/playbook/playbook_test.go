package playbook_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"netcompliance/internal/playbook"
)

func writePlaybook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playbook.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write playbook: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writePlaybook(t, `
poll_interval: 5
verify: true
runs:
  - ip_address_list: ["204.1.2.2", "204.1.2.5"]
    run_compliance:
      trigger_full: true
  - site_name: "Global/USA/San Francisco/Building_2/floor_1"
    run_compliance:
      trigger_full: false
      categories: [INTENT, RUNNING_CONFIG]
    sync_device_config: true
`)

	pb, err := playbook.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if pb.PollInterval() != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", pb.PollInterval())
	}
	if !pb.Verify {
		t.Error("Verify = false, want true")
	}
	if len(pb.Runs) != 2 {
		t.Fatalf("len(Runs) = %d, want 2", len(pb.Runs))
	}

	spec := pb.Runs[1].Spec(pb.Verify)
	if spec.SiteName == "" || !spec.SyncDeviceConfig || !spec.Verify {
		t.Errorf("Spec = %+v, want site-based verified sync", spec)
	}
	if spec.RunCompliance == nil || spec.RunCompliance.TriggerFull {
		t.Errorf("Spec.RunCompliance = %+v, want partial check", spec.RunCompliance)
	}
	if len(spec.RunCompliance.Categories) != 2 {
		t.Errorf("Categories = %v, want 2 entries", spec.RunCompliance.Categories)
	}

	// Verify only applies to entries that actually sync.
	first := pb.Runs[0].Spec(pb.Verify)
	if first.Verify {
		t.Error("Spec.Verify = true for a run without sync_device_config")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no runs",
			content: "runs: []\n",
			wantErr: "no runs",
		},
		{
			name: "no selector",
			content: `
runs:
  - run_compliance:
      trigger_full: true
`,
			wantErr: "either ip_address_list or site_name",
		},
		{
			name: "no action",
			content: `
runs:
  - ip_address_list: ["10.0.0.1"]
`,
			wantErr: "no actions were requested",
		},
		{
			name: "missing trigger_full",
			content: `
runs:
  - ip_address_list: ["10.0.0.1"]
    run_compliance:
      categories: [IMAGE]
`,
			wantErr: "trigger_full is a required parameter",
		},
		{
			name: "negative poll interval",
			content: `
poll_interval: -2
runs:
  - ip_address_list: ["10.0.0.1"]
    sync_device_config: true
`,
			wantErr: "poll_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := playbook.Load(writePlaybook(t, tt.content))
			if err == nil {
				t.Fatal("Load succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := playbook.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded, want error")
	}
}
