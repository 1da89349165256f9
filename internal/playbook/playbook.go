// Package playbook defines the YAML playbook a compliancectl invocation
// executes: one or more run entries, each selecting devices and requesting a
// compliance check, a config sync, or both.
package playbook

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"netcompliance/internal/compliance"
)

// Playbook is the top-level playbook document.
type Playbook struct {
	// PollIntervalSeconds is the delay between task status queries. Zero
	// means the workflow default.
	PollIntervalSeconds int `yaml:"poll_interval"`
	// Verify logs a post-sync compliance comparison after each successful
	// sync_device_config action.
	Verify bool  `yaml:"verify"`
	Runs   []Run `yaml:"runs"`
}

// PollInterval returns the configured poll cadence as a duration.
func (p *Playbook) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

// Run is one run entry.
type Run struct {
	IPAddressList    []string       `yaml:"ip_address_list"`
	SiteName         string         `yaml:"site_name"`
	RunCompliance    *RunCompliance `yaml:"run_compliance"`
	SyncDeviceConfig bool           `yaml:"sync_device_config"`
}

// RunCompliance configures the compliance scan action. TriggerFull is a
// pointer so that omitting it can be distinguished from a deliberate false.
type RunCompliance struct {
	TriggerFull *bool    `yaml:"trigger_full"`
	Categories  []string `yaml:"categories"`
}

// Load reads and validates a playbook file.
func Load(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook: %w", err)
	}
	var pb Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("failed to parse playbook: %w", err)
	}
	if err := pb.Validate(); err != nil {
		return nil, err
	}
	return &pb, nil
}

// Validate checks the structural constraints yaml decoding cannot express.
// Semantic validation (IP syntax, category names) happens in the workflow.
func (p *Playbook) Validate() error {
	if len(p.Runs) == 0 {
		return fmt.Errorf("playbook contains no runs")
	}
	if p.PollIntervalSeconds < 0 {
		return fmt.Errorf("poll_interval must not be negative")
	}
	for i, run := range p.Runs {
		if len(run.IPAddressList) == 0 && run.SiteName == "" {
			return fmt.Errorf("run %d: either ip_address_list or site_name must be provided", i+1)
		}
		if run.RunCompliance == nil && !run.SyncDeviceConfig {
			return fmt.Errorf("run %d: no actions were requested; supported actions are run_compliance and sync_device_config", i+1)
		}
		if run.RunCompliance != nil && run.RunCompliance.TriggerFull == nil {
			return fmt.Errorf("run %d: trigger_full is a required parameter in order to run a compliance check; set trigger_full to either true or false", i+1)
		}
	}
	return nil
}

// Spec converts a run entry to the workflow's desired-state record.
func (r Run) Spec(verify bool) compliance.RunSpec {
	spec := compliance.RunSpec{
		IPAddressList:    r.IPAddressList,
		SiteName:         r.SiteName,
		SyncDeviceConfig: r.SyncDeviceConfig,
		Verify:           verify && r.SyncDeviceConfig,
	}
	if r.RunCompliance != nil {
		spec.RunCompliance = &compliance.RunComplianceSpec{
			TriggerFull: r.RunCompliance.TriggerFull != nil && *r.RunCompliance.TriggerFull,
			Categories:  r.RunCompliance.Categories,
		}
	}
	return spec
}
