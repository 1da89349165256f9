package compliance

import (
	"context"
	"fmt"
	"time"
)

// fakeControlPlane scripts control-plane responses for workflow tests.
type fakeControlPlane struct {
	sites      map[string]string
	devices    map[string][]DeviceInfo
	deviceErrs map[string]error
	members    map[string][]DeviceInfo
	membersErr error

	detail        []ComplianceRecord
	detailErr     error
	detailQueries []DetailQuery

	triggerTaskID string
	triggerErr    error
	triggered     []RunComplianceRequest
	commitTaskID  string
	commitErr     error
	committed     []SyncConfigRequest

	statuses    []*TaskStatus
	statusErr   error
	statusCalls int
	trees       [][]TaskStatus
	treeErr     error
	treeCalls   int
}

func (f *fakeControlPlane) ResolveSite(_ context.Context, name string) (string, error) {
	id, ok := f.sites[name]
	if !ok {
		return "", fmt.Errorf("site %q does not exist", name)
	}
	return id, nil
}

func (f *fakeControlPlane) DevicesByIP(_ context.Context, ip string) ([]DeviceInfo, error) {
	if err, ok := f.deviceErrs[ip]; ok {
		return nil, err
	}
	return f.devices[ip], nil
}

func (f *fakeControlPlane) SiteMembers(_ context.Context, siteID string) ([]DeviceInfo, error) {
	if f.membersErr != nil {
		return nil, f.membersErr
	}
	return f.members[siteID], nil
}

func (f *fakeControlPlane) ComplianceDetail(_ context.Context, query DetailQuery) ([]ComplianceRecord, error) {
	f.detailQueries = append(f.detailQueries, query)
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeControlPlane) TriggerCompliance(_ context.Context, req RunComplianceRequest) (string, error) {
	f.triggered = append(f.triggered, req)
	return f.triggerTaskID, f.triggerErr
}

func (f *fakeControlPlane) CommitDeviceConfig(_ context.Context, req SyncConfigRequest) (string, error) {
	f.committed = append(f.committed, req)
	return f.commitTaskID, f.commitErr
}

func (f *fakeControlPlane) TaskByID(context.Context, string) (*TaskStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.statuses) == 0 {
		return nil, fmt.Errorf("no scripted task status")
	}
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++
	return f.statuses[idx], nil
}

func (f *fakeControlPlane) TaskTree(context.Context, string) ([]TaskStatus, error) {
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	if len(f.trees) == 0 {
		return nil, fmt.Errorf("no scripted task tree")
	}
	idx := f.treeCalls
	if idx >= len(f.trees) {
		idx = len(f.trees) - 1
	}
	f.treeCalls++
	return f.trees[idx], nil
}

// fakeClock lets poller tests simulate elapsed time: each sleep call advances
// the clock by the requested interval plus the configured step.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) { c.t = c.t.Add(d + c.step) }

// testPoller builds a poller wired to the fake clock.
func testPoller(api ControlPlane, clock *fakeClock) *Poller {
	return &Poller{api: api, interval: defaultPollInterval, now: clock.now, sleep: clock.sleep}
}
