// Package catalyst implements the Catalyst Center REST client used by the
// compliance workflow. Read-only calls are retried; trigger calls are issued
// exactly once so a flaky network cannot dispatch the same operation twice.
package catalyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"

	"netcompliance/internal/compliance"
)

const (
	// HTTP client timeout.
	httpTimeout = 30 * time.Second
	// Maximum response size to prevent memory exhaustion.
	maxResponseBody = 1024 * 1024 // 1MB limit
	// Retry configuration for read-only calls.
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Intent API paths.
const (
	pathSite             = "/dna/intent/api/v1/site"
	pathNetworkDevice    = "/dna/intent/api/v1/network-device"
	pathMembership       = "/dna/intent/api/v1/membership/"
	pathCompliance       = "/dna/intent/api/v1/compliance/"
	pathComplianceDetail = "/dna/intent/api/v1/compliance/detail"
	pathWriteMemory      = "/dna/intent/api/v1/network-device-config/write-memory"
	pathTask             = "/dna/intent/api/v1/task/"
)

// Client talks to a Catalyst Center instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ compliance.ControlPlane = (*Client)(nil)

// New creates a client for the given Catalyst Center base URL. The token is
// sent as X-Auth-Token on every request.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: httpTimeout,
		},
	}
}

// ResolveSite maps a full hierarchical site name to its site id.
func (c *Client) ResolveSite(ctx context.Context, name string) (string, error) {
	var envelope struct {
		Response []struct {
			ID string `json:"id"`
		} `json:"response"`
	}
	query := url.Values{"name": []string{name}}
	if err := c.get(ctx, pathSite, query, &envelope); err != nil {
		return "", fmt.Errorf("failed to look up site %q: %w", name, err)
	}
	if len(envelope.Response) == 0 || envelope.Response[0].ID == "" {
		return "", fmt.Errorf("site %q does not exist", name)
	}
	return envelope.Response[0].ID, nil
}

// deviceRecord is the inventory wire format shared by the device list and
// site membership responses.
type deviceRecord struct {
	ID                  string `json:"id"`
	InstanceUUID        string `json:"instanceUuid"`
	ManagementIPAddress string `json:"managementIpAddress"`
	ReachabilityStatus  string `json:"reachabilityStatus"`
}

func (d deviceRecord) info() compliance.DeviceInfo {
	instanceID := d.InstanceUUID
	if instanceID == "" {
		instanceID = d.ID
	}
	return compliance.DeviceInfo{
		IPAddress:    d.ManagementIPAddress,
		InstanceID:   instanceID,
		Reachability: d.ReachabilityStatus,
	}
}

// DevicesByIP looks up inventory devices by management IP address.
func (c *Client) DevicesByIP(ctx context.Context, ip string) ([]compliance.DeviceInfo, error) {
	var envelope struct {
		Response []deviceRecord `json:"response"`
	}
	query := url.Values{"managementIpAddress": []string{ip}}
	if err := c.get(ctx, pathNetworkDevice, query, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch device list for %s: %w", ip, err)
	}
	devices := make([]compliance.DeviceInfo, 0, len(envelope.Response))
	for _, record := range envelope.Response {
		devices = append(devices, record.info())
	}
	return devices, nil
}

// SiteMembers lists the devices assigned to a site. The membership response
// nests device records one level deeper than the device list.
func (c *Client) SiteMembers(ctx context.Context, siteID string) ([]compliance.DeviceInfo, error) {
	var envelope struct {
		Device []struct {
			Response []deviceRecord `json:"response"`
		} `json:"device"`
	}
	if err := c.get(ctx, pathMembership+url.PathEscape(siteID), nil, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch membership for site %s: %w", siteID, err)
	}
	var devices []compliance.DeviceInfo
	for _, group := range envelope.Device {
		for _, record := range group.Response {
			devices = append(devices, record.info())
		}
	}
	return devices, nil
}

// ComplianceDetail fetches per-category compliance records.
func (c *Client) ComplianceDetail(ctx context.Context, detailQuery compliance.DetailQuery) ([]compliance.ComplianceRecord, error) {
	var envelope struct {
		Response []compliance.ComplianceRecord `json:"response"`
	}
	query := url.Values{"deviceUuid": []string{detailQuery.DeviceUUID}}
	if detailQuery.ComplianceType != "" {
		query.Set("complianceType", detailQuery.ComplianceType)
	}
	if err := c.get(ctx, pathComplianceDetail, query, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch compliance detail: %w", err)
	}
	return envelope.Response, nil
}

// taskEnvelope wraps the task id returned by the two trigger endpoints.
type taskEnvelope struct {
	Response struct {
		TaskID string `json:"taskId"`
	} `json:"response"`
}

// TriggerCompliance starts a compliance scan and returns its task id.
func (c *Client) TriggerCompliance(ctx context.Context, req compliance.RunComplianceRequest) (string, error) {
	var envelope taskEnvelope
	if err := c.post(ctx, pathCompliance, req, &envelope); err != nil {
		return "", fmt.Errorf("failed to trigger compliance check: %w", err)
	}
	return envelope.Response.TaskID, nil
}

// CommitDeviceConfig commits running configuration to startup (write memory)
// and returns the task id.
func (c *Client) CommitDeviceConfig(ctx context.Context, req compliance.SyncConfigRequest) (string, error) {
	var envelope taskEnvelope
	if err := c.post(ctx, pathWriteMemory, req, &envelope); err != nil {
		return "", fmt.Errorf("failed to commit device configuration: %w", err)
	}
	return envelope.Response.TaskID, nil
}

// TaskByID fetches one status snapshot of an asynchronous task.
func (c *Client) TaskByID(ctx context.Context, taskID string) (*compliance.TaskStatus, error) {
	var envelope struct {
		Response compliance.TaskStatus `json:"response"`
	}
	if err := c.get(ctx, pathTask+url.PathEscape(taskID), nil, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch status of task %s: %w", taskID, err)
	}
	return &envelope.Response, nil
}

// TaskTree fetches the task and its subtasks.
func (c *Client) TaskTree(ctx context.Context, taskID string) ([]compliance.TaskStatus, error) {
	var envelope struct {
		Response []compliance.TaskStatus `json:"response"`
	}
	if err := c.get(ctx, pathTask+url.PathEscape(taskID)+"/tree", nil, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch tree of task %s: %w", taskID, err)
	}
	return envelope.Response, nil
}

// get issues a retried GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	body, err := retry.DoWithData(func() ([]byte, error) {
		return c.do(ctx, http.MethodGet, target, nil)
	}, retry.Attempts(maxRetries), retry.Delay(initialBackoff), retry.MaxDelay(maxBackoff))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// post issues a single non-retried POST and decodes the JSON response into
// out. Trigger calls are not idempotent.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, c.baseURL+path, data)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("[WARN] Error closing response body: %v", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Printf("[DEBUG] %s %s returned %d in %v", method, target, resp.StatusCode, time.Since(start))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("server returned status %d for %s %s", resp.StatusCode, method, target)
	}
	return body, nil
}
