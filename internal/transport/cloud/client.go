package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goveedeck/core/internal/transport"
)

// DefaultBaseURL is the production Govee developer API endpoint.
const DefaultBaseURL = "https://developer-api.govee.com"

const apiKeyHeader = "Govee-API-Key"

// Client is a thin HTTP client for the Govee developer API v1.
// It handles authentication, wire encoding and error mapping; retry and
// failure containment live in the Transport above it.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Govee API client with the given key.
func NewClient(apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire types for the v1 API.

type apiEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type deviceRecord struct {
	Device       string   `json:"device"`
	Model        string   `json:"model"`
	DeviceName   string   `json:"deviceName"`
	Controllable bool     `json:"controllable"`
	Retrievable  bool     `json:"retrievable"`
	SupportCmds  []string `json:"supportCmds"`
}

type devicesResponse struct {
	apiEnvelope
	Data struct {
		Devices []deviceRecord `json:"devices"`
	} `json:"data"`
}

type stateResponse struct {
	apiEnvelope
	Data struct {
		Device     string           `json:"device"`
		Model      string           `json:"model"`
		Properties []map[string]any `json:"properties"`
	} `json:"data"`
}

type controlRequest struct {
	Device string     `json:"device"`
	Model  string     `json:"model"`
	Cmd    cmdPayload `json:"cmd"`
}

type cmdPayload struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ListDevices fetches the account's device list.
func (c *Client) ListDevices(ctx context.Context) ([]transport.Device, error) {
	var resp devicesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/devices", nil, &resp); err != nil {
		return nil, err
	}

	devices := make([]transport.Device, 0, len(resp.Data.Devices))
	for _, rec := range resp.Data.Devices {
		devices = append(devices, transport.Device{
			DeviceID:          rec.Device,
			Model:             rec.Model,
			Name:              rec.DeviceName,
			Controllable:      rec.Controllable,
			Retrievable:       rec.Retrievable,
			SupportedCommands: rec.SupportCmds,
		})
	}
	return devices, nil
}

// Control sends one command to a device.
func (c *Client) Control(ctx context.Context, cmd transport.Command) error {
	body := controlRequest{
		Device: cmd.DeviceID,
		Model:  cmd.Model,
		Cmd: cmdPayload{
			Name:  string(cmd.Name),
			Value: cmd.Value,
		},
	}
	var resp apiEnvelope
	return c.do(ctx, http.MethodPut, "/v1/devices/control", body, &resp)
}

// State reads the current state of a device.
//
// The API reports properties as a list of single-key objects; State
// flattens them into one map and lifts "online" into its own field.
func (c *Client) State(ctx context.Context, deviceID, model string) (transport.DeviceState, error) {
	path := "/v1/devices/state?device=" + url.QueryEscape(deviceID) + "&model=" + url.QueryEscape(model)

	var resp stateResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return transport.DeviceState{}, err
	}

	state := transport.DeviceState{
		DeviceID:   resp.Data.Device,
		Model:      resp.Data.Model,
		Properties: make(map[string]any),
	}
	for _, prop := range resp.Data.Properties {
		for k, v := range prop {
			if k == "online" {
				if online, ok := v.(bool); ok {
					state.Online = online
					continue
				}
			}
			state.Properties[k] = v
		}
	}
	return state, nil
}

// do executes one API request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling govee api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope apiEnvelope
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
