package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goveedeck/core/internal/transport"
)

const listBody = `{
	"code": 200,
	"message": "Success",
	"data": {
		"devices": [
			{
				"device": "AA:BB:CC:DD:EE:FF:00:11",
				"model": "H6159",
				"deviceName": "Desk Strip",
				"controllable": true,
				"retrievable": true,
				"supportCmds": ["turn", "brightness", "color", "colorTem"]
			},
			{
				"device": "11:22:33:44:55:66:77:88",
				"model": "H6001",
				"deviceName": "Shelf Bulb",
				"controllable": true,
				"retrievable": false,
				"supportCmds": ["turn", "brightness"]
			}
		]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", 5*time.Second, WithBaseURL(server.URL))
}

func TestClientListDevices(t *testing.T) {
	var gotKey, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Govee-API-Key")
		gotPath = r.URL.Path
		io.WriteString(w, listBody)
	})

	devices, err := c.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("Govee-API-Key header = %q, want test-key", gotKey)
	}
	if gotPath != "/v1/devices" {
		t.Errorf("path = %q, want /v1/devices", gotPath)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	first := devices[0]
	if first.DeviceID != "AA:BB:CC:DD:EE:FF:00:11" || first.Model != "H6159" {
		t.Errorf("first device = %+v", first)
	}
	if first.Name != "Desk Strip" || !first.Controllable || !first.Retrievable {
		t.Errorf("first device fields = %+v", first)
	}
	if len(first.SupportedCommands) != 4 {
		t.Errorf("SupportedCommands = %v, want 4 entries", first.SupportedCommands)
	}
	if devices[1].Retrievable {
		t.Error("second device should not be retrievable")
	}
}

func TestClientControlRequestBody(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody controlRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		io.WriteString(w, `{"code":200,"message":"Success"}`)
	})

	cmd := transport.NewCommand("AA:BB", "H6159", transport.CommandColor,
		transport.ColorValue{R: 255, G: 64, B: 0})
	if err := c.Control(context.Background(), cmd); err != nil {
		t.Fatalf("Control() error = %v", err)
	}

	if gotMethod != http.MethodPut || gotPath != "/v1/devices/control" {
		t.Errorf("request = %s %s, want PUT /v1/devices/control", gotMethod, gotPath)
	}
	if gotBody.Device != "AA:BB" || gotBody.Model != "H6159" {
		t.Errorf("body device/model = %q/%q", gotBody.Device, gotBody.Model)
	}
	if gotBody.Cmd.Name != "color" {
		t.Errorf("cmd name = %q, want color", gotBody.Cmd.Name)
	}
	value, ok := gotBody.Cmd.Value.(map[string]any)
	if !ok {
		t.Fatalf("cmd value = %T, want object", gotBody.Cmd.Value)
	}
	if value["r"] != float64(255) || value["g"] != float64(64) || value["b"] != float64(0) {
		t.Errorf("cmd value = %v, want r=255 g=64 b=0", value)
	}
}

func TestClientStateFlattensProperties(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `{
			"code": 200,
			"message": "Success",
			"data": {
				"device": "AA:BB",
				"model": "H6159",
				"properties": [
					{"online": true},
					{"powerState": "on"},
					{"brightness": 80},
					{"color": {"r": 255, "g": 0, "b": 0}}
				]
			}
		}`)
	})

	state, err := c.State(context.Background(), "AA:BB", "H6159")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}

	if gotQuery != "device=AA%3ABB&model=H6159" {
		t.Errorf("query = %q", gotQuery)
	}
	if !state.Online {
		t.Error("Online = false, want true")
	}
	if _, leaked := state.Properties["online"]; leaked {
		t.Error("online should be lifted out of Properties")
	}
	if state.Properties["powerState"] != "on" {
		t.Errorf("powerState = %v, want on", state.Properties["powerState"])
	}
	if state.Properties["brightness"] != float64(80) {
		t.Errorf("brightness = %v, want 80", state.Properties["brightness"])
	}
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		wantAPI bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantIs: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, wantIs: ErrUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests, wantIs: ErrRateLimited},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"code":500,"message":"Internal Error"}`,
			wantAPI: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.ListDevices(context.Background())
			if err == nil {
				t.Fatal("ListDevices() error = nil, want error")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
			if tt.wantAPI {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error %v is not *APIError", err)
				}
				if apiErr.Status != tt.status || apiErr.Code != 500 || apiErr.Message != "Internal Error" {
					t.Errorf("APIError = %+v", apiErr)
				}
			}
		})
	}
}
