// ABOUTME: Remote control protocol message type definitions
// ABOUTME: Defines structs for the JSON messages exchanged over /barosc
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeCommand     = "osc/command"
	TypeStatus      = "osc/status"
	TypeError       = "osc/error"
)

// Commands carried by osc/command
const (
	CommandSetWaveType  = "set_wave_type"
	CommandSetAmplitude = "set_amplitude"
	CommandSetFrequency = "set_frequency"
	CommandStart        = "start"
	CommandStop         = "stop"
	CommandStatus       = "status"
)

// Error codes carried by osc/error
const (
	ErrorInvalidWaveType = "invalid_wave_type"
	ErrorOutOfRange      = "out_of_range"
	ErrorDevice          = "device_error"
	ErrorBadRequest      = "bad_request"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Envelope is a received message whose payload has not been decoded yet
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", e.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID  string `json:"server_id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	SessionID string `json:"session_id"`
}

// Command is a control request from a client. Value carries the amplitude
// or frequency for the set_* commands that need one.
type Command struct {
	Command  string   `json:"command"`
	WaveType string   `json:"wave_type,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// Status reports the oscillator state
type Status struct {
	State      string  `json:"state"` // "playing" or "idle"
	WaveType   string  `json:"wave_type"`
	Amplitude  float64 `json:"amplitude"`
	Frequency  float64 `json:"frequency"`
	SampleRate int     `json:"sample_rate"`
	Error      string  `json:"error,omitempty"`
}

// Error reports a rejected command
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
