// ABOUTME: WebSocket client for the remote control protocol
// ABOUTME: Handles connection, handshake, commands and status updates
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/barosc/barosc-go/internal/discovery"
	"github.com/barosc/barosc-go/internal/protocol"
	"github.com/barosc/barosc-go/pkg/waveform"
)

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // defaults to /barosc
	ClientID   string
	Name       string
	DeviceInfo protocol.DeviceInfo
}

// Client is a remote control connection
type Client struct {
	config  Config
	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex

	// Statuses receives every osc/status, including broadcasts caused by
	// other sessions
	Statuses chan protocol.Status
	// Errors receives osc/error replies
	Errors chan protocol.Error

	hello     protocol.ServerHello
	initial   protocol.Status
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = discovery.ServicePath
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		Statuses: make(chan protocol.Status, 10),
		Errors:   make(chan protocol.Error, 10),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake performs the protocol handshake
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		DeviceInfo: &c.config.DeviceInfo,
	}

	if err := c.sendJSON(protocol.Message{Type: protocol.TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer c.conn.SetReadDeadline(time.Time{})

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch env.Type {
	case protocol.TypeServerHello:
	case protocol.TypeError:
		var perr protocol.Error
		if err := env.Decode(&perr); err != nil {
			return err
		}
		return perr
	default:
		return fmt.Errorf("expected server/hello, got %s", env.Type)
	}

	var serverHello protocol.ServerHello
	if err := env.Decode(&serverHello); err != nil {
		return err
	}

	// the server follows its hello with the current status
	_, data, err = c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read initial status: %w", err)
	}
	var statusEnv protocol.Envelope
	if err := json.Unmarshal(data, &statusEnv); err != nil {
		return fmt.Errorf("failed to parse initial status: %w", err)
	}
	var status protocol.Status
	if statusEnv.Type != protocol.TypeStatus {
		return fmt.Errorf("expected %s, got %s", protocol.TypeStatus, statusEnv.Type)
	}
	if err := statusEnv.Decode(&status); err != nil {
		return err
	}

	c.mu.Lock()
	c.hello = serverHello
	c.initial = status
	c.mu.Unlock()

	log.Printf("Handshake complete with %s (session %s)", serverHello.Name, serverHello.SessionID)
	return nil
}

// InitialStatus returns the status received during the handshake
func (c *Client) InitialStatus() protocol.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initial
}

// ServerHello returns the server's handshake reply
func (c *Client) ServerHello() protocol.ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg protocol.Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch env.Type {
	case protocol.TypeStatus:
		var status protocol.Status
		if err := env.Decode(&status); err != nil {
			log.Printf("%v", err)
			return
		}
		select {
		case c.Statuses <- status:
		case <-c.ctx.Done():
		}

	case protocol.TypeError:
		var perr protocol.Error
		if err := env.Decode(&perr); err != nil {
			log.Printf("%v", err)
			return
		}
		select {
		case c.Errors <- perr:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

// Send sends a command without waiting for the reply
func (c *Client) Send(cmd protocol.Command) error {
	return c.sendJSON(protocol.Message{Type: protocol.TypeCommand, Payload: cmd})
}

// Do sends a command and waits for the next status or error. A rejected
// command is returned as a protocol.Error.
func (c *Client) Do(ctx context.Context, cmd protocol.Command) (protocol.Status, error) {
	if err := c.Send(cmd); err != nil {
		return protocol.Status{}, err
	}

	select {
	case status := <-c.Statuses:
		return status, nil
	case perr := <-c.Errors:
		return protocol.Status{}, perr
	case <-c.ctx.Done():
		return protocol.Status{}, ErrNotConnected
	case <-ctx.Done():
		return protocol.Status{}, ctx.Err()
	}
}

// Status requests the current status
func (c *Client) Status(ctx context.Context) (protocol.Status, error) {
	return c.Do(ctx, protocol.Command{Command: protocol.CommandStatus})
}

// Start starts the remote oscillator
func (c *Client) Start(ctx context.Context) (protocol.Status, error) {
	return c.Do(ctx, protocol.Command{Command: protocol.CommandStart})
}

// Stop stops the remote oscillator
func (c *Client) Stop(ctx context.Context) (protocol.Status, error) {
	return c.Do(ctx, protocol.Command{Command: protocol.CommandStop})
}

// SetWaveType selects a wave type by name
func (c *Client) SetWaveType(ctx context.Context, w waveform.WaveType) (protocol.Status, error) {
	return c.Do(ctx, protocol.Command{Command: protocol.CommandSetWaveType, WaveType: w.String()})
}

// SetAmplitude sets the amplitude
func (c *Client) SetAmplitude(ctx context.Context, a float64) (protocol.Status, error) {
	return c.Do(ctx, protocol.Command{Command: protocol.CommandSetAmplitude, Value: &a})
}

// SetFrequency sets the frequency in Hz
func (c *Client) SetFrequency(ctx context.Context, f float64) (protocol.Status, error) {
	return c.Do(ctx, protocol.Command{Command: protocol.CommandSetFrequency, Value: &f})
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
