// ABOUTME: Remote control server for the oscillator
// ABOUTME: Manages WebSocket sessions, command dispatch and status broadcast
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barosc/barosc-go/internal/discovery"
	"github.com/barosc/barosc-go/internal/metrics"
	"github.com/barosc/barosc-go/internal/protocol"
	"github.com/barosc/barosc-go/internal/version"
	"github.com/barosc/barosc-go/pkg/oscillator"
	"github.com/barosc/barosc-go/pkg/waveform"
)

// DefaultPort is the control port used when Config.Port is 0
const DefaultPort = 8928

const (
	helloTimeout  = 5 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Controller is the oscillator as driven by remote sessions
type Controller interface {
	State() oscillator.State
	Start() error
	Stop()
	Parameters() oscillator.Parameters
	Err() error
	SetWaveType(w waveform.WaveType) error
	SetAmplitude(a float64) error
	SetFrequency(f float64) error
}

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool
}

// Server accepts remote control sessions
type Server struct {
	config   Config
	serverID string
	ctrl     Controller

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Session is one connected control client
type Session struct {
	ID       string
	ClientID string
	Name     string
	Conn     *websocket.Conn

	sendChan chan interface{}
}

// New creates a server controlling ctrl
func New(config Config, ctrl Controller) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		ctrl:     ctrl,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// local network tool; browsers on other origins are allowed
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}

	s.mux.HandleFunc(discovery.ServicePath, s.handleWebSocket)
	s.mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the HTTP handler serving the control endpoint and metrics
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ID returns the server id sent in server/hello
func (s *Server) ID() string {
	return s.serverID
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Printf("Control server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket server listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Control server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Control server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// shutdown rejects new sessions and closes the open ones
func (s *Server) shutdown() {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	s.sessionsMu.RLock()
	for _, sess := range s.sessions {
		sess.Conn.Close()
	}
	s.sessionsMu.RUnlock()
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.handleConnection(conn)
}

// handleConnection manages a control session
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	hello, err := s.readHello(conn)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		writeDirect(conn, protocol.TypeError, protocol.Error{
			Code:    protocol.ErrorBadRequest,
			Message: err.Error(),
		})
		return
	}

	sess := &Session{
		ID:       uuid.New().String(),
		ClientID: hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan interface{}, 32),
	}

	s.sessionsMu.Lock()
	s.sessions[sess.ID] = sess
	s.sessionsMu.Unlock()
	metrics.ControlSessions.Inc()

	log.Printf("Session opened: %s (client: %s, session: %s)", sess.Name, sess.ClientID, sess.ID)

	// the writer owns sendChan's reader side; close it only after removal
	// from the session map so broadcasts never hit a closed channel
	defer func() {
		s.sessionsMu.Lock()
		delete(s.sessions, sess.ID)
		close(sess.sendChan)
		s.sessionsMu.Unlock()
		metrics.ControlSessions.Dec()
		log.Printf("Session closed: %s", sess.Name)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessionWriter(sess)
	}()

	s.send(sess, protocol.TypeServerHello, protocol.ServerHello{
		ServerID:  s.serverID,
		Name:      s.config.Name,
		Version:   version.Version,
		SessionID: sess.ID,
	})
	s.send(sess, protocol.TypeStatus, s.Status())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		s.handleMessage(sess, data)
	}
}

// readHello waits for client/hello
func (s *Server) readHello(conn *websocket.Conn) (protocol.ClientHello, error) {
	var hello protocol.ClientHello

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("failed to read client/hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return hello, fmt.Errorf("failed to parse message: %w", err)
	}
	if env.Type != protocol.TypeClientHello {
		return hello, fmt.Errorf("expected %s, got %s", protocol.TypeClientHello, env.Type)
	}
	if err := env.Decode(&hello); err != nil {
		return hello, err
	}
	if hello.Name == "" {
		return hello, errors.New("client/hello missing name")
	}
	return hello, nil
}

// sessionWriter sends queued messages to the session
func (s *Server) sessionWriter(sess *Session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sess.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			sess.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := sess.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}

		case <-ticker.C:
			if err := sess.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one message from a session
func (s *Server) handleMessage(sess *Session, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.sendError(sess, protocol.ErrorBadRequest, fmt.Sprintf("invalid message: %v", err))
		return
	}

	switch env.Type {
	case protocol.TypeCommand:
		var cmd protocol.Command
		if err := env.Decode(&cmd); err != nil {
			s.sendError(sess, protocol.ErrorBadRequest, err.Error())
			return
		}
		s.handleCommand(sess, cmd)
	default:
		s.sendError(sess, protocol.ErrorBadRequest, fmt.Sprintf("unknown message type: %s", env.Type))
	}
}

// handleCommand applies a command and answers with the new status, or with
// osc/error when the oscillator rejected it
func (s *Server) handleCommand(sess *Session, cmd protocol.Command) {
	if s.config.Debug {
		log.Printf("[DEBUG] Command from %s: %+v", sess.Name, cmd)
	}

	var err error
	switch cmd.Command {
	case protocol.CommandSetWaveType:
		var w waveform.WaveType
		w, err = waveform.ParseWaveType(cmd.WaveType)
		if err == nil {
			err = s.ctrl.SetWaveType(w)
		}

	case protocol.CommandSetAmplitude:
		if cmd.Value == nil {
			err = errMissingValue
		} else {
			err = s.ctrl.SetAmplitude(*cmd.Value)
		}

	case protocol.CommandSetFrequency:
		if cmd.Value == nil {
			err = errMissingValue
		} else {
			err = s.ctrl.SetFrequency(*cmd.Value)
		}

	case protocol.CommandStart:
		err = s.ctrl.Start()

	case protocol.CommandStop:
		s.ctrl.Stop()

	case protocol.CommandStatus:
		metrics.CommandsTotal.WithLabelValues(cmd.Command, "ok").Inc()
		s.send(sess, protocol.TypeStatus, s.Status())
		return

	default:
		metrics.CommandsTotal.WithLabelValues("unknown", "error").Inc()
		s.sendError(sess, protocol.ErrorBadRequest, fmt.Sprintf("unknown command: %q", cmd.Command))
		return
	}

	if err != nil {
		metrics.CommandsTotal.WithLabelValues(cmd.Command, "error").Inc()
		s.sendError(sess, errorCode(err), err.Error())
		return
	}

	metrics.CommandsTotal.WithLabelValues(cmd.Command, "ok").Inc()
	s.BroadcastStatus()
}

var errMissingValue = errors.New("command requires a value")

// errorCode maps an oscillator error to its protocol code
func errorCode(err error) string {
	switch {
	case errors.Is(err, oscillator.ErrInvalidWaveType):
		return protocol.ErrorInvalidWaveType
	case errors.Is(err, oscillator.ErrOutOfRange):
		return protocol.ErrorOutOfRange
	case errors.Is(err, oscillator.ErrDevice):
		return protocol.ErrorDevice
	}
	return protocol.ErrorBadRequest
}

// Status builds the current oscillator status
func (s *Server) Status() protocol.Status {
	p := s.ctrl.Parameters()
	status := protocol.Status{
		State:      s.ctrl.State().String(),
		WaveType:   p.WaveType.String(),
		Amplitude:  p.Amplitude,
		Frequency:  p.Frequency,
		SampleRate: p.SampleRate,
	}
	if err := s.ctrl.Err(); err != nil {
		status.Error = err.Error()
	}
	return status
}

// BroadcastStatus sends the current status to every session
func (s *Server) BroadcastStatus() {
	status := s.Status()

	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	for _, sess := range s.sessions {
		s.send(sess, protocol.TypeStatus, status)
	}
}

// SessionCount returns the number of open sessions
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

func (s *Server) sendError(sess *Session, code, message string) {
	s.send(sess, protocol.TypeError, protocol.Error{Code: code, Message: message})
}

// send queues a message without blocking; a session that cannot keep up
// misses it
func (s *Server) send(sess *Session, msgType string, payload interface{}) {
	msg := protocol.Message{Type: msgType, Payload: payload}

	select {
	case sess.sendChan <- msg:
	default:
		log.Printf("Send buffer full for %s, dropping %s", sess.Name, msgType)
	}
}

// writeDirect writes to a connection that has no writer goroutine yet
func writeDirect(conn *websocket.Conn, msgType string, payload interface{}) {
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload}); err != nil {
		log.Printf("Error writing %s: %v", msgType, err)
	}
}
