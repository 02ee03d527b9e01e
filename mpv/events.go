package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/kara-engine/kara/log"
)

// Event is a property change or a named mpv event.
type Event struct {
	// Name is the property name for property changes, the event name otherwise.
	Name string
	Data any
	// Reason is set for end-file events (eof, stop, quit, error, redirect).
	Reason string
}

// EventCallback receives events from one instance.
type EventCallback func(Event)

// observed lists the properties every instance reports.
var observed = []string{"time-pos", "pause", "eof-reached", "duration"}

// EventListener keeps a dedicated connection open to receive mpv notifications.
type EventListener struct {
	socketPath string
	callback   EventCallback

	mu        sync.Mutex
	conn      net.Conn
	listening bool
}

// NewEventListener creates a listener for the given socket.
func NewEventListener(socketPath string, callback EventCallback) *EventListener {
	return &EventListener{socketPath: socketPath, callback: callback}
}

// Start subscribes to the observed properties and starts the read loop.
func (el *EventListener) Start(ctx context.Context) error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	// observations are bound to the connection that requested them
	for i, name := range observed {
		payload, _ := json.Marshal(ipcRequest{Command: []any{"observe_property", i + 1, name}})
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.listening = true
	go el.readLoop(conn)

	log.Debugf("mpv event listener started on %s", el.socketPath)
	return nil
}

// Stop closes the connection, which ends the read loop.
func (el *EventListener) Stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}
	el.conn.Close()
	el.listening = false
}

func (el *EventListener) readLoop(conn net.Conn) {
	defer func() {
		el.mu.Lock()
		el.listening = false
		el.mu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		if event, ok := parseEvent(scanner.Bytes()); ok && el.callback != nil {
			el.callback(event)
		}
	}
}

// parseEvent decodes one line; command replies and unknown shapes are skipped.
func parseEvent(line []byte) (Event, bool) {
	var raw struct {
		Event  string `json:"event"`
		Name   string `json:"name"`
		Data   any    `json:"data"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(line, &raw); err != nil || raw.Event == "" {
		return Event{}, false
	}

	if raw.Event == "property-change" {
		if raw.Name == "" {
			return Event{}, false
		}
		return Event{Name: raw.Name, Data: raw.Data}, true
	}

	return Event{Name: raw.Event, Reason: raw.Reason}, true
}
