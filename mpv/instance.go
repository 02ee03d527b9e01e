package mpv

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/util"
)

const (
	socketWaitRetries = 20
	socketWaitDelay   = 150 * time.Millisecond
	quitGrace         = 3 * time.Second
	logTailSize       = 20
)

// Instance is one controlled mpv output.
type Instance struct {
	opts Options

	mu         sync.Mutex // guards the process fields below
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	listener   *EventListener

	observer EventCallback
	reqID    atomic.Int64
	logs     *util.Ring[string]
}

// New creates an instance; no process is spawned until Recreate.
func New(opts Options) *Instance {
	if opts.Binary == "" {
		opts.Binary = "mpv"
	}
	if opts.SocketDir == "" {
		opts.SocketDir = os.TempDir()
	}

	exited := make(chan struct{})
	close(exited)

	return &Instance{
		opts:   opts,
		exited: exited,
		logs:   util.NewRing[string](logTailSize),
	}
}

// Name returns the output name, e.g. main or monitor.
func (m *Instance) Name() string {
	return m.opts.Name
}

// Observe registers the callback receiving property changes and events.
// It takes effect on the next Recreate.
func (m *Instance) Observe(callback EventCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = callback
}

// LogTail returns the last lines mpv wrote to stderr, oldest first.
func (m *Instance) LogTail() []string {
	return m.logs.Items()
}

// Recreate tears down any running process and spawns a fresh one.
func (m *Instance) Recreate(ctx context.Context) error {
	if err := m.Destroy(ctx); err != nil {
		log.Warnf("mpv %s: destroy before recreate: %s", m.opts.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.socketPath = filepath.Join(m.opts.SocketDir, fmt.Sprintf("%s-%s.sock", m.opts.Name, uuid.NewString()[:8]))

	cmd := exec.Command(m.opts.Binary, m.opts.args(m.socketPath)...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = &tailWriter{name: m.opts.Name, ring: m.logs}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	m.cmd = cmd
	m.exited = exited

	// reap the process so it never lingers as a zombie
	go func() {
		err := cmd.Wait()
		log.Debugf("mpv %s exited: %v", m.opts.Name, err)
		close(exited)
	}()

	if err := m.waitForSocket(ctx); err != nil {
		select {
		case <-exited:
		default:
			log.Warnf("mpv %s: killing, socket never became ready", m.opts.Name)
			_ = killProcess(cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	if m.observer != nil {
		m.listener = NewEventListener(m.socketPath, m.observer)
		if err := m.listener.Start(ctx); err != nil {
			log.Warnf("mpv %s: %s", m.opts.Name, err)
		}
	}

	log.Infof("mpv %s started on %s", m.opts.Name, m.socketPath)
	return nil
}

// Destroy asks mpv to quit and kills its process group after a grace period.
func (m *Instance) Destroy(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener != nil {
		m.listener.Stop()
		m.listener = nil
	}

	if m.socketPath == "" {
		return nil
	}
	defer func() {
		_ = os.Remove(m.socketPath)
		m.socketPath = ""
	}()

	select {
	case <-m.exited:
		return nil
	default:
	}

	_, _ = sendCommand(ctx, m.socketPath, m.reqID.Add(1), []any{"quit"})

	select {
	case <-m.exited:
		return nil
	case <-time.After(quitGrace):
	case <-ctx.Done():
	}

	if err := killProcess(m.cmd); err != nil {
		return fmt.Errorf("kill mpv %s: %w", m.opts.Name, err)
	}
	return nil
}

// Send issues one command and returns its data. A single map argument is
// sent as a named-argument command, anything else as positional arguments.
func (m *Instance) Send(ctx context.Context, args ...any) (any, error) {
	if len(args) == 1 {
		if named, ok := args[0].(map[string]any); ok {
			return m.send(ctx, named)
		}
	}
	return m.send(ctx, args)
}

// Play loads file replacing whatever is playing.
func (m *Instance) Play(ctx context.Context, file string, opts LoadOptions) error {
	target, err := sanitizeMediaTarget(file)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	_, err = m.send(ctx, map[string]any{
		"name":    "loadfile",
		"url":     target,
		"flags":   "replace",
		"options": opts.Map(),
	})
	return err
}

// IsRunning reports whether mpv is alive and answering IPC commands.
func (m *Instance) IsRunning() bool {
	m.mu.Lock()
	socketPath, exited := m.socketPath, m.exited
	m.mu.Unlock()

	if socketPath == "" {
		return false
	}

	select {
	case <-exited:
		return false
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := sendCommand(ctx, socketPath, m.reqID.Add(1), []any{"get_property", "pid"})
	return err == nil
}

// Exited is closed when the current process ends.
func (m *Instance) Exited() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exited
}

func (m *Instance) send(ctx context.Context, command any) (any, error) {
	m.mu.Lock()
	socketPath := m.socketPath
	m.mu.Unlock()

	if socketPath == "" {
		return nil, ErrNotRunning
	}

	data, err := sendCommand(ctx, socketPath, m.reqID.Add(1), command)
	if err != nil {
		return nil, fmt.Errorf("mpv %s: %w", m.opts.Name, err)
	}
	return data, nil
}

func (m *Instance) waitForSocket(ctx context.Context) error {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// tailWriter splits mpv stderr into lines kept in the log tail.
type tailWriter struct {
	name    string
	ring    *util.Ring[string]
	pending []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(w.pending[:i], "\r"))
		w.pending = w.pending[i+1:]
		w.ring.Push(line)
		log.Tracef("mpv %s: %s", w.name, line)
	}
	return len(p), nil
}
