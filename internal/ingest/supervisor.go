package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultGracePeriod is how long Stop waits for a relay to exit after the interrupt.
	DefaultGracePeriod = 5 * time.Second

	// killWait bounds the wait for exit after SIGKILL.
	killWait = 5 * time.Second

	// maxOutputLine caps a single captured output line.
	maxOutputLine = 64 * 1024

	defaultProcRoot = "/proc"
)

// Config holds Supervisor settings. It maps to the relay section of config.yaml.
type Config struct {
	// Binary is the relay executable; empty means "ffmpeg" from $PATH.
	Binary string

	// LocalEndpoint is the streaming server URL prefix that identifies our
	// relays during orphan cleanup.
	LocalEndpoint string

	// GracePeriod defaults to DefaultGracePeriod.
	GracePeriod time.Duration
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Status is a point-in-time view of one room's relay.
type Status struct {
	RoomID    string    `json:"room_id"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	DestURL   string    `json:"dest_url,omitempty"`
}

// Exit describes how a relay ended.
type Exit struct {
	RoomID    string
	StartedAt time.Time
	Duration  time.Duration

	// Requested is true when the exit followed a Stop call.
	Requested bool

	// Err is the wait error; nil for a clean exit.
	Err error
}

// Observer is notified of relay lifecycle changes. Calls are made without
// the registry lock held and must not block for long.
type Observer interface {
	RelayStarted(status Status)
	RelayExited(exit Exit)
}

// relay is the registry entry for one room.
type relay struct {
	roomID    string
	sourceURL string
	destURL   string
	startedAt time.Time

	cmd    *exec.Cmd
	cancel context.CancelFunc

	// done is closed by the watcher once the process has been reaped.
	done chan struct{}
	// announced is closed once Start has reported the relay, so an early
	// exit is never reported ahead of its start.
	announced chan struct{}
	stopping  bool
}

func (r *relay) status() Status {
	return Status{
		RoomID:    r.roomID,
		Running:   true,
		PID:       r.cmd.Process.Pid,
		StartedAt: r.startedAt,
		SourceURL: r.sourceURL,
		DestURL:   r.destURL,
	}
}

// Supervisor owns every running relay, keyed by room ID.
//
// All methods are safe for concurrent use. Start, Stop and the exit watcher
// mutate the registry under the write lock; IsRunning, GetStatus and List
// only take the read lock and never wait on process I/O.
type Supervisor struct {
	cfg      Config
	logger   Logger
	ctrl     processControl
	procRoot string

	mu     sync.RWMutex
	relays map[string]*relay

	observerMu sync.RWMutex
	observer   Observer
}

// NewSupervisor creates a Supervisor and kills orphaned relays left by a
// previous instance. Orphan cleanup is best-effort and never fails construction.
func NewSupervisor(cfg Config, logger Logger) *Supervisor {
	return newSupervisor(cfg, logger, signalControl{}, defaultProcRoot)
}

func newSupervisor(cfg Config, logger Logger, ctrl processControl, procRoot string) *Supervisor {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Supervisor{
		cfg:      cfg,
		logger:   logger,
		ctrl:     ctrl,
		procRoot: procRoot,
		relays:   make(map[string]*relay),
	}

	if killed := s.cleanupOrphans(); killed > 0 {
		s.logger.Warn("killed orphaned relays", "count", killed, "endpoint", cfg.LocalEndpoint)
	}

	return s
}

// SetObserver registers the lifecycle observer. Pass nil to remove it.
func (s *Supervisor) SetObserver(o Observer) {
	s.observerMu.Lock()
	s.observer = o
	s.observerMu.Unlock()
}

func (s *Supervisor) getObserver() Observer {
	s.observerMu.RLock()
	defer s.observerMu.RUnlock()
	return s.observer
}

// Start launches a relay for roomID pulling sourceURL and publishing to destURL.
//
// It fails with ErrAlreadyRunning if the room already has a relay (including
// one that is being stopped), ErrBinaryNotFound if the executable cannot be
// resolved, and ErrProcess if the spawn fails. On error nothing is registered.
func (s *Supervisor) Start(roomID, sourceURL, destURL string) error {
	if roomID == "" || sourceURL == "" || destURL == "" {
		return fmt.Errorf("%w: room id, source url and destination url are required", ErrConfiguration)
	}

	if s.IsRunning(roomID) {
		return fmt.Errorf("%w: room %s", ErrAlreadyRunning, roomID)
	}

	binary, err := resolveBinary(s.cfg.Binary)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.relays[roomID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: room %s", ErrAlreadyRunning, roomID)
	}
	r, stdout, stderr, err := s.spawn(binary, roomID, sourceURL, destURL)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.relays[roomID] = r
	s.mu.Unlock()

	var drained sync.WaitGroup
	drained.Add(2) //nolint:mnd // stdout and stderr
	go s.captureOutput(&drained, roomID, "stdout", stdout)
	go s.captureOutput(&drained, roomID, "stderr", stderr)
	go s.watch(r, &drained)

	s.logger.Info("relay started",
		"room_id", roomID,
		"pid", r.cmd.Process.Pid,
		"source", sourceURL,
		"dest", destURL,
	)

	if o := s.getObserver(); o != nil {
		o.RelayStarted(r.status())
	}
	close(r.announced)

	return nil
}

// spawn starts the subprocess. Caller holds s.mu.
func (s *Supervisor) spawn(binary, roomID, sourceURL, destURL string) (*relay, io.Reader, io.Reader, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx, binary, relayArgs(sourceURL, destURL)...) //nolint:gosec // binary resolved from config, args fixed
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Cancelling the context sends the interrupt; if the relay is still
	// around after WaitDelay, os/exec kills the leader itself.
	cmd.Cancel = func() error {
		return s.ctrl.Interrupt(cmd.Process.Pid)
	}
	cmd.WaitDelay = s.cfg.GracePeriod + killWait

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("%w: creating stdout pipe for room %s: %w", ErrProcess, roomID, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("%w: creating stderr pipe for room %s: %w", ErrProcess, roomID, err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("%w: starting relay for room %s: %w", ErrProcess, roomID, err)
	}

	return &relay{
		roomID:    roomID,
		sourceURL: sourceURL,
		destURL:   destURL,
		startedAt: time.Now(),
		cmd:       cmd,
		cancel:    cancel,
		done:      make(chan struct{}),
		announced: make(chan struct{}),
	}, stdout, stderr, nil
}

// captureOutput logs each line the relay writes to one of its streams.
func (s *Supervisor) captureOutput(wg *sync.WaitGroup, roomID, stream string, r io.Reader) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxOutputLine) //nolint:mnd // initial buffer
	for scanner.Scan() {
		s.logger.Debug("relay output",
			"room_id", roomID,
			"stream", stream,
			"line", scanner.Text(),
		)
	}

	// An over-long line stops the scanner; keep the pipe drained so the
	// relay never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r) //nolint:errcheck // pipe closed on exit
}

// watch reaps the relay, removes it from the registry if it is still the
// registered entry, and reports the outcome.
func (s *Supervisor) watch(r *relay, drained *sync.WaitGroup) {
	// Wait closes the pipes, so output must be read to EOF first.
	drained.Wait()
	waitErr := r.cmd.Wait()
	duration := time.Since(r.startedAt)

	s.mu.Lock()
	if current, ok := s.relays[r.roomID]; ok && current == r {
		delete(s.relays, r.roomID)
	}
	requested := r.stopping
	s.mu.Unlock()

	r.cancel()
	close(r.done)
	<-r.announced

	// A requested stop ends in a signal; that is the expected outcome.
	if requested && isSignalExit(waitErr) {
		waitErr = nil
	}

	if waitErr != nil {
		s.logger.Warn("relay exited with error",
			"room_id", r.roomID,
			"error", waitErr,
			"duration", duration,
			"requested", requested,
		)
	} else {
		s.logger.Info("relay exited",
			"room_id", r.roomID,
			"duration", duration,
			"requested", requested,
		)
	}

	if o := s.getObserver(); o != nil {
		o.RelayExited(Exit{
			RoomID:    r.roomID,
			StartedAt: r.startedAt,
			Duration:  duration,
			Requested: requested,
			Err:       waitErr,
		})
	}
}

// Stop terminates the room's relay: interrupt, wait up to the grace period,
// then SIGKILL at most once. It returns nil once the relay is gone, and
// ErrNotRunning if there is no relay or another Stop is already in progress.
func (s *Supervisor) Stop(roomID string) error {
	s.mu.Lock()
	r, ok := s.relays[roomID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: room %s", ErrNotRunning, roomID)
	}
	if r.stopping {
		s.mu.Unlock()
		return fmt.Errorf("%w: stop already in progress for room %s", ErrNotRunning, roomID)
	}
	r.stopping = true
	s.mu.Unlock()

	pid := r.cmd.Process.Pid
	s.logger.Info("stopping relay", "room_id", roomID, "pid", pid)

	r.cancel()

	timer := time.NewTimer(s.cfg.GracePeriod)
	defer timer.Stop()

	select {
	case <-r.done:
		s.logger.Info("relay stopped gracefully", "room_id", roomID)
	case <-timer.C:
		s.logger.Warn("forcing relay shutdown",
			"room_id", roomID,
			"pid", pid,
			"error", errShutdownTimeout,
			"grace_period", s.cfg.GracePeriod,
		)
		if err := s.ctrl.Kill(pid); err != nil {
			s.logger.Error("failed to kill relay", "room_id", roomID, "pid", pid, "error", err)
		}
		select {
		case <-r.done:
		case <-time.After(killWait):
			s.logger.Error("relay still running after kill", "room_id", roomID, "pid", pid)
		}
	}

	s.mu.Lock()
	if current, ok := s.relays[roomID]; ok && current == r {
		delete(s.relays, roomID)
	}
	s.mu.Unlock()

	return nil
}

// StopAll stops every relay concurrently and waits for all of them.
func (s *Supervisor) StopAll() {
	s.mu.RLock()
	rooms := make([]string, 0, len(s.relays))
	for roomID := range s.relays {
		rooms = append(rooms, roomID)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, roomID := range rooms {
		wg.Add(1)
		go func(roomID string) {
			defer wg.Done()
			if err := s.Stop(roomID); err != nil && !errors.Is(err, ErrNotRunning) {
				s.logger.Warn("failed to stop relay", "room_id", roomID, "error", err)
			}
		}(roomID)
	}
	wg.Wait()
}

// IsRunning reports whether the room has a registered relay.
func (s *Supervisor) IsRunning(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.relays[roomID]
	return ok
}

// GetStatus returns the room's relay status. Running is false when none is registered.
func (s *Supervisor) GetStatus(roomID string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relays[roomID]
	if !ok {
		return Status{RoomID: roomID}
	}
	return r.status()
}

// List returns the status of every registered relay, ordered by room ID.
func (s *Supervisor) List() []Status {
	s.mu.RLock()
	out := make([]Status, 0, len(s.relays))
	for _, r := range s.relays {
		out = append(out, r.status())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func isSignalExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}
