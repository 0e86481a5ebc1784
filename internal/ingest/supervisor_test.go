package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testSource = "rtsp://10.0.0.21/stream1"
	testDest   = "rtmp://127.0.0.1:1935/live/key-a"

	// Exits promptly on SIGINT.
	scriptSleeper = "exec sleep 30"
	// Ignores SIGINT and SIGTERM; only SIGKILL ends it.
	scriptStubborn = "trap '' INT TERM\nwhile :; do sleep 0.1; done"
)

// countingControl delegates to the real signal delivery and counts calls.
type countingControl struct {
	interrupts atomic.Int32
	kills      atomic.Int32
}

func (c *countingControl) Interrupt(pid int) error {
	c.interrupts.Add(1)
	return signalControl{}.Interrupt(pid)
}

func (c *countingControl) Kill(pid int) error {
	c.kills.Add(1)
	return signalControl{}.Kill(pid)
}

// recordingLogger captures entries for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) record(level, msg string, args ...any) {
	var b strings.Builder
	b.WriteString(level + " " + msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	l.mu.Lock()
	l.entries = append(l.entries, b.String())
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args...) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

type recordingObserver struct {
	mu      sync.Mutex
	started []Status
	exited  []Exit
}

func (o *recordingObserver) RelayStarted(s Status) {
	o.mu.Lock()
	o.started = append(o.started, s)
	o.mu.Unlock()
}

func (o *recordingObserver) RelayExited(e Exit) {
	o.mu.Lock()
	o.exited = append(o.exited, e)
	o.mu.Unlock()
}

func (o *recordingObserver) exits() []Exit {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Exit(nil), o.exited...)
}

// writeRelay writes a fake relay shell script and returns its path.
func writeRelay(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil { //nolint:gosec // test script must be executable
		t.Fatalf("writing fake relay: %v", err)
	}
	return path
}

func newTestSupervisor(t *testing.T, script string, grace time.Duration) (*Supervisor, *countingControl) {
	t.Helper()
	ctrl := &countingControl{}
	s := newSupervisor(Config{
		Binary:        writeRelay(t, script),
		LocalEndpoint: "rtmp://127.0.0.1:1935",
		GracePeriod:   grace,
	}, nil, ctrl, t.TempDir())
	t.Cleanup(s.StopAll)
	return s, ctrl
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestSupervisor_StartAndStop(t *testing.T) {
	s, ctrl := newTestSupervisor(t, scriptSleeper, 2*time.Second)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !s.IsRunning("room-a") {
		t.Fatal("IsRunning() = false after Start()")
	}
	st := s.GetStatus("room-a")
	if !st.Running || st.PID == 0 || st.SourceURL != testSource || st.DestURL != testDest {
		t.Errorf("GetStatus() = %+v", st)
	}
	if st.StartedAt.IsZero() {
		t.Error("StartedAt is zero")
	}

	if err := s.Stop("room-a"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if s.IsRunning("room-a") {
		t.Error("IsRunning() = true after Stop()")
	}
	if got := s.GetStatus("room-a"); got.Running {
		t.Errorf("GetStatus().Running = true after Stop()")
	}
	if got := ctrl.kills.Load(); got != 0 {
		t.Errorf("forced kills = %d, want 0 for a relay that honours the interrupt", got)
	}
	if got := ctrl.interrupts.Load(); got != 1 {
		t.Errorf("interrupts = %d, want 1", got)
	}
}

func TestSupervisor_StopForcesKillExactlyOnce(t *testing.T) {
	s, ctrl := newTestSupervisor(t, scriptStubborn, 300*time.Millisecond)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Give the shell time to install its trap.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	if err := s.Stop("room-a"); err != nil {
		t.Fatalf("Stop() error = %v, want nil after forced kill", err)
	}

	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("Stop() returned after %v, before the grace period elapsed", elapsed)
	}
	if got := ctrl.kills.Load(); got != 1 {
		t.Errorf("forced kills = %d, want exactly 1", got)
	}
	if s.IsRunning("room-a") {
		t.Error("IsRunning() = true after forced Stop()")
	}
}

func TestSupervisor_StartAlreadyRunning(t *testing.T) {
	s, _ := newTestSupervisor(t, scriptSleeper, time.Second)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	before := s.GetStatus("room-a")

	err := s.Start("room-a", "rtsp://other/stream", testDest)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	if !errors.Is(err, ErrStateConflict) {
		t.Errorf("error %v should also match ErrStateConflict", err)
	}

	after := s.GetStatus("room-a")
	if after.PID != before.PID || after.SourceURL != testSource {
		t.Errorf("registry changed by rejected Start(): before %+v, after %+v", before, after)
	}
}

func TestSupervisor_ConcurrentStartRegistersOnce(t *testing.T) {
	s, _ := newTestSupervisor(t, scriptSleeper, time.Second)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Start("room-a", testSource, testDest)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrAlreadyRunning):
				conflicts.Add(1)
			default:
				t.Errorf("Start() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 || conflicts.Load() != attempts-1 {
		t.Errorf("successes = %d, conflicts = %d; want 1 and %d", successes.Load(), conflicts.Load(), attempts-1)
	}
	if n := len(s.List()); n != 1 {
		t.Errorf("List() has %d entries, want 1", n)
	}
}

func TestSupervisor_StopNotRunning(t *testing.T) {
	s, _ := newTestSupervisor(t, scriptSleeper, time.Second)

	err := s.Stop("room-missing")
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop() error = %v, want ErrNotRunning", err)
	}
	if len(s.List()) != 0 {
		t.Error("registry changed by rejected Stop()")
	}
}

func TestSupervisor_ConcurrentStopRejected(t *testing.T) {
	s, ctrl := newTestSupervisor(t, scriptStubborn, 500*time.Millisecond)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Stop("room-a") }()

	waitFor(t, "first Stop to begin", func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		r, ok := s.relays["room-a"]
		return ok && r.stopping
	})

	if err := s.Stop("room-a"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop() error = %v, want ErrNotRunning", err)
	}
	if err := <-firstDone; err != nil {
		t.Errorf("first Stop() error = %v", err)
	}
	if got := ctrl.kills.Load(); got != 1 {
		t.Errorf("forced kills = %d, want 1", got)
	}
}

func TestSupervisor_BinaryNotFound(t *testing.T) {
	s := newSupervisor(Config{
		Binary:        filepath.Join(t.TempDir(), "missing-ffmpeg"),
		LocalEndpoint: "rtmp://127.0.0.1:1935",
	}, nil, &countingControl{}, t.TempDir())

	err := s.Start("room-a", testSource, testDest)
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("Start() error = %v, want ErrBinaryNotFound", err)
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("error %v should also match ErrConfiguration", err)
	}
	if s.IsRunning("room-a") {
		t.Error("room registered after failed Start()")
	}
}

func TestSupervisor_StartRequiresAddresses(t *testing.T) {
	s, _ := newTestSupervisor(t, scriptSleeper, time.Second)

	tests := []struct {
		name, room, src, dst string
	}{
		{"missing room", "", testSource, testDest},
		{"missing source", "room-a", "", testDest},
		{"missing destination", "room-a", testSource, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Start(tt.room, tt.src, tt.dst); !errors.Is(err, ErrConfiguration) {
				t.Errorf("Start() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestSupervisor_NaturalExitRemovesEntry(t *testing.T) {
	s, _ := newTestSupervisor(t, "exit 3", time.Second)
	obs := &recordingObserver{}
	s.SetObserver(obs)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "relay to be reaped", func() bool { return !s.IsRunning("room-a") })
	waitFor(t, "exit notification", func() bool { return len(obs.exits()) == 1 })

	exit := obs.exits()[0]
	if exit.RoomID != "room-a" || exit.Requested {
		t.Errorf("Exit = %+v, want unrequested exit for room-a", exit)
	}
	if exit.Err == nil {
		t.Error("Exit.Err = nil, want non-zero exit status")
	}

	// The room can be started again once reaped.
	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Errorf("Start() after exit error = %v", err)
	}
}

func TestSupervisor_ObserverSeesRequestedStop(t *testing.T) {
	s, _ := newTestSupervisor(t, scriptSleeper, 2*time.Second)
	obs := &recordingObserver{}
	s.SetObserver(obs)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop("room-a"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	waitFor(t, "exit notification", func() bool { return len(obs.exits()) == 1 })

	obs.mu.Lock()
	started := len(obs.started)
	obs.mu.Unlock()
	if started != 1 {
		t.Errorf("RelayStarted calls = %d, want 1", started)
	}

	exit := obs.exits()[0]
	if !exit.Requested {
		t.Error("Exit.Requested = false after Stop()")
	}
	if exit.Err != nil {
		t.Errorf("Exit.Err = %v, want nil for a requested stop", exit.Err)
	}
}

func TestSupervisor_CapturesOutput(t *testing.T) {
	logger := &recordingLogger{}
	s := newSupervisor(Config{
		Binary:        writeRelay(t, "echo connecting to camera\necho 'rtsp timeout' >&2\nexec sleep 30"),
		LocalEndpoint: "rtmp://127.0.0.1:1935",
		GracePeriod:   time.Second,
	}, logger, &countingControl{}, t.TempDir())
	t.Cleanup(s.StopAll)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "stdout line", func() bool { return logger.contains("connecting to camera") })
	waitFor(t, "stderr line", func() bool { return logger.contains("rtsp timeout") })

	if !logger.contains("stream=stderr line=rtsp timeout") {
		t.Error("stderr line not tagged with its stream")
	}
	if !logger.contains("room_id=room-a") {
		t.Error("output not tagged with room_id")
	}
}

// orderedObserver records lifecycle callbacks in arrival order. A slow
// RelayStarted widens the window in which an early exit could overtake it.
type orderedObserver struct {
	startDelay time.Duration

	mu     sync.Mutex
	events []string
}

func (o *orderedObserver) RelayStarted(Status) {
	time.Sleep(o.startDelay)
	o.mu.Lock()
	o.events = append(o.events, "started")
	o.mu.Unlock()
}

func (o *orderedObserver) RelayExited(Exit) {
	o.mu.Lock()
	o.events = append(o.events, "exited")
	o.mu.Unlock()
}

func (o *orderedObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

func TestSupervisor_ImmediateExitReportedAfterStart(t *testing.T) {
	s, _ := newTestSupervisor(t, "exit 1", time.Second)
	obs := &orderedObserver{startDelay: 300 * time.Millisecond}
	s.SetObserver(obs)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "both notifications", func() bool { return len(obs.snapshot()) == 2 })

	got := obs.snapshot()
	if got[0] != "started" || got[1] != "exited" {
		t.Errorf("notification order = %v, want [started exited]", got)
	}
	if s.IsRunning("room-a") {
		t.Error("IsRunning() = true after relay exited")
	}
}

func TestSupervisor_CapturesFinalOutputBeforeExit(t *testing.T) {
	logger := &recordingLogger{}
	script := `i=0
while [ $i -lt 2000 ]; do echo "frame $i" >&2; i=$((i+1)); done
echo FINAL-ERROR >&2
exit 1`
	s := newSupervisor(Config{
		Binary:        writeRelay(t, script),
		LocalEndpoint: "rtmp://127.0.0.1:1935",
		GracePeriod:   time.Second,
	}, logger, &countingControl{}, t.TempDir())
	t.Cleanup(s.StopAll)
	obs := &recordingObserver{}
	s.SetObserver(obs)

	if err := s.Start("room-a", testSource, testDest); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "exit notification", func() bool { return len(obs.exits()) == 1 })

	if !logger.contains("stream=stderr line=FINAL-ERROR") {
		t.Error("last stderr line was not captured before the exit was reported")
	}
}

func TestSupervisor_ListAndStopAll(t *testing.T) {
	s, _ := newTestSupervisor(t, scriptSleeper, 2*time.Second)

	for _, room := range []string{"room-b", "room-a", "room-c"} {
		if err := s.Start(room, testSource, testDest+"-"+room); err != nil {
			t.Fatalf("Start(%s) error = %v", room, err)
		}
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("List() len = %d, want 3", len(list))
	}
	for i, want := range []string{"room-a", "room-b", "room-c"} {
		if list[i].RoomID != want || !list[i].Running {
			t.Errorf("List()[%d] = %+v, want running %s", i, list[i], want)
		}
	}

	s.StopAll()

	if n := len(s.List()); n != 0 {
		t.Errorf("List() len = %d after StopAll(), want 0", n)
	}
}

func TestRelayArgs(t *testing.T) {
	args := relayArgs(testSource, testDest)

	if args[len(args)-1] != testDest {
		t.Errorf("last arg = %q, want destination", args[len(args)-1])
	}

	pairs := map[string]string{
		"-rtsp_transport": "tcp",
		"-i":              testSource,
		"-c:v":            "copy",
		"-c:a":            "aac",
		"-b:a":            "128k",
		"-f":              "flv",
		"-timeout":        socketTimeoutMicros,
	}
	for flag, want := range pairs {
		found := false
		for i := 0; i < len(args)-1; i++ {
			if args[i] == flag {
				found = true
				if args[i+1] != want {
					t.Errorf("%s = %q, want %q", flag, args[i+1], want)
				}
			}
		}
		if !found {
			t.Errorf("flag %s missing from %v", flag, args)
		}
	}

	// Profile is deterministic.
	again := relayArgs(testSource, testDest)
	if strings.Join(again, " ") != strings.Join(args, " ") {
		t.Error("relayArgs() not deterministic")
	}
}

func TestBinaryName(t *testing.T) {
	if got := binaryName(""); got != "ffmpeg" {
		t.Errorf("binaryName(\"\") = %q, want ffmpeg", got)
	}
	if got := binaryName("/opt/ffmpeg/bin/ffmpeg-7"); got != "/opt/ffmpeg/bin/ffmpeg-7" {
		t.Errorf("binaryName() = %q", got)
	}
}
