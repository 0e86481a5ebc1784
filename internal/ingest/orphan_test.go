package ingest

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

// fakeControl records kills without signalling anything.
type fakeControl struct {
	mu     sync.Mutex
	killed []int
}

func (f *fakeControl) Interrupt(int) error { return nil }

func (f *fakeControl) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, pid)
	return nil
}

func writeProc(t *testing.T, root, pid string, args ...string) {
	t.Helper()
	dir := filepath.Join(root, pid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	cmdline := ""
	if len(args) > 0 {
		cmdline = strings.Join(args, "\x00") + "\x00"
	}
	if err := os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestNewSupervisor_KillsOrphanedRelays(t *testing.T) {
	root := t.TempDir()
	endpoint := "rtmp://127.0.0.1:1935"

	writeProc(t, root, "101", "ffmpeg", "-i", "rtsp://cam-a/stream", "-f", "flv", endpoint+"/live/key-a")
	writeProc(t, root, "102", "ffmpeg", "-i", "rtsp://cam-b/stream", "-f", "flv", "rtmp://elsewhere:1935/live/key-b")
	writeProc(t, root, "103", "/usr/bin/vlc", endpoint+"/live/key-c")
	writeProc(t, root, "104") // kernel thread, empty cmdline
	writeProc(t, root, "105", "/usr/bin/ffmpeg", "-i", "rtsp://cam-d/stream", endpoint+"/live/key-d")
	writeProc(t, root, "self", "ffmpeg", endpoint)

	ctrl := &fakeControl{}
	newSupervisor(Config{LocalEndpoint: endpoint}, nil, ctrl, root)

	slices.Sort(ctrl.killed)
	if want := []int{101, 105}; !slices.Equal(ctrl.killed, want) {
		t.Errorf("killed = %v, want %v", ctrl.killed, want)
	}
}

func TestNewSupervisor_OrphanScanFailureIsIgnored(t *testing.T) {
	ctrl := &fakeControl{}
	s := newSupervisor(Config{LocalEndpoint: "rtmp://127.0.0.1:1935"}, nil, ctrl, filepath.Join(t.TempDir(), "no-proc"))

	if s == nil {
		t.Fatal("newSupervisor() returned nil")
	}
	if len(ctrl.killed) != 0 {
		t.Errorf("killed = %v, want none", ctrl.killed)
	}
}

func TestFindRelayProcesses_CustomBinary(t *testing.T) {
	root := t.TempDir()
	endpoint := "rtmp://media:1935"

	writeProc(t, root, "200", "/opt/relay/bin/ffmpeg-static", "-f", "flv", endpoint+"/live/x")
	writeProc(t, root, "201", "ffmpeg", "-f", "flv", endpoint+"/live/y")

	got := findRelayProcesses(root, "/opt/relay/bin/ffmpeg-static", endpoint)
	if !slices.Equal(got, []int{200}) {
		t.Errorf("findRelayProcesses() = %v, want [200]", got)
	}
}
