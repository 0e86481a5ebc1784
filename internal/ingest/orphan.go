package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// cleanupOrphans kills relay processes that publish to the local endpoint
// but are not ours. It runs before any relay is started, so every match
// belongs to a previous instance. Returns the number of processes killed.
func (s *Supervisor) cleanupOrphans() int {
	if s.cfg.LocalEndpoint == "" {
		return 0
	}

	pids := findRelayProcesses(s.procRoot, binaryName(s.cfg.Binary), s.cfg.LocalEndpoint)

	killed := 0
	for _, pid := range pids {
		if err := s.ctrl.Kill(pid); err != nil {
			s.logger.Debug("failed to kill orphaned relay", "pid", pid, "error", err)
			continue
		}
		s.logger.Info("killed orphaned relay", "pid", pid)
		killed++
	}
	return killed
}

// findRelayProcesses scans procRoot for processes whose executable base name
// matches binary and whose arguments target endpoint. Unreadable entries are
// skipped; a missing procRoot yields no matches.
func findRelayProcesses(procRoot, binary, endpoint string) []int {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil
	}

	self := os.Getpid()
	want := filepath.Base(binary)

	var pids []int
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}

		cmdline, err := os.ReadFile(filepath.Join(procRoot, entry.Name(), "cmdline"))
		if err != nil || len(cmdline) == 0 {
			continue
		}

		args := strings.Split(string(bytes.TrimRight(cmdline, "\x00")), "\x00")
		if filepath.Base(args[0]) != want {
			continue
		}
		for _, arg := range args[1:] {
			if strings.HasPrefix(arg, endpoint) {
				pids = append(pids, pid)
				break
			}
		}
	}
	return pids
}
