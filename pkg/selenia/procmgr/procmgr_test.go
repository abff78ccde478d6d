package procmgr

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestIsWorker(t *testing.T) {
	os.Unsetenv(RoleEnv)
	if IsWorker() {
		t.Fatal("expected IsWorker false with no role set")
	}
	os.Setenv(RoleEnv, RoleWorker)
	defer os.Unsetenv(RoleEnv)
	if !IsWorker() {
		t.Fatal("expected IsWorker true once role is set")
	}
}

func TestPidFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sws.pid")
	if err := WritePidFile(path); err != nil {
		t.Fatalf("WritePidFile: %v", err)
	}
	pid, err := ReadPidFile(path)
	if err != nil {
		t.Fatalf("ReadPidFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("got pid %d, want %d", pid, os.Getpid())
	}
}

func TestSignalPidMissingFile(t *testing.T) {
	if err := SignalPid(filepath.Join(t.TempDir(), "missing.pid"), syscall.SIGTERM); err == nil {
		t.Fatal("expected error for missing pidfile")
	}
}

func TestEmptyWorkerPoolHasNothingToReap(t *testing.T) {
	// A fresh pool tracks no workers and has none to reap.
	pool := &WorkerPool{}
	if pool.Len() != 0 {
		t.Fatalf("expected empty pool, got %d", pool.Len())
	}
	if pool.Reap() != 0 {
		t.Fatal("expected no workers to reap from an empty pool")
	}
}
