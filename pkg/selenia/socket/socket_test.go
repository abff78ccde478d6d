package socket

import (
	"net"
	"testing"
)

func TestDefaultConfigEnablesLowLatencyOptions(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.NoDelay {
		t.Error("DefaultConfig should disable Nagle's algorithm")
	}
	if cfg.RecvBuffer <= 0 || cfg.SendBuffer <= 0 {
		t.Error("DefaultConfig should size both socket buffers")
	}
}

func TestHighThroughputConfigUsesLargerBuffers(t *testing.T) {
	def := DefaultConfig()
	ht := HighThroughputConfig()
	if ht.RecvBuffer <= def.RecvBuffer || ht.SendBuffer <= def.SendBuffer {
		t.Error("HighThroughputConfig should use larger buffers than DefaultConfig")
	}
}

func TestCanUseSendFileRequiresTCPConn(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	if CanUseSendFile(a) {
		t.Error("CanUseSendFile should be false for a non-TCP net.Conn")
	}
}

func TestApplyUDPSizesBuffers(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		t.Skipf("cannot open UDP socket in this sandbox: %v", err)
	}
	defer conn.Close()

	cfg := &Config{RecvBuffer: 64 * 1024, SendBuffer: 64 * 1024}
	if err := ApplyUDP(conn, cfg); err != nil {
		t.Errorf("ApplyUDP returned error: %v", err)
	}
}

func TestApplyUDPNilConfigUsesDefaults(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		t.Skipf("cannot open UDP socket in this sandbox: %v", err)
	}
	defer conn.Close()

	if err := ApplyUDP(conn, nil); err != nil {
		t.Errorf("ApplyUDP with nil config returned error: %v", err)
	}
}
