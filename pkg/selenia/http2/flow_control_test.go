package http2

import "testing"

func TestCanSendAdmitsWithinBothWindows(t *testing.T) {
	fc := NewFlowController()
	stream := NewStream(1, fc.InitialWindowSize())

	if !fc.CanSend(stream, 100) {
		t.Error("CanSend should admit an amount within both connection and stream windows")
	}
}

func TestCanSendRejectsAboveStreamWindow(t *testing.T) {
	fc := NewFlowController()
	stream := NewStream(1, 50)

	if fc.CanSend(stream, 100) {
		t.Error("CanSend should refuse an amount exceeding the stream's send window")
	}
}

func TestCanSendRejectsAboveConnectionWindow(t *testing.T) {
	fc := NewFlowController()
	stream := NewStream(1, fc.InitialWindowSize())

	if err := fc.ConsumeConnectionSendWindow(fc.ConnectionSendWindow() - 10); err != nil {
		t.Fatalf("failed to drain connection window: %v", err)
	}

	if fc.CanSend(stream, 100) {
		t.Error("CanSend should refuse an amount exceeding the connection's send window")
	}
}

func TestSendDataConsumesBothWindowsAndCapsAtSmaller(t *testing.T) {
	fc := NewFlowController()
	stream := NewStream(1, 1000)

	if err := fc.ConsumeConnectionSendWindow(fc.ConnectionSendWindow() - 500); err != nil {
		t.Fatalf("failed to size down connection window: %v", err)
	}

	data := make([]byte, 900)
	sent, err := fc.SendData(stream, data)
	if err != nil {
		t.Fatalf("SendData returned error: %v", err)
	}
	if sent != 500 {
		t.Fatalf("SendData sent %d bytes, want capped at connection window of 500", sent)
	}
	if fc.ConnectionSendWindow() != 0 {
		t.Errorf("connection send window after send = %d, want 0", fc.ConnectionSendWindow())
	}
	if stream.SendWindow() != 500 {
		t.Errorf("stream send window after send = %d, want 500", stream.SendWindow())
	}
}

func TestSendDataBlocksWhenWindowExhausted(t *testing.T) {
	fc := NewFlowController()
	stream := NewStream(1, 0)

	sent, err := fc.SendData(stream, []byte("payload"))
	if err != nil {
		t.Fatalf("SendData returned error: %v", err)
	}
	if sent != 0 {
		t.Fatalf("SendData should send 0 bytes when the stream window is exhausted, sent %d", sent)
	}
}

func TestChunkDataRespectsMaxFrameSize(t *testing.T) {
	fc := NewFlowController()
	if err := fc.SetMaxFrameSize(MinMaxFrameSize); err != nil {
		t.Fatalf("SetMaxFrameSize failed: %v", err)
	}
	stream := NewStream(1, int32(10*MinMaxFrameSize))

	data := make([]byte, 3*MinMaxFrameSize+1)
	chunks := fc.ChunkData(data, stream)

	total := 0
	for _, c := range chunks {
		if len(c) > MinMaxFrameSize {
			t.Fatalf("chunk of %d bytes exceeds max frame size %d", len(c), MinMaxFrameSize)
		}
		total += len(c)
	}
	if total != len(data) {
		t.Fatalf("chunks cover %d bytes, want %d", total, len(data))
	}
}
