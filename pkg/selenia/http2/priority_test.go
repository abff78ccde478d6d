package http2

import "testing"

func TestPriorityTreeAddDefaultsUnderRoot(t *testing.T) {
	tree := NewPriorityTree()
	tree.Add(1, rootStreamID, 0, false)

	if tree.nodes[1].parent != rootStreamID {
		t.Fatalf("expected stream 1 under root, got parent %d", tree.nodes[1].parent)
	}
	if tree.nodes[1].weight != defaultStreamWeight {
		t.Fatalf("expected default weight %d, got %d", defaultStreamWeight, tree.nodes[1].weight)
	}
}

func TestPriorityTreeExclusiveAddReparentsSiblings(t *testing.T) {
	tree := NewPriorityTree()
	tree.Add(1, rootStreamID, 16, false)
	tree.Add(2, rootStreamID, 16, false)
	tree.Add(3, rootStreamID, 16, false)

	// Stream 4 exclusively depends on root: 1, 2, and 3 must move under it.
	tree.Add(4, rootStreamID, 16, true)

	root := tree.nodes[rootStreamID]
	if _, ok := root.children[4]; !ok || len(root.children) != 1 {
		t.Fatalf("expected root to have only stream 4 as a child, got %v", root.children)
	}
	for _, id := range []uint32{1, 2, 3} {
		if tree.nodes[id].parent != 4 {
			t.Fatalf("expected stream %d to be reparented under 4, got parent %d", id, tree.nodes[id].parent)
		}
	}
}

func TestPriorityTreeReprioritizeMovesNode(t *testing.T) {
	tree := NewPriorityTree()
	tree.Add(1, rootStreamID, 16, false)
	tree.Add(2, rootStreamID, 16, false)

	if err := tree.Reprioritize(2, 1, 32, false); err != nil {
		t.Fatalf("Reprioritize: %v", err)
	}
	if tree.nodes[2].parent != 1 {
		t.Fatalf("expected stream 2 under stream 1, got parent %d", tree.nodes[2].parent)
	}
	if _, ok := tree.nodes[rootStreamID].children[2]; ok {
		t.Fatal("expected stream 2 removed from root's children")
	}
}

func TestPriorityTreeReprioritizeRejectsCycle(t *testing.T) {
	tree := NewPriorityTree()
	tree.Add(1, rootStreamID, 16, false)
	tree.Add(2, 1, 16, false)

	if err := tree.Reprioritize(1, 2, 16, false); err != ErrPriorityCycleDetected {
		t.Fatalf("expected ErrPriorityCycleDetected, got %v", err)
	}
	if tree.nodes[1].parent != rootStreamID {
		t.Fatal("tree should be unchanged after a rejected cycle")
	}
}

func TestPriorityTreeNextReturnsLowestIDWhoseShareClearsEpsilon(t *testing.T) {
	tree := NewPriorityTree()
	tree.Add(1, rootStreamID, 16, false)
	tree.Add(2, rootStreamID, 240, false)
	tree.QueueData(1, 100)
	tree.QueueData(2, 100)

	// Stream 1's share is 16/256, well above schedulerEpsilon, so the
	// lighter sibling with the lower id is still picked first.
	id, ok := tree.Next()
	if !ok || id != 1 {
		t.Fatalf("expected stream 1, the lowest id with queued data, got id=%d ok=%v", id, ok)
	}
}

func TestPriorityTreeNextSkipsEmptyStreams(t *testing.T) {
	tree := NewPriorityTree()
	tree.Add(1, rootStreamID, 16, false)
	tree.Add(2, rootStreamID, 16, false)
	tree.QueueData(2, 50)

	id, ok := tree.Next()
	if !ok || id != 2 {
		t.Fatalf("expected stream 2 (the only one with queued data), got id=%d ok=%v", id, ok)
	}
}

// TestSchedulerAdmissionRespectsWindowsBetweenUpdates exercises the
// property that NextStream's admissions never exceed the smaller of the
// connection and stream windows observed at the first admission, until a
// window increment runs again.
func TestSchedulerAdmissionRespectsWindowsBetweenUpdates(t *testing.T) {
	fc := NewFlowController()
	if err := fc.SetInitialWindowSize(1000); err != nil {
		t.Fatalf("SetInitialWindowSize: %v", err)
	}
	tree := NewPriorityTree()
	tree.Add(1, rootStreamID, 16, false)
	sched := NewScheduler(tree, fc)
	stream := NewStream(1, fc.InitialWindowSize())
	sched.Register(1, stream)

	sched.QueueData(1, 10000)

	connWindow := fc.ConnectionSendWindow()
	streamWindow := stream.sendWindow
	limit := connWindow
	if streamWindow < limit {
		limit = streamWindow
	}

	var admitted int64
	for {
		id, ok := sched.NextStream(256)
		if !ok || id != 1 {
			break
		}
		admitted += 256
	}

	if admitted > int64(limit) {
		t.Fatalf("admitted %d bytes, exceeding the %d-byte window in effect at first admission", admitted, limit)
	}
}
