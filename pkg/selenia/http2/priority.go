package http2

import "sort"

// rootStreamID is the priority tree's virtual root (RFC 7540 §5.3.1):
// every stream with no PRIORITY-assigned parent depends on it directly.
const rootStreamID = 0

// rootWeight is the virtual root's own weight, which only matters as the
// denominator when a stream reparents directly under it.
const rootWeight = 16

// defaultStreamWeight is RFC 7540 §5.3.5's default weight (16) for a stream
// opened without an explicit PRIORITY frame or HEADERS priority fields.
const defaultStreamWeight = 16

// priorityNode is one node of the dependency tree: an arena entry keyed by
// stream id, referencing its parent and children only by id so reparenting
// never needs reference counting or pointer surgery.
type priorityNode struct {
	id          uint32
	parent      uint32
	weight      uint16 // real RFC weight, 1-256
	children    map[uint32]struct{}
	queuedBytes int64
}

// PriorityTree is the weighted dependency tree spec.md §4.G's HTTP/2
// priority node describes: a rooted tree (virtual root id 0, weight 16)
// where Add with exclusive=true reparents the target parent's existing
// children underneath the newly added node before attaching it.
type PriorityTree struct {
	nodes map[uint32]*priorityNode
}

// NewPriorityTree returns a tree containing only the virtual root.
func NewPriorityTree() *PriorityTree {
	return &PriorityTree{
		nodes: map[uint32]*priorityNode{
			rootStreamID: {id: rootStreamID, weight: rootWeight, children: make(map[uint32]struct{})},
		},
	}
}

// Add inserts id under parent with weight (1-256), creating id if it is
// not already present. If exclusive is set, parent's current children are
// first moved underneath id, so id becomes their sole new ancestor before
// it is linked under parent itself. A parent that does not exist, or a
// request to depend on oneself, falls back to the virtual root.
func (t *PriorityTree) Add(id, parent uint32, weight uint16, exclusive bool) {
	if weight == 0 {
		weight = defaultStreamWeight
	}
	if id == parent {
		parent = rootStreamID
	}
	parentNode, ok := t.nodes[parent]
	if !ok {
		parent = rootStreamID
		parentNode = t.nodes[rootStreamID]
	}

	node, exists := t.nodes[id]
	if !exists {
		node = &priorityNode{id: id, children: make(map[uint32]struct{})}
		t.nodes[id] = node
	} else if oldParent, ok := t.nodes[node.parent]; ok && node.parent != parent {
		delete(oldParent.children, id)
	}

	var moved []uint32
	if exclusive {
		for c := range parentNode.children {
			if c != id {
				moved = append(moved, c)
			}
		}
		parentNode.children = make(map[uint32]struct{})
	}

	node.parent = parent
	node.weight = weight
	parentNode.children[id] = struct{}{}

	for _, c := range moved {
		if child, ok := t.nodes[c]; ok {
			child.parent = id
			node.children[c] = struct{}{}
		}
	}
}

// isDescendant reports whether candidate appears anywhere below ancestor.
func (t *PriorityTree) isDescendant(ancestor, candidate uint32) bool {
	node, ok := t.nodes[ancestor]
	if !ok {
		return false
	}
	for c := range node.children {
		if c == candidate || t.isDescendant(c, candidate) {
			return true
		}
	}
	return false
}

// Reprioritize detaches id from its current parent and re-adds it under
// newParent with the same exclusive-reparenting rule as Add. Per RFC 7540
// §5.3.3, moving id under one of its own descendants would create a cycle;
// that case is rejected with ErrPriorityCycleDetected and the tree is left
// unchanged.
func (t *PriorityTree) Reprioritize(id, newParent uint32, weight uint16, exclusive bool) error {
	if _, ok := t.nodes[id]; ok && t.isDescendant(id, newParent) {
		return ErrPriorityCycleDetected
	}
	t.Add(id, newParent, weight, exclusive)
	return nil
}

// QueueData records n bytes queued to send on id's stream, for NextStream's
// weighted traversal to discover later. Queuing against an unknown id is a
// no-op: the stream was never opened with Add, so nothing schedules it.
func (t *PriorityTree) QueueData(id uint32, n int) {
	if node, ok := t.nodes[id]; ok {
		node.queuedBytes += int64(n)
	}
}

// schedulerEpsilon is the minimum distributed weight share Next treats as
// worth admitting. A sufficiently deep or heavily fanned-out tree can
// otherwise dilute a leaf's share arbitrarily close to zero without ever
// reaching it; Next prefers to skip such a leaf over starving everything
// else waiting behind it.
const schedulerEpsilon = 1e-6

// Next performs spec.md §4.G's weighted traversal from the root,
// distributing the incoming share among each node's children proportional
// to weight/total_weight, and returns the first descendant (by ascending
// stream id, for determinism) with queued data whose distributed share
// clears schedulerEpsilon. It only inspects queued-bytes counters; flow
// control admission is Scheduler.NextStream's job.
func (t *PriorityTree) Next() (uint32, bool) {
	return t.walk(rootStreamID, 1.0)
}

func (t *PriorityTree) walk(id uint32, share float64) (uint32, bool) {
	node, ok := t.nodes[id]
	if !ok {
		return 0, false
	}
	if id != rootStreamID && node.queuedBytes > 0 && share > schedulerEpsilon {
		return id, true
	}
	if len(node.children) == 0 {
		return 0, false
	}

	children := make([]uint32, 0, len(node.children))
	totalWeight := 0
	for c := range node.children {
		children = append(children, c)
		totalWeight += int(t.nodes[c].weight)
	}
	if totalWeight == 0 {
		return 0, false
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })

	for _, c := range children {
		childShare := share * float64(t.nodes[c].weight) / float64(totalWeight)
		if found, ok := t.walk(c, childShare); ok {
			return found, true
		}
	}
	return 0, false
}

func (t *PriorityTree) consume(id uint32, n int64) {
	node, ok := t.nodes[id]
	if !ok {
		return
	}
	node.queuedBytes -= n
	if node.queuedBytes < 0 {
		node.queuedBytes = 0
	}
}

// Scheduler pairs a PriorityTree with a FlowController, implementing
// spec.md §4.G's queue_data/next_stream operations: next_stream finds the
// highest-share stream with queued data, then admits it only if frame_size
// fits both the connection window and that stream's window, decrementing
// all three counters atomically. A tree hit that flow control rejects
// returns ok=false rather than falling through to a different stream,
// matching the spec text exactly.
type Scheduler struct {
	tree    *PriorityTree
	fc      *FlowController
	streams map[uint32]*Stream
}

// NewScheduler builds a Scheduler over tree and fc.
func NewScheduler(tree *PriorityTree, fc *FlowController) *Scheduler {
	return &Scheduler{tree: tree, fc: fc, streams: make(map[uint32]*Stream)}
}

// Register associates id with stream so NextStream can check and consume
// its per-stream flow-control window.
func (s *Scheduler) Register(id uint32, stream *Stream) {
	s.streams[id] = stream
}

// QueueData increments id's queued-bytes counter.
func (s *Scheduler) QueueData(id uint32, n int) {
	s.tree.QueueData(id, n)
}

// NextStream runs one admission round: it asks the tree for the
// highest-priority stream with queued data, then reserves frameSize bytes
// on both the connection and stream windows before returning that id. It
// returns ok=false if nothing is queued, the candidate was never
// registered, or flow control cannot admit frameSize right now -- the
// caller is expected to retry later (e.g. after a WINDOW_UPDATE), not pick
// a different stream out of priority order.
func (s *Scheduler) NextStream(frameSize int32) (id uint32, ok bool) {
	candidate, found := s.tree.Next()
	if !found {
		return 0, false
	}
	stream := s.streams[candidate]
	if stream == nil || !s.fc.CanSend(stream, frameSize) {
		return 0, false
	}
	if err := s.fc.ConsumeConnectionSendWindow(frameSize); err != nil {
		return 0, false
	}
	if err := stream.ConsumeSendWindow(frameSize); err != nil {
		_ = s.fc.IncrementConnectionSendWindow(frameSize)
		return 0, false
	}
	s.tree.consume(candidate, int64(frameSize))
	return candidate, true
}
