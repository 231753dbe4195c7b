package debugview

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/rivo/uniseg"
)

// DefaultMaxLabel bounds the node column of [Recorder.Table].
const DefaultMaxLabel = 48

// Event is one recorded root status change.
type Event struct {
	Frame  uint64
	Tree   string
	Node   string
	Status behavior.Status
}

// Recorder collects root status changes from any number of trees.
type Recorder struct {
	mu     sync.Mutex
	frame  uint64
	limit  int
	events []Event
}

// NewRecorder returns a recorder keeping the last limit events, or all of
// them when limit <= 0.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Attach records the status changes of tree. The returned func detaches.
func (r *Recorder) Attach(tree *behavior.Tree) (detach func()) {
	id := tree.ID()
	return tree.OnStatusChanged(func(n behavior.Node, s behavior.Status) {
		r.Record(id, behavior.NodeLabel(n), s)
	})
}

// SetFrame sets the frame number stamped on subsequent events.
func (r *Recorder) SetFrame(frame uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = frame
}

// Record appends an event for the current frame.
func (r *Recorder) Record(tree, node string, s behavior.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Frame: r.frame, Tree: tree, Node: node, Status: s})
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = append(r.events[:0], r.events[len(r.events)-r.limit:]...)
	}
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards every event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Table renders the events as aligned columns: frame, tree, node, status.
func (r *Recorder) Table(st Styles) string {
	events := r.Events()
	if len(events) == 0 {
		return ""
	}

	frameW, treeW, nodeW := len("FRAME"), len("TREE"), len("NODE")
	nodes := make([]string, len(events))
	for i, e := range events {
		nodes[i] = Truncate(e.Node, DefaultMaxLabel, "…")
		frameW = max(frameW, len(fmt.Sprint(e.Frame)))
		treeW = max(treeW, uniseg.StringWidth(e.Tree))
		nodeW = max(nodeW, uniseg.StringWidth(nodes[i]))
	}

	var sb strings.Builder
	header := strings.Join([]string{Pad("FRAME", frameW), Pad("TREE", treeW), Pad("NODE", nodeW), "STATUS"}, "  ")
	sb.WriteString(st.Header.Render(header))
	sb.WriteByte('\n')
	for i, e := range events {
		sb.WriteString(Pad(fmt.Sprint(e.Frame), frameW))
		sb.WriteString("  ")
		sb.WriteString(Pad(e.Tree, treeW))
		sb.WriteString("  ")
		sb.WriteString(Pad(nodes[i], nodeW))
		sb.WriteString("  ")
		sb.WriteString(st.Status(e.Status))
		sb.WriteByte('\n')
	}
	return sb.String()
}
