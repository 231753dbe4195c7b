package behavior

// Sequence runs its children in order until one fails or is still running.
//
// A Running child is resumed on the next evaluation without re-running the
// children before it. Failure rewinds to the first child. An empty sequence
// fails.
type Sequence struct {
	Nodes []Node

	index   int
	running bool
}

// NewSequence returns a Sequence over children.
func NewSequence(children ...Node) *Sequence {
	return &Sequence{Nodes: children}
}

func (s *Sequence) Run(ctx *Context) (Status, error) {
	if len(s.Nodes) == 0 {
		return Failure, nil
	}
	for s.index < len(s.Nodes) {
		status, err := Run(s.Nodes[s.index], ctx)
		s.running = status == Running
		if err != nil {
			return Failure, err
		}
		switch status {
		case Running:
			return Running, nil
		case Failure:
			s.index = 0
			return Failure, nil
		}
		s.index++
	}
	s.index = 0
	return Success, nil
}

func (s *Sequence) Reset(ctx *ResetContext) {
	s.index = 0
	s.running = false
	resetEach(s.Nodes, ctx)
}

// Index returns the child the next evaluation starts from.
func (s *Sequence) Index() int { return s.index }

func (s *Sequence) Children() []Node { return s.Nodes }

func (s *Sequence) ActiveChildren() []Node {
	if s.index >= len(s.Nodes) {
		return nil
	}
	return activeIf(s.running, s.Nodes[s.index])
}
