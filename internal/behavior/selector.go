package behavior

// Selector runs its children in order until one succeeds or is still
// running.
//
// The remembered index only moves when a child returns Running; Success and
// exhaustion leave it untouched until the selector is reset. An empty
// selector fails.
type Selector struct {
	Nodes []Node

	index   int
	running bool
}

// NewSelector returns a Selector over children.
func NewSelector(children ...Node) *Selector {
	return &Selector{Nodes: children}
}

func (s *Selector) Run(ctx *Context) (Status, error) {
	if len(s.Nodes) == 0 {
		return Failure, nil
	}
	for i := s.index; i < len(s.Nodes); i++ {
		status, err := Run(s.Nodes[i], ctx)
		s.running = status == Running
		if err != nil {
			return Failure, err
		}
		switch status {
		case Running:
			s.index = i
			return Running, nil
		case Success:
			return Success, nil
		}
	}
	return Failure, nil
}

func (s *Selector) Reset(ctx *ResetContext) {
	s.index = 0
	s.running = false
	resetEach(s.Nodes, ctx)
}

// Index returns the child the next evaluation starts from.
func (s *Selector) Index() int { return s.index }

func (s *Selector) Children() []Node { return s.Nodes }

func (s *Selector) ActiveChildren() []Node {
	if s.index >= len(s.Nodes) {
		return nil
	}
	return activeIf(s.running, s.Nodes[s.index])
}
