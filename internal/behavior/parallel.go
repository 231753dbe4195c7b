package behavior

// Parallel evaluates every unfinished child on each tick.
//
// Children that already returned Success or Failure are not re-run until
// the node is reset. With RequireAllSuccess, any Failure fails the node
// immediately, even while other children are still running. Otherwise the
// node runs while any child runs, then succeeds if at least one child
// succeeded.
type Parallel struct {
	Nodes             []Node
	RequireAllSuccess bool

	statuses []Status
}

// NewParallel returns a Parallel over children.
func NewParallel(requireAllSuccess bool, children ...Node) *Parallel {
	return &Parallel{Nodes: children, RequireAllSuccess: requireAllSuccess}
}

func (p *Parallel) Run(ctx *Context) (Status, error) {
	if len(p.statuses) != len(p.Nodes) {
		p.statuses = make([]Status, len(p.Nodes))
	}
	var successes, running int
	for i, child := range p.Nodes {
		if p.statuses[i] == Running {
			status, err := Run(child, ctx)
			if err != nil {
				return Failure, err
			}
			p.statuses[i] = status
		}
		switch p.statuses[i] {
		case Success:
			successes++
		case Running:
			running++
		case Failure:
			if p.RequireAllSuccess {
				return Failure, nil
			}
		}
	}
	if running > 0 {
		return Running, nil
	}
	if successes > 0 {
		return Success, nil
	}
	return Failure, nil
}

func (p *Parallel) Reset(ctx *ResetContext) {
	p.statuses = nil
	resetEach(p.Nodes, ctx)
}

// ChildStatus returns the recorded status of child i.
func (p *Parallel) ChildStatus(i int) Status {
	if i < 0 || i >= len(p.statuses) {
		return Running
	}
	return p.statuses[i]
}

func (p *Parallel) Children() []Node { return p.Nodes }

func (p *Parallel) ActiveChildren() []Node {
	if len(p.statuses) != len(p.Nodes) {
		return nil
	}
	var out []Node
	for i, child := range p.Nodes {
		if p.ChildStatus(i) == Running && child != nil {
			out = append(out, child)
		}
	}
	return out
}
