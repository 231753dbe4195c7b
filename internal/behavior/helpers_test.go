package behavior

import (
	"time"
)

// stub is a scripted node: each Run returns the next result, repeating the
// last one once the script is exhausted.
type stub struct {
	name     string
	results  []Status
	err      error
	runs     int
	resets   int
	lastMode ResetMode
}

func newStub(name string, results ...Status) *stub {
	return &stub{name: name, results: results}
}

func (s *stub) Run(*Context) (Status, error) {
	s.runs++
	if s.err != nil {
		return Failure, s.err
	}
	if len(s.results) == 0 {
		return Success, nil
	}
	return s.results[min(s.runs-1, len(s.results)-1)], nil
}

func (s *stub) Reset(ctx *ResetContext) {
	s.resets++
	s.lastMode = ctx.Mode
}

func (s *stub) NodeName() string { return s.name }

// fixedRand returns canned values.
type fixedRand struct {
	ints   []int
	floats []float64
}

func (r *fixedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *fixedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func runCtx(bb *Blackboard, dt time.Duration) *Context {
	if bb == nil {
		bb = NewBlackboard(0)
	}
	return &Context{Blackboard: bb, DeltaTime: dt}
}

func tickN(n Node, ctx *Context, times int) []Status {
	out := make([]Status, 0, times)
	for range times {
		s, _ := n.Run(ctx)
		out = append(out, s)
	}
	return out
}

// evalN is like tickN but goes through Run, so Prepare is called first.
func evalN(n Node, ctx *Context, times int) []Status {
	out := make([]Status, 0, times)
	for range times {
		s, _ := Run(n, ctx)
		out = append(out, s)
	}
	return out
}
