package ai

// Status is the result of a behavior tree node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

// Node is a single node in a behavior tree.
type Node interface {
	Tick(ctx *Context) Status
}

// NodeFunc adapts a function to Node.
type NodeFunc func(ctx *Context) Status

func (f NodeFunc) Tick(ctx *Context) Status { return f(ctx) }

// Selector succeeds as soon as one child succeeds (logical OR).
func Selector(children ...Node) Node {
	return NodeFunc(func(ctx *Context) Status {
		for _, c := range children {
			if s := c.Tick(ctx); s != StatusFailure {
				return s
			}
		}
		return StatusFailure
	})
}

// Sequence succeeds only when all children succeed (logical AND).
func Sequence(children ...Node) Node {
	return NodeFunc(func(ctx *Context) Status {
		for _, c := range children {
			if s := c.Tick(ctx); s != StatusSuccess {
				return s
			}
		}
		return StatusSuccess
	})
}

// Condition succeeds when fn holds.
func Condition(fn func(*Context) bool) Node {
	return NodeFunc(func(ctx *Context) Status {
		if fn(ctx) {
			return StatusSuccess
		}
		return StatusFailure
	})
}

// Inverter negates the result of its child.
func Inverter(child Node) Node {
	return NodeFunc(func(ctx *Context) Status {
		switch child.Tick(ctx) {
		case StatusSuccess:
			return StatusFailure
		case StatusFailure:
			return StatusSuccess
		}
		return StatusRunning
	})
}

// BehaviorTree wraps the root node.
type BehaviorTree struct {
	Root Node
}

// Tick runs one decision of the tree.
func (bt *BehaviorTree) Tick(ctx *Context) Status {
	if bt == nil || bt.Root == nil {
		return StatusFailure
	}
	return bt.Root.Tick(ctx)
}

// MonsterTree chases the player while aggravated and wanders otherwise.
func MonsterTree() *BehaviorTree {
	return &BehaviorTree{Root: Selector(
		Sequence(
			Condition(func(ctx *Context) bool { return ctx.State == StateAggro }),
			NodeFunc(chase),
		),
		NodeFunc(wander),
	)}
}

func chase(ctx *Context) Status {
	ctx.Step = ChaseStep(ctx.Self, ctx.Target, ctx.RNG)
	if ctx.Step == (Point{}) {
		return StatusFailure
	}
	return StatusSuccess
}

func wander(ctx *Context) Status {
	ctx.Step = Cardinals[ctx.RNG.Intn(len(Cardinals))]
	return StatusSuccess
}
