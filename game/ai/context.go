// Package ai decides where monsters move.
package ai

import "math/rand"

// Frame counts between monster moves.
const (
	IdleMinFrames = 60
	IdleMaxFrames = 180
	AggroFrames   = 30
)

// MonsterState enumerates the high-level AI states of a monster.
type MonsterState int

const (
	StateIdle MonsterState = iota
	StateAggro
	StateDead
)

func (s MonsterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAggro:
		return "aggro"
	case StateDead:
		return "dead"
	}
	return "unknown"
}

// Point is a 2D grid coordinate.
type Point struct {
	X, Y int
}

// Add offsets p by d.
func (p Point) Add(d Point) Point { return Point{p.X + d.X, p.Y + d.Y} }

// Cardinals are the four unit steps.
var Cardinals = [4]Point{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// Context is passed to every node during a decision. Nodes write the
// chosen unit step into Step; the caller validates and applies it.
type Context struct {
	Self   Point
	State  MonsterState
	Target Point
	RNG    *rand.Rand
	Step   Point
}

// IdleInterval draws the frames until the next idle move.
func IdleInterval(rng *rand.Rand) int {
	return IdleMinFrames + rng.Intn(IdleMaxFrames-IdleMinFrames+1)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ChaseStep is one greedy step from self toward target along the axis
// with the larger gap. Equal gaps pick an axis at random. The zero Point
// means self is already on target.
func ChaseStep(self, target Point, rng *rand.Rand) Point {
	dx, dy := target.X-self.X, target.Y-self.Y
	switch {
	case dx == 0 && dy == 0:
		return Point{}
	case abs(dx) > abs(dy):
		return Point{X: sign(dx)}
	case abs(dy) > abs(dx):
		return Point{Y: sign(dy)}
	}
	if rng.Intn(2) == 0 {
		return Point{X: sign(dx)}
	}
	return Point{Y: sign(dy)}
}
