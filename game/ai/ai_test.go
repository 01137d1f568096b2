package ai

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChaseStep_PrefersLargerGap(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, Point{X: 1}, ChaseStep(Point{0, 0}, Point{5, 2}, rng))
	assert.Equal(t, Point{Y: -1}, ChaseStep(Point{4, 9}, Point{5, 2}, rng))
	assert.Equal(t, Point{}, ChaseStep(Point{3, 3}, Point{3, 3}, rng))
}

func TestChaseStep_TieIsEitherAxis(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	seen := map[Point]bool{}
	for range 100 {
		seen[ChaseStep(Point{0, 0}, Point{-2, 2}, rng)] = true
	}
	assert.Equal(t, map[Point]bool{{X: -1}: true, {Y: 1}: true}, seen)
}

func TestIdleInterval_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for range 1000 {
		n := IdleInterval(rng)
		assert.GreaterOrEqual(t, n, IdleMinFrames)
		assert.LessOrEqual(t, n, IdleMaxFrames)
	}
}

func TestMonsterTree(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	tree := MonsterTree()

	ctx := &Context{Self: Point{2, 2}, State: StateAggro, Target: Point{2, 7}, RNG: rng}
	assert.Equal(t, StatusSuccess, tree.Tick(ctx))
	assert.Equal(t, Point{Y: 1}, ctx.Step)

	for range 50 {
		ctx = &Context{Self: Point{2, 2}, State: StateIdle, Target: Point{2, 7}, RNG: rng}
		assert.Equal(t, StatusSuccess, tree.Tick(ctx))
		assert.Contains(t, Cardinals[:], ctx.Step)
	}

	// An aggravated monster standing on its target falls back to wandering.
	ctx = &Context{Self: Point{1, 1}, State: StateAggro, Target: Point{1, 1}, RNG: rng}
	assert.Equal(t, StatusSuccess, tree.Tick(ctx))
	assert.Contains(t, Cardinals[:], ctx.Step)
}

func TestComposites(t *testing.T) {
	ok := Condition(func(*Context) bool { return true })
	fail := Condition(func(*Context) bool { return false })
	ctx := &Context{}

	assert.Equal(t, StatusSuccess, Selector(fail, ok).Tick(ctx))
	assert.Equal(t, StatusFailure, Selector(fail, fail).Tick(ctx))
	assert.Equal(t, StatusFailure, Sequence(ok, fail).Tick(ctx))
	assert.Equal(t, StatusSuccess, Sequence(ok, ok).Tick(ctx))
	assert.Equal(t, StatusSuccess, Inverter(fail).Tick(ctx))

	var nilTree *BehaviorTree
	assert.Equal(t, StatusFailure, nilTree.Tick(ctx))
}
