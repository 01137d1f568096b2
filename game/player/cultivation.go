package player

import "fmt"

// Path is a body cultivation track.
type Path string

const (
	PathNone     Path = "none"
	PathDemonic  Path = "demonic"
	PathImmortal Path = "immortal"
)

// MaxCultivation is the highest cultivation level.
const MaxCultivation = 10

var cultivationThresholds = [MaxCultivation]int{
	1000, 3000, 6000, 10000, 15000, 21000, 28000, 36000, 45000, 55000,
}

// ParsePath validates a path name.
func ParsePath(s string) (Path, error) {
	switch p := Path(s); p {
	case PathNone, PathDemonic, PathImmortal:
		return p, nil
	case "":
		return PathNone, nil
	}
	return "", fmt.Errorf("player: unknown cultivation path %q", s)
}

// Cultivation is the optional body-cultivation progression.
type Cultivation struct {
	Path   Path `json:"path"`
	Level  int  `json:"level"`
	Points int  `json:"points"`
}

// CultivationBonus is what a cultivation state adds to derived stats.
type CultivationBonus struct {
	Attack  int
	Defense int
	HPPct   int
	MPPct   int
}

// Threshold is the points needed to advance from level.
func Threshold(level int) int {
	if level < 0 || level >= MaxCultivation {
		return 0
	}
	return cultivationThresholds[level]
}

// Choose picks a path. Once chosen it cannot change.
func (c *Cultivation) Choose(p Path) bool {
	if c.chosen() || p == PathNone || p == "" {
		return false
	}
	c.Path, c.Level, c.Points = p, 0, 0
	return true
}

func (c *Cultivation) chosen() bool {
	return c.Path != "" && c.Path != PathNone
}

// AddPoints accumulates points and levels up for as long as the
// accumulator covers the next threshold. It returns the levels gained.
func (c *Cultivation) AddPoints(n int) int {
	if !c.chosen() || n <= 0 {
		return 0
	}
	c.Points += n
	gained := 0
	for c.Level < MaxCultivation && c.Points >= Threshold(c.Level) {
		c.Points -= Threshold(c.Level)
		c.Level++
		gained++
	}
	return gained
}

// Bonus computes the stat contribution at the current level.
func (c Cultivation) Bonus() CultivationBonus {
	if !c.chosen() || c.Level == 0 {
		return CultivationBonus{}
	}
	l := c.Level
	b := CultivationBonus{Attack: 2 * l * l, Defense: l * l}
	if l >= 3 {
		switch c.Path {
		case PathDemonic:
			b.HPPct = l - 2
		case PathImmortal:
			b.MPPct = l - 2
		}
	}
	return b
}

// Cultivate chooses a cultivation path for the character.
func (c *Character) Cultivate(p Path) Result {
	if !c.Cultivation.Choose(p) {
		return failure("cultivation path already chosen")
	}
	c.Recalculate()
	return success("began the %s path", p)
}

// AddCultivationPoints feeds the cultivation accumulator.
func (c *Character) AddCultivationPoints(n int) Result {
	if !c.Cultivation.chosen() {
		return failure("no cultivation path chosen")
	}
	if gained := c.Cultivation.AddPoints(n); gained > 0 {
		c.Recalculate()
		return success("cultivation reached level %d", c.Cultivation.Level)
	}
	return success("cultivation points %d/%d", c.Cultivation.Points, Threshold(c.Cultivation.Level))
}
