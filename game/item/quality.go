package item

import "fmt"

// Quality is the ordered rarity tier of an item.
type Quality int

const (
	Common Quality = iota
	Uncommon
	Fine
	Superior
	Legendary
	Epic
	Divine
)

var qualityKeys = [...]string{"common", "uncommon", "fine", "superior", "legendary", "epic", "divine"}

// Qualities lists every tier from lowest to highest.
var Qualities = []Quality{Common, Uncommon, Fine, Superior, Legendary, Epic, Divine}

func (q Quality) String() string {
	if q < Common || q > Divine {
		return fmt.Sprintf("quality(%d)", int(q))
	}
	return qualityKeys[q]
}

// Multiplier is the stat scale applied at generation: 1.0 for Common up to
// 7.0 for Divine.
func (q Quality) Multiplier() float64 { return float64(q) + 1 }

// Valid reports whether q is one of the seven tiers.
func (q Quality) Valid() bool { return q >= Common && q <= Divine }

// ParseQuality maps a stable key back to its tier.
func ParseQuality(s string) (Quality, error) {
	for i, k := range qualityKeys {
		if k == s {
			return Quality(i), nil
		}
	}
	return Common, fmt.Errorf("item: unknown quality %q", s)
}

func (q Quality) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("item: invalid quality %d", int(q))
	}
	return []byte(qualityKeys[q]), nil
}

func (q *Quality) UnmarshalText(b []byte) error {
	v, err := ParseQuality(string(b))
	if err != nil {
		return err
	}
	*q = v
	return nil
}
