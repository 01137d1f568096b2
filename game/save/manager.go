package save

import (
	"context"
	"fmt"

	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/model"
	"go.uber.org/zap"
)

// Manager ties the codec, a store and the migrator together.
type Manager struct {
	codec     *Codec
	store     Store
	summaries Summarizer
	migrator  *Migrator
	logger    *zap.Logger
}

func NewManager(codec *Codec, store Store, migrator *Migrator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{codec: codec, store: store, migrator: migrator, logger: logger}
	if sum, ok := store.(Summarizer); ok {
		m.summaries = sum
	}
	return m
}

// SetSummarizer sends summary rows somewhere other than the store, as when
// snapshots live in files but rankings in the database.
func (m *Manager) SetSummarizer(s Summarizer) { m.summaries = s }

// Save writes the character and, when the store keeps summaries, its
// ranking row. A character saved for the first time gets its ID here.
func (m *Manager) Save(ctx context.Context, c *player.Character, pity int) error {
	if m.summaries != nil {
		row := &model.Character{
			Name:             c.Name,
			Profession:       string(c.Profession),
			Level:            c.Level,
			XP:               int64(c.XP),
			Gold:             int64(c.Gold),
			Ingots:           int64(c.Ingots),
			MapKey:           c.MapKey,
			CultivationPath:  string(c.Cultivation.Path),
			CultivationLevel: c.Cultivation.Level,
		}
		if err := m.summaries.PutSummary(ctx, row); err != nil {
			return fmt.Errorf("save %s summary: %w", c.Name, err)
		}
		c.ID = row.ID
	}
	data, err := m.codec.Encode(Capture(c, pity))
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, c.Name, CurrentVersion, data); err != nil {
		return fmt.Errorf("save %s: %w", c.Name, err)
	}
	m.logger.Debug("character saved", zap.String("name", c.Name), zap.Int("bytes", len(data)))
	return nil
}

// Load reads, verifies, migrates and restores a character. It returns the
// saved treasure pity counter alongside.
func (m *Manager) Load(ctx context.Context, name string) (*player.Character, int, error) {
	data, err := m.store.Get(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	var s Snapshot
	if err := m.codec.Decode(data, &s); err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", name, err)
	}
	if _, err := m.migrator.Migrate(&s); err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", name, err)
	}
	c, dropped, err := s.Restore(m.migrator.Catalog())
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", name, err)
	}
	if len(dropped) > 0 {
		m.logger.Warn("items dropped on load",
			zap.String("name", name),
			zap.Strings("keys", dropped))
	}
	return c, s.Pity, nil
}
