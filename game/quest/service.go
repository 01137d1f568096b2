// Package quest counts monster kills toward accepted quests.
package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/miridle/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrUnknownQuest    = errors.New("quest: unknown quest")
	ErrAlreadyAccepted = errors.New("quest: already accepted")
)

// KillNotifier is told about every monster a character defeats. It
// reports whether any quest advanced.
type KillNotifier interface {
	NotifyKill(ctx context.Context, charID int64, monsterKey string) bool
}

// Nop ignores kills.
type Nop struct{}

func (Nop) NotifyKill(context.Context, int64, string) bool { return false }

// Objective asks for Count kills of Monster.
type Objective struct {
	Monster string `json:"monster" yaml:"monster"`
	Count   int    `json:"count" yaml:"count"`
	Label   string `json:"label,omitempty" yaml:"label"`
}

// QuestDef is a quest definition.
type QuestDef struct {
	Key        string      `json:"key" yaml:"key"`
	Name       string      `json:"name" yaml:"name"`
	Objectives []Objective `json:"objectives" yaml:"objectives"`
}

// Status is a character's view of one accepted quest.
type Status struct {
	Key       string         `json:"key"`
	Name      string         `json:"name"`
	Progress  map[string]int `json:"progress"`
	Completed bool           `json:"completed"`
}

// Service handles all quest operations.
type Service struct {
	db     *gorm.DB
	defs   map[string]*QuestDef
	logger *zap.Logger
}

// NewService creates a new quest Service with the given quest definitions.
func NewService(db *gorm.DB, defs []*QuestDef, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[string]*QuestDef, len(defs))
	for _, d := range defs {
		m[d.Key] = d
	}
	return &Service{db: db, defs: m, logger: logger}
}

// Accept adds a quest to the character's active list.
func (svc *Service) Accept(ctx context.Context, charID int64, key string) error {
	if _, ok := svc.defs[key]; !ok {
		return fmt.Errorf("accept %q: %w", key, ErrUnknownQuest)
	}
	var n int64
	if err := svc.db.WithContext(ctx).Model(&model.QuestProgress{}).
		Where("char_id = ? AND quest_key = ?", charID, key).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrAlreadyAccepted
	}
	return svc.db.WithContext(ctx).Create(&model.QuestProgress{
		CharID:   charID,
		QuestKey: key,
		Kills:    datatypes.NewJSONType(model.KillCounts{}),
		Status:   model.QuestActive,
	}).Error
}

// NotifyKill advances every in-progress kill objective for monsterKey.
// Storage errors are logged, never returned; the kill itself stands.
func (svc *Service) NotifyKill(ctx context.Context, charID int64, monsterKey string) bool {
	var quests []model.QuestProgress
	if err := svc.db.WithContext(ctx).
		Where("char_id = ? AND status = ?", charID, model.QuestActive).
		Find(&quests).Error; err != nil {
		svc.logger.Warn("load quests failed", zap.Int64("char_id", charID), zap.Error(err))
		return false
	}

	advanced := false
	for i := range quests {
		qp := &quests[i]
		def, ok := svc.defs[qp.QuestKey]
		if !ok {
			continue
		}
		progress := qp.Kills.Data()
		if progress == nil {
			progress = model.KillCounts{}
		}

		changed := false
		for _, obj := range def.Objectives {
			if obj.Monster != monsterKey || progress[obj.Monster] >= obj.Count {
				continue
			}
			progress[obj.Monster]++
			changed = true
		}
		if !changed {
			continue
		}

		qp.Kills = datatypes.NewJSONType(progress)
		if complete(def, progress) {
			now := time.Now()
			qp.Status = model.QuestDone
			qp.CompletedAt = &now
			svc.logger.Info("quest completed",
				zap.Int64("char_id", charID),
				zap.String("quest", def.Key))
		}
		if err := svc.db.WithContext(ctx).Save(qp).Error; err != nil {
			svc.logger.Warn("save quest progress failed", zap.Int64("char_id", charID), zap.Error(err))
			continue
		}
		advanced = true
	}
	return advanced
}

func complete(def *QuestDef, progress model.KillCounts) bool {
	for _, obj := range def.Objectives {
		if progress[obj.Monster] < obj.Count {
			return false
		}
	}
	return true
}

// List returns the character's accepted quests.
func (svc *Service) List(ctx context.Context, charID int64) ([]Status, error) {
	var quests []model.QuestProgress
	if err := svc.db.WithContext(ctx).Where("char_id = ?", charID).
		Order("id").Find(&quests).Error; err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(quests))
	for _, qp := range quests {
		st := Status{Key: qp.QuestKey, Completed: qp.Status == model.QuestDone}
		if def, ok := svc.defs[qp.QuestKey]; ok {
			st.Name = def.Name
		}
		st.Progress = make(map[string]int)
		for k, n := range qp.Kills.Data() {
			st.Progress[k] = n
		}
		out = append(out, st)
	}
	return out, nil
}
