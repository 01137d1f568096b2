package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuestStatus is the lifecycle state of an accepted quest.
type QuestStatus int

const (
	QuestActive QuestStatus = iota
	QuestDone
)

// KillCounts maps a monster key to the kills counted toward a quest.
type KillCounts map[string]int

// QuestProgress is one quest a character has accepted. A character can
// accept each quest once.
type QuestProgress struct {
	ID          int64                          `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID      int64                          `gorm:"uniqueIndex:idx_char_quest;not null" json:"char_id"`
	QuestKey    string                         `gorm:"uniqueIndex:idx_char_quest;size:32;not null" json:"quest_key"`
	Status      QuestStatus                    `gorm:"not null;default:0" json:"status"`
	Kills       datatypes.JSONType[KillCounts] `json:"kills"`
	AcceptedAt  time.Time                      `gorm:"autoCreateTime" json:"accepted_at"`
	CompletedAt *time.Time                     `json:"completed_at,omitempty"`
}
