package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventLog records notable simulation events (kills, level ups, treasure,
// deaths) per room.
type EventLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Room      string         `gorm:"index:idx_event_room;size:32;not null" json:"room"`
	Type      string         `gorm:"index:idx_event_type;size:32;not null" json:"type"`
	Frame     uint64         `json:"frame"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"index:idx_event_created;autoCreateTime:milli" json:"created_at"`
}
