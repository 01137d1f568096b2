package model

import "time"

// SaveRecord holds the signed save blob of one character.
type SaveRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Version   int       `gorm:"not null" json:"version"`
	Payload   []byte    `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
