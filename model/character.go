package model

import "time"

// Character is the queryable summary of a character. The authoritative
// state is the signed blob in SaveRecord; this row feeds rankings and
// listings.
type Character struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Profession       string    `gorm:"size:16;not null" json:"profession"`
	Level            int       `gorm:"index:idx_char_level;default:1" json:"level"`
	XP               int64     `gorm:"default:0" json:"xp"`
	Gold             int64     `gorm:"default:0" json:"gold"`
	Ingots           int64     `gorm:"default:0" json:"ingots"`
	MapKey           string    `gorm:"size:32" json:"map_key"`
	CultivationPath  string    `gorm:"size:16" json:"cultivation_path"`
	CultivationLevel int       `gorm:"default:0" json:"cultivation_level"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
