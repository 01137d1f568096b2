package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the character, save, quest and event log
// tables.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range []any{&Character{}, &SaveRecord{}, &QuestProgress{}, &EventLog{}} {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}
