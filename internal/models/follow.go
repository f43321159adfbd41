package models

import "time"

// Follow is hard-deleted so the toggle can re-create the row without
// tripping over the unique index.
type Follow struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;index:idx_user_novel,unique"`
	NovelID   uint `gorm:"not null;index:idx_user_novel,unique"`
	CreatedAt time.Time
}
