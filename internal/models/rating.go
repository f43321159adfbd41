package models

import "time"

// At most one rating per (novel, user); upserts key on the unique index.
type Rating struct {
	ID        uint    `gorm:"primaryKey"`
	NovelID   uint    `gorm:"not null;index:idx_novel_rater,unique"`
	UserID    uint    `gorm:"not null;index:idx_novel_rater,unique"`
	UserEmail string  `gorm:"size:255;not null"`
	Score     float64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
