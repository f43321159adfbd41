package models

import "time"

// Chapter rows are hard-deleted: the dense numbering invariant reuses
// numbers, so a soft-deleted row would collide with the unique index.
type Chapter struct {
	ID        uint `gorm:"primaryKey"`
	NovelID   uint `gorm:"not null;index:idx_novel_chapter,unique"`
	Number    int  `gorm:"not null;index:idx_novel_chapter,unique"`
	Title     string
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
