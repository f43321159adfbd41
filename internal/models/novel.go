package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultNovelImage = "novelaDefecto.png"

type Novel struct {
	gorm.Model

	AuthorID       uint   `gorm:"not null;index"`
	AuthorNickname string `gorm:"size:16;not null"`

	Title       string   `gorm:"uniqueIndex;size:40;not null"`
	Description string   `gorm:"type:text;not null"`
	Genres      []string `gorm:"serializer:json;type:text"`
	Tags        []string `gorm:"serializer:json;type:text"`

	ChapterCount  int     `gorm:"not null;default:0"`
	Rating        float64 `gorm:"not null;default:0"`
	Views         int64   `gorm:"not null;default:0"`
	Image         string  `gorm:"size:255;not null;default:novelaDefecto.png"`
	LastChapterAt *time.Time

	// Relationships
	Chapters []Chapter `gorm:"foreignKey:NovelID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Ratings  []Rating  `gorm:"foreignKey:NovelID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
