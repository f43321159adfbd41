package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/internal/apperrors"
	"github.com/librenovela/librenovela/internal/models"
	"github.com/librenovela/librenovela/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CreateChapterRequest struct {
	Title   string `json:"titulo" binding:"required,min=6,max=255"`
	Content string `json:"contenido" binding:"required"`
}

type UpdateChapterRequest struct {
	Title   string `json:"titulo" binding:"omitempty,min=6,max=255"`
	Content string `json:"contenido"`
}

type ChaptersHandler struct {
	db  *gorm.DB
	hub *NovelHub
	log *logrus.Logger
}

func NewChaptersHandler(db *gorm.DB, hub *NovelHub, log *logrus.Logger) *ChaptersHandler {
	return &ChaptersHandler{db: db, hub: hub, log: log}
}

// Create appends a chapter. Numbers are dense 1..N in publication order:
// a new chapter always takes chapterCount+1.
func (h *ChaptersHandler) Create(ctx *gin.Context) {
	novel, _, ok := loadOwnedNovel(ctx, h.db)

	if !ok {
		return
	}

	var body CreateChapterRequest

	if err := ctx.BindJSON(&body); err != nil {
		utils.Fail(ctx, apperrors.Validation("Datos del capítulo no válidos"))
		return
	}

	var chapter models.Chapter

	err := h.db.Transaction(func(tx *gorm.DB) error {
		chapter = models.Chapter{
			NovelID: novel.ID,
			Number:  novel.ChapterCount + 1,
			Title:   body.Title,
			Content: body.Content,
		}

		if err := tx.Create(&chapter).Error; err != nil {
			return err
		}

		now := time.Now()

		return tx.Model(novel).Updates(map[string]interface{}{
			"chapter_count":   novel.ChapterCount + 1,
			"last_chapter_at": now,
		}).Error
	})

	if err != nil {
		h.log.WithError(err).Error("failed to add chapter")
		utils.Fail(ctx, err)
		return
	}

	h.hub.BroadcastChapter(novel, &chapter)

	utils.OK(ctx, ChapterResponse{
		Number:    chapter.Number,
		Title:     chapter.Title,
		CreatedAt: chapter.CreatedAt,
	})
}

func (h *ChaptersHandler) Update(ctx *gin.Context) {
	novel, _, ok := loadOwnedNovel(ctx, h.db)

	if !ok {
		return
	}

	number, err := parseChapterNumber(ctx.Param("numero"))

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	var body UpdateChapterRequest

	if err := ctx.BindJSON(&body); err != nil {
		utils.Fail(ctx, apperrors.Validation("Datos del capítulo no válidos"))
		return
	}

	var chapter models.Chapter

	err = h.db.Where("novel_id = ? AND number = ?", novel.ID, number).First(&chapter).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, apperrors.NotFound("No existe el capítulo"))
		} else {
			utils.Fail(ctx, err)
		}
		return
	}

	// Omitted fields keep their previous value.
	if body.Title != "" {
		chapter.Title = body.Title
	}

	if body.Content != "" {
		chapter.Content = body.Content
	}

	if err := h.db.Save(&chapter).Error; err != nil {
		h.log.WithError(err).Error("failed to update chapter")
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, "Capítulo actualizado con éxito")
}

// Delete removes a chapter and renumbers the remaining ones so numbers
// stay dense 1..N in their current relative order.
func (h *ChaptersHandler) Delete(ctx *gin.Context) {
	novel, _, ok := loadOwnedNovel(ctx, h.db)

	if !ok {
		return
	}

	number, err := parseChapterNumber(ctx.Param("numero"))

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("novel_id = ? AND number = ?", novel.ID, number).Delete(&models.Chapter{})

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return apperrors.NotFound("No existe el capítulo")
		}

		var followers []models.Chapter

		err := tx.Where("novel_id = ? AND number > ?", novel.ID, number).
			Order("number").Find(&followers).Error

		if err != nil {
			return err
		}

		// Ascending order: each decrement moves into the slot just
		// vacated, so the unique (novel, number) index never trips.
		for i := range followers {
			err := tx.Model(&followers[i]).UpdateColumn("number", followers[i].Number-1).Error
			if err != nil {
				return err
			}
		}

		return tx.Model(novel).UpdateColumn("chapter_count", novel.ChapterCount-1).Error
	})

	if err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			h.log.WithError(err).Error("failed to delete chapter")
		}
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, "Capítulo eliminado con éxito")
}

func parseChapterNumber(raw string) (int, error) {
	number, err := strconv.Atoi(raw)

	if err != nil || number < 1 {
		return 0, apperrors.Validation("Número de capítulo no válido")
	}

	return number, nil
}
