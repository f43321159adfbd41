package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/internal/apperrors"
	"github.com/librenovela/librenovela/internal/auth"
	"github.com/librenovela/librenovela/internal/models"
	"github.com/librenovela/librenovela/internal/storage"
	"github.com/librenovela/librenovela/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateNovelRequest struct {
	Title       string `form:"titulo" binding:"required,min=6,max=40"`
	Description string `form:"descripcion" binding:"required,min=150"`
	Genres      string `form:"generos"`
	Tags        string `form:"etiquetas"`
}

type UpdateNovelRequest struct {
	Title       string `form:"titulo" binding:"omitempty,min=6,max=40"`
	Description string `form:"descripcion" binding:"omitempty,min=150"`
	Genres      string `form:"generos"`
	Tags        string `form:"etiquetas"`
}

type RateRequest struct {
	Score *float64 `json:"puntuacion" binding:"required,gte=0,lte=10"`
}

type AuthorRef struct {
	ID       uint   `json:"id"`
	Nickname string `json:"nickname"`
}

type ChapterResponse struct {
	Number    int       `json:"numero"`
	Title     string    `json:"titulo"`
	Content   string    `json:"contenido,omitempty"`
	CreatedAt time.Time `json:"fechaCreacion"`
}

type NovelResponse struct {
	ID            uint              `json:"id"`
	Author        AuthorRef         `json:"autor"`
	Title         string            `json:"titulo"`
	Description   string            `json:"descripcion"`
	Genres        []string          `json:"generos"`
	Tags          []string          `json:"etiquetas"`
	ChapterCount  int               `json:"numCapitulos"`
	Rating        float64           `json:"puntuacion"`
	Views         int64             `json:"visitas"`
	Image         string            `json:"imagen"`
	CreatedAt     time.Time         `json:"fechaCreacion"`
	LastChapterAt *time.Time        `json:"ultimoCapitulo,omitempty"`
	Chapters      []ChapterResponse `json:"capitulos,omitempty"`
}

type NovelPage struct {
	Novels []NovelResponse `json:"novelas"`
	Total  int64           `json:"total"`
	Page   int             `json:"pagina"`
	Limit  int             `json:"limite"`
}

type NovelsHandler struct {
	db     *gorm.DB
	images *storage.ImageStore
	log    *logrus.Logger
}

func NewNovelsHandler(db *gorm.DB, images *storage.ImageStore, log *logrus.Logger) *NovelsHandler {
	return &NovelsHandler{db: db, images: images, log: log}
}

// canModifyNovel is the one ownership rule for every novel mutation:
// the author, or an Admin.
func canModifyNovel(claims *auth.Claims, novel *models.Novel) bool {
	return claims.Role == models.RoleAdmin || novel.AuthorID == claims.UserID
}

func (h *NovelsHandler) Create(ctx *gin.Context) {
	claims, err := utils.CurrentClaims(ctx)

	if err != nil {
		utils.Fail(ctx, apperrors.Unauthorized("Acceso denegado"))
		return
	}

	var body CreateNovelRequest

	if err := ctx.ShouldBind(&body); err != nil {
		utils.Fail(ctx, apperrors.Validation("Datos de la novela no válidos: el título debe tener entre 6 y 40 caracteres y la descripción al menos 150"))
		return
	}

	genres, err := parseStringArray(body.Genres)

	if err != nil {
		utils.Fail(ctx, apperrors.Validation("El campo generos debe ser un array JSON de cadenas"))
		return
	}

	tags, err := parseStringArray(body.Tags)

	if err != nil {
		utils.Fail(ctx, apperrors.Validation("El campo etiquetas debe ser un array JSON de cadenas"))
		return
	}

	if err := h.checkUniqueTitle(body.Title, 0); err != nil {
		utils.Fail(ctx, err)
		return
	}

	image := models.DefaultNovelImage

	// The cover is written before the record exists so a failed write
	// fails the whole request instead of leaving a novel without its
	// image.
	if file, fileErr := ctx.FormFile("imagen"); fileErr == nil {
		image, err = h.images.SaveCover(file)
		if err != nil {
			utils.Fail(ctx, err)
			return
		}
	}

	novel := models.Novel{
		AuthorID:       claims.UserID,
		AuthorNickname: claims.Nickname,
		Title:          body.Title,
		Description:    body.Description,
		Genres:         genres,
		Tags:           tags,
		Image:          image,
	}

	if err := h.db.Create(&novel).Error; err != nil {
		h.log.WithError(err).Error("failed to create novel")
		if removeErr := h.images.Remove(image); removeErr != nil {
			h.log.WithError(removeErr).Warn("failed to clean up cover image")
		}
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, newNovelResponse(&novel, false))
}

// Get returns one novel with its chapters. Every fetch counts as a view;
// the increment is a single atomic update, not read-modify-write.
func (h *NovelsHandler) Get(ctx *gin.Context) {
	id, err := parseID(ctx.Param("id"))

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	result := h.db.Model(&models.Novel{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))

	if result.Error != nil {
		h.log.WithError(result.Error).Error("failed to increment views")
		utils.Fail(ctx, result.Error)
		return
	}

	if result.RowsAffected == 0 {
		utils.Fail(ctx, apperrors.NotFound("No existe la novela"))
		return
	}

	var novel models.Novel

	err = h.db.Preload("Chapters", func(db *gorm.DB) *gorm.DB {
		return db.Order("number")
	}).First(&novel, id).Error

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, newNovelResponse(&novel, true))
}

func (h *NovelsHandler) List(ctx *gin.Context) {
	params := parsePageParams(ctx)

	query := h.db.Model(&models.Novel{})

	// genero accepts a comma-separated list; any member matches.
	if genres := ctx.Query("genero"); genres != "" {
		query = query.Where(jsonMemberFilter(h.db, "genres", genres))
	}

	if tag := ctx.Query("etiqueta"); tag != "" {
		query = query.Where("tags LIKE ?", jsonMemberPattern(tag))
	}

	h.respondPage(ctx, query, params)
}

func (h *NovelsHandler) SearchByTitle(ctx *gin.Context) {
	pattern := "%" + strings.ToLower(ctx.Param("titulo")) + "%"
	query := h.db.Model(&models.Novel{}).Where("LOWER(title) LIKE ?", pattern)
	h.respondPage(ctx, query, parsePageParams(ctx))
}

func (h *NovelsHandler) GetByTitle(ctx *gin.Context) {
	var novel models.Novel

	err := h.db.Preload("Chapters", func(db *gorm.DB) *gorm.DB {
		return db.Order("number")
	}).Where("title = ?", ctx.Param("titulo")).First(&novel).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, apperrors.NotFound("No existe la novela"))
		} else {
			utils.Fail(ctx, err)
		}
		return
	}

	utils.OK(ctx, newNovelResponse(&novel, true))
}

func (h *NovelsHandler) ListByGenre(ctx *gin.Context) {
	query := h.db.Model(&models.Novel{}).
		Where("genres LIKE ?", jsonMemberPattern(ctx.Param("genero")))
	h.respondPage(ctx, query, parsePageParams(ctx))
}

func (h *NovelsHandler) ListByTag(ctx *gin.Context) {
	query := h.db.Model(&models.Novel{}).
		Where("tags LIKE ?", jsonMemberPattern(ctx.Param("etiqueta")))
	h.respondPage(ctx, query, parsePageParams(ctx))
}

func (h *NovelsHandler) Update(ctx *gin.Context) {
	novel, _, ok := loadOwnedNovel(ctx, h.db)

	if !ok {
		return
	}

	var body UpdateNovelRequest

	if err := ctx.ShouldBind(&body); err != nil {
		utils.Fail(ctx, apperrors.Validation("Datos de la novela no válidos"))
		return
	}

	if body.Title != "" && body.Title != novel.Title {
		if err := h.checkUniqueTitle(body.Title, novel.ID); err != nil {
			utils.Fail(ctx, err)
			return
		}
		novel.Title = body.Title
	}

	if body.Description != "" {
		novel.Description = body.Description
	}

	if body.Genres != "" {
		genres, err := parseStringArray(body.Genres)
		if err != nil {
			utils.Fail(ctx, apperrors.Validation("El campo generos debe ser un array JSON de cadenas"))
			return
		}
		novel.Genres = genres
	}

	if body.Tags != "" {
		tags, err := parseStringArray(body.Tags)
		if err != nil {
			utils.Fail(ctx, apperrors.Validation("El campo etiquetas debe ser un array JSON de cadenas"))
			return
		}
		novel.Tags = tags
	}

	previousImage := ""

	if file, fileErr := ctx.FormFile("imagen"); fileErr == nil {
		name, err := h.images.SaveCover(file)
		if err != nil {
			utils.Fail(ctx, err)
			return
		}
		previousImage = novel.Image
		novel.Image = name
	}

	if err := h.db.Save(novel).Error; err != nil {
		h.log.WithError(err).Error("failed to update novel")
		utils.Fail(ctx, err)
		return
	}

	if previousImage != "" {
		if err := h.images.Remove(previousImage); err != nil {
			h.log.WithError(err).WithField("image", previousImage).Warn("failed to remove previous cover")
		}
	}

	utils.OK(ctx, newNovelResponse(novel, false))
}

func (h *NovelsHandler) Delete(ctx *gin.Context) {
	novel, _, ok := loadOwnedNovel(ctx, h.db)

	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("novel_id = ?", novel.ID).Delete(&models.Chapter{}).Error; err != nil {
			return err
		}
		if err := tx.Where("novel_id = ?", novel.ID).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		if err := tx.Where("novel_id = ?", novel.ID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		// Hard delete so the unique title becomes available again.
		return tx.Unscoped().Delete(novel).Error
	})

	if err != nil {
		h.log.WithError(err).Error("failed to delete novel")
		utils.Fail(ctx, err)
		return
	}

	if err := h.images.Remove(novel.Image); err != nil {
		h.log.WithError(err).WithField("image", novel.Image).Warn("failed to remove cover image")
	}

	utils.OK(ctx, "Novela eliminada con éxito")
}

// Rate upserts the caller's score keyed on (novel, user) at the storage
// layer, then recomputes the mean in the same transaction. Concurrent
// raters cannot clobber each other's rows.
func (h *NovelsHandler) Rate(ctx *gin.Context) {
	claims, err := utils.CurrentClaims(ctx)

	if err != nil {
		utils.Fail(ctx, apperrors.Unauthorized("Acceso denegado"))
		return
	}

	id, err := parseID(ctx.Param("id"))

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	var body RateRequest

	if err := ctx.BindJSON(&body); err != nil {
		utils.Fail(ctx, apperrors.Validation("La puntuación debe ser un número entre 0 y 10"))
		return
	}

	if err := h.requireNovel(id); err != nil {
		utils.Fail(ctx, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		rating := models.Rating{
			NovelID:   id,
			UserID:    claims.UserID,
			UserEmail: claims.Email,
			Score:     *body.Score,
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "novel_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":      *body.Score,
				"updated_at": time.Now(),
			}),
		}).Create(&rating).Error

		if err != nil {
			return err
		}

		return tx.Model(&models.Novel{}).Where("id = ?", id).
			UpdateColumn("rating", gorm.Expr("COALESCE((SELECT AVG(score) FROM ratings WHERE novel_id = ?), 0)", id)).Error
	})

	if err != nil {
		h.log.WithError(err).Error("failed to rate novel")
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, "Puntuación guardada")
}

// ToggleFollow adds the novel to the caller's followed list, or removes it
// if already present.
func (h *NovelsHandler) ToggleFollow(ctx *gin.Context) {
	claims, err := utils.CurrentClaims(ctx)

	if err != nil {
		utils.Fail(ctx, apperrors.Unauthorized("Acceso denegado"))
		return
	}

	id, err := parseID(ctx.Param("id"))

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	if err := h.requireNovel(id); err != nil {
		utils.Fail(ctx, err)
		return
	}

	result := h.db.Where("user_id = ? AND novel_id = ?", claims.UserID, id).Delete(&models.Follow{})

	if result.Error != nil {
		utils.Fail(ctx, result.Error)
		return
	}

	following := false

	if result.RowsAffected == 0 {
		if err := h.db.Create(&models.Follow{UserID: claims.UserID, NovelID: id}).Error; err != nil {
			utils.Fail(ctx, err)
			return
		}
		following = true
	}

	utils.OK(ctx, gin.H{"siguiendo": following})
}

func (h *NovelsHandler) ListFollowed(ctx *gin.Context) {
	claims, err := utils.CurrentClaims(ctx)

	if err != nil {
		utils.Fail(ctx, apperrors.Unauthorized("Acceso denegado"))
		return
	}

	var novels []models.Novel

	err = h.db.Joins("JOIN follows ON follows.novel_id = novels.id").
		Where("follows.user_id = ?", claims.UserID).
		Order("follows.created_at").
		Find(&novels).Error

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, newNovelResponses(novels))
}

func (h *NovelsHandler) ListPublished(ctx *gin.Context) {
	claims, err := utils.CurrentClaims(ctx)

	if err != nil {
		utils.Fail(ctx, apperrors.Unauthorized("Acceso denegado"))
		return
	}

	var novels []models.Novel

	err = h.db.Where("author_id = ?", claims.UserID).Order("created_at").Find(&novels).Error

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, newNovelResponses(novels))
}

// loadOwnedNovel resolves the :id parameter and enforces the ownership
// policy. Shared by the novel and chapter mutation handlers.
func loadOwnedNovel(ctx *gin.Context, db *gorm.DB) (*models.Novel, *auth.Claims, bool) {
	claims, err := utils.CurrentClaims(ctx)

	if err != nil {
		utils.Fail(ctx, apperrors.Unauthorized("Acceso denegado"))
		return nil, nil, false
	}

	id, err := parseID(ctx.Param("id"))

	if err != nil {
		utils.Fail(ctx, err)
		return nil, nil, false
	}

	var novel models.Novel

	if err := db.First(&novel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, apperrors.NotFound("No existe la novela"))
		} else {
			utils.Fail(ctx, err)
		}
		return nil, nil, false
	}

	if !canModifyNovel(claims, &novel) {
		utils.Fail(ctx, apperrors.Forbidden("No tienes permisos sobre esta novela"))
		return nil, nil, false
	}

	return &novel, claims, true
}

func (h *NovelsHandler) requireNovel(id uint) error {
	var count int64

	if err := h.db.Model(&models.Novel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return apperrors.NotFound("No existe la novela")
	}

	return nil
}

func (h *NovelsHandler) checkUniqueTitle(title string, excludeID uint) error {
	var count int64

	query := h.db.Model(&models.Novel{}).Where("title = ?", title)

	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	if err := query.Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return apperrors.Duplicate("El título no está disponible")
	}

	return nil
}

type pageParams struct {
	page      int
	limit     int
	sortField string
	direction string
}

// Sortable fields map the public query parameter names onto columns, so
// the sort clause never interpolates raw input.
var sortableColumns = map[string]string{
	"titulo":        "title",
	"fechaCreacion": "created_at",
	"puntuacion":    "rating",
	"visitas":       "views",
	"numCapitulos":  "chapter_count",
}

func parsePageParams(ctx *gin.Context) pageParams {
	params := pageParams{page: 1, limit: 25, direction: "desc"}

	if page, err := strconv.Atoi(ctx.Query("pagina")); err == nil && page > 0 {
		params.page = page
	}

	if limit, err := strconv.Atoi(ctx.Query("limite")); err == nil && limit > 0 && limit <= 100 {
		params.limit = limit
	}

	if column, ok := sortableColumns[ctx.Query("ordenar")]; ok {
		params.sortField = column
	}

	if ctx.Query("direccion") == "asc" {
		params.direction = "asc"
	}

	return params
}

// respondPage applies count, sort and offset pagination to a prepared
// query and writes the page. List results never include chapter bodies.
func (h *NovelsHandler) respondPage(ctx *gin.Context, query *gorm.DB, params pageParams) {
	var total int64

	if err := query.Count(&total).Error; err != nil {
		h.log.WithError(err).Error("failed to count novels")
		utils.Fail(ctx, err)
		return
	}

	if params.sortField != "" {
		query = query.Order(params.sortField + " " + params.direction)
	}

	var novels []models.Novel

	err := query.Offset((params.page - 1) * params.limit).Limit(params.limit).Find(&novels).Error

	if err != nil {
		h.log.WithError(err).Error("failed to list novels")
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, NovelPage{
		Novels: newNovelResponses(novels),
		Total:  total,
		Page:   params.page,
		Limit:  params.limit,
	})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)

	if err != nil || id == 0 {
		return 0, apperrors.Validation("Identificador no válido")
	}

	return uint(id), nil
}

func parseStringArray(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}

	var values []string

	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}

	return values, nil
}

// jsonMemberPattern matches a string element inside a JSON-serialized
// array column.
func jsonMemberPattern(value string) string {
	return `%"` + value + `"%`
}

// jsonMemberFilter builds an OR group matching rows whose array column
// contains any of the comma-separated values.
func jsonMemberFilter(db *gorm.DB, column, raw string) *gorm.DB {
	var cond *gorm.DB

	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)

		if value == "" {
			continue
		}

		if cond == nil {
			cond = db.Where(column+" LIKE ?", jsonMemberPattern(value))
		} else {
			cond = cond.Or(column+" LIKE ?", jsonMemberPattern(value))
		}
	}

	if cond == nil {
		return db.Where("1 = 1")
	}

	return cond
}

func newNovelResponse(novel *models.Novel, includeChapters bool) NovelResponse {
	response := NovelResponse{
		ID:            novel.ID,
		Author:        AuthorRef{ID: novel.AuthorID, Nickname: novel.AuthorNickname},
		Title:         novel.Title,
		Description:   novel.Description,
		Genres:        novel.Genres,
		Tags:          novel.Tags,
		ChapterCount:  novel.ChapterCount,
		Rating:        novel.Rating,
		Views:         novel.Views,
		Image:         novel.Image,
		CreatedAt:     novel.CreatedAt,
		LastChapterAt: novel.LastChapterAt,
	}

	if includeChapters {
		response.Chapters = make([]ChapterResponse, 0, len(novel.Chapters))
		for _, chapter := range novel.Chapters {
			response.Chapters = append(response.Chapters, ChapterResponse{
				Number:    chapter.Number,
				Title:     chapter.Title,
				Content:   chapter.Content,
				CreatedAt: chapter.CreatedAt,
			})
		}
	}

	return response
}

func newNovelResponses(novels []models.Novel) []NovelResponse {
	responses := make([]NovelResponse, 0, len(novels))

	for i := range novels {
		responses = append(responses, newNovelResponse(&novels[i], false))
	}

	return responses
}
