package handlers

import (
	"errors"
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
)

type CreateUserRequest struct {
	Nickname string      `json:"nickname" binding:"required,min=6,max=16"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6,max=25"`
	Role     models.Role `json:"rol" binding:"omitempty,oneof=Usuario Admin"`
}

// PublishedSummary is the lightweight novel shape embedded in profile
// responses. It is derived from the novels table on every read, never
// stored, so it cannot drift from the catalog.
type PublishedSummary struct {
	ID          uint      `json:"id"`
	Title       string    `json:"titulo"`
	Description string    `json:"descripcion"`
	Image       string    `json:"imagen"`
	CreatedAt   time.Time `json:"fechaCreacion"`
}

type ProfileResponse struct {
	UserSummary
	CreatedAt       time.Time          `json:"fechaCreacion"`
	PublishedNovels []PublishedSummary `json:"novelasPublicadas"`
	FollowedNovels  []uint             `json:"novelasSeguidas"`
}

type UsersHandler struct {
	db     *gorm.DB
	images *storage.ImageStore
	log    *logrus.Logger
}

func NewUsersHandler(db *gorm.DB, images *storage.ImageStore, log *logrus.Logger) *UsersHandler {
	return &UsersHandler{db: db, images: images, log: log}
}

// Me returns the caller's own profile. The password hash never leaves the
// model layer.
func (h *UsersHandler) Me(ctx *gin.Context) {
	claims, err := utils.CurrentClaims(ctx)

	if err != nil {
		utils.Fail(ctx, apperrors.Unauthorized("Acceso denegado"))
		return
	}

	h.respondProfile(ctx, claims.Email)
}

func (h *UsersHandler) GetByEmail(ctx *gin.Context) {
	h.respondProfile(ctx, strings.ToLower(ctx.Param("email")))
}

func (h *UsersHandler) respondProfile(ctx *gin.Context, email string) {
	var user models.User

	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, apperrors.NotFound("No existe el usuario"))
		} else {
			h.log.WithError(err).Error("failed to load user")
			utils.Fail(ctx, err)
		}
		return
	}

	published, err := h.publishedNovels(user.ID)

	if err != nil {
		h.log.WithError(err).Error("failed to load published novels")
		utils.Fail(ctx, err)
		return
	}

	followed, err := h.followedNovelIDs(user.ID)

	if err != nil {
		h.log.WithError(err).Error("failed to load followed novels")
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, ProfileResponse{
		UserSummary:     newUserSummary(&user),
		CreatedAt:       user.CreatedAt,
		PublishedNovels: published,
		FollowedNovels:  followed,
	})
}

// Create registers a user with an explicit role. The route is gated to
// Admin callers.
func (h *UsersHandler) Create(ctx *gin.Context) {
	var body CreateUserRequest

	if err := ctx.BindJSON(&body); err != nil {
		utils.Fail(ctx, apperrors.Validation("Datos de usuario no válidos"))
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	if body.Role == "" {
		body.Role = models.RoleUser
	}

	if err := checkUniqueUser(h.db, body.Nickname, body.Email); err != nil {
		utils.Fail(ctx, err)
		return
	}

	passwordHash, err := auth.HashPassword(body.Password)

	if err != nil {
		h.log.WithError(err).Error("failed to hash password")
		utils.Fail(ctx, err)
		return
	}

	user := models.User{
		Nickname:     body.Nickname,
		Email:        body.Email,
		PasswordHash: passwordHash,
		Role:         body.Role,
		Status:       models.StatusActive,
		Image:        models.DefaultUserImage,
	}

	if err := h.db.Create(&user).Error; err != nil {
		h.log.WithError(err).Error("failed to create user")
		utils.Fail(ctx, err)
		return
	}

	utils.OK(ctx, newUserSummary(&user))
}

// UpdateImage replaces the caller's profile image. The new file is written
// before the record changes so a failed write fails the whole request; the
// previous file is removed afterwards unless it is the placeholder.
func (h *UsersHandler) UpdateImage(ctx *gin.Context) {
	claims, err := utils.CurrentClaims(ctx)

	if err != nil {
		utils.Fail(ctx, apperrors.Unauthorized("Acceso denegado"))
		return
	}

	file, err := ctx.FormFile("imagen")

	if err != nil {
		utils.Fail(ctx, apperrors.Validation("Debes enviar una imagen para subir"))
		return
	}

	var user models.User

	if err := h.db.Where("email = ?", claims.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, apperrors.NotFound("No existe el usuario"))
		} else {
			utils.Fail(ctx, err)
		}
		return
	}

	name, err := h.images.SaveAvatar(file)

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	previous := user.Image

	if err := h.db.Model(&user).Update("image", name).Error; err != nil {
		h.log.WithError(err).Error("failed to update profile image")
		if removeErr := h.images.Remove(name); removeErr != nil {
			h.log.WithError(removeErr).Warn("failed to clean up new image")
		}
		utils.Fail(ctx, err)
		return
	}

	if err := h.images.Remove(previous); err != nil {
		h.log.WithError(err).WithField("image", previous).Warn("failed to remove previous image")
	}

	utils.OK(ctx, "Imagen cambiada con éxito")
}

func (h *UsersHandler) publishedNovels(userID uint) ([]PublishedSummary, error) {
	var novels []models.Novel

	err := h.db.Where("author_id = ?", userID).Order("created_at").Find(&novels).Error

	if err != nil {
		return nil, err
	}

	summaries := make([]PublishedSummary, 0, len(novels))

	for _, novel := range novels {
		summaries = append(summaries, PublishedSummary{
			ID:          novel.ID,
			Title:       novel.Title,
			Description: novel.Description,
			Image:       novel.Image,
			CreatedAt:   novel.CreatedAt,
		})
	}

	return summaries, nil
}

func (h *UsersHandler) followedNovelIDs(userID uint) ([]uint, error) {
	var ids []uint

	err := h.db.Model(&models.Follow{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("novel_id", &ids).Error

	if err != nil {
		return nil, err
	}

	if ids == nil {
		ids = []uint{}
	}

	return ids, nil
}
