package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/internal/apperrors"
	"github.com/librenovela/librenovela/internal/auth"
	"github.com/librenovela/librenovela/internal/models"
	"github.com/librenovela/librenovela/internal/types"
	"github.com/librenovela/librenovela/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Nickname string `json:"nickname" binding:"required,min=6,max=16"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=25"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserSummary struct {
	ID       uint                 `json:"id"`
	Nickname string               `json:"nickname"`
	Email    string               `json:"email"`
	Role     models.Role          `json:"rol"`
	Status   models.AccountStatus `json:"estado"`
	Image    string               `json:"imagen"`
}

type LoginResponse struct {
	Token   string      `json:"token"`
	Usuario UserSummary `json:"usuario"`
}

type AuthHandler struct {
	db     *gorm.DB
	tokens *auth.TokenManager
	log    *logrus.Logger
}

func NewAuthHandler(db *gorm.DB, tokens *auth.TokenManager, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, log: log}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var body RegisterRequest

	if err := ctx.BindJSON(&body); err != nil {
		utils.Fail(ctx, apperrors.Validation("Datos de registro no válidos"))
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

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
		Role:         models.RoleUser,
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

func (h *AuthHandler) Login(ctx *gin.Context) {
	var body LoginRequest

	if err := ctx.BindJSON(&body); err != nil {
		utils.Fail(ctx, apperrors.Validation("Datos de acceso no válidos"))
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	var user models.User

	err := h.db.Where("email = ?", body.Email).First(&user).Error

	// Unknown email and wrong password produce the same answer so the
	// endpoint cannot be used to enumerate accounts.
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !auth.CheckPassword(body.Password, user.PasswordHash)) {
		utils.Fail(ctx, apperrors.Unauthorized("Email o contraseña incorrectos"))
		return
	}

	if err != nil {
		h.log.WithError(err).Error("failed to look up user at login")
		utils.Fail(ctx, err)
		return
	}

	if user.Status == models.StatusBanned {
		utils.Fail(ctx, apperrors.Forbidden("Cuenta suspendida"))
		return
	}

	token, err := h.tokens.Issue(&user)

	if err != nil {
		h.log.WithError(err).Error("failed to sign token")
		utils.Fail(ctx, err)
		return
	}

	ctx.Header(types.TokenHeader, token)
	utils.OK(ctx, LoginResponse{Token: token, Usuario: newUserSummary(&user)})
}

func checkUniqueUser(db *gorm.DB, nickname, email string) error {
	var existing models.User

	err := db.Where("nickname = ?", nickname).First(&existing).Error

	if err == nil {
		return apperrors.Duplicate("El nickname no está disponible")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	err = db.Where("email = ?", email).First(&existing).Error

	if err == nil {
		return apperrors.Duplicate("Ya existe una cuenta asociada a este email")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return nil
}

func newUserSummary(user *models.User) UserSummary {
	return UserSummary{
		ID:       user.ID,
		Nickname: user.Nickname,
		Email:    user.Email,
		Role:     user.Role,
		Status:   user.Status,
		Image:    user.Image,
	}
}
