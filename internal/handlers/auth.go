package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/auth"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/softdesk-dev/softdesk/internal/types"
	"github.com/softdesk-dev/softdesk/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minimumAge = 15

type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	Birthday        string `json:"birthday" binding:"required"`
	CanBeContacted  bool   `json:"can_be_contacted"`
	CanDataBeShared bool   `json:"can_data_be_shared"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func Register(ctx *gin.Context) {
	var body RegisterRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	body.Username = strings.TrimSpace(body.Username)

	if body.Username == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Username is required", "field": "username"})
		return
	}

	birthday, err := time.Parse("2006-01-02", body.Birthday)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Birthday must be a valid YYYY-MM-DD date", "field": "birthday"})
		return
	}

	if utils.AgeInYears(birthday, time.Now()) < minimumAge {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "You must be at least 15 years old to register", "field": "birthday"})
		return
	}

	var existingUser models.User

	err = db.DB.Where("username = ?", body.Username).First(&existingUser).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists", "field": "username"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Err(err).Msg("Database error when checking existing user")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)

	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	newUser := models.User{
		Username:        body.Username,
		PasswordHash:    string(passwordHash),
		Birthday:        datatypes.Date(birthday),
		CanBeContacted:  body.CanBeContacted,
		CanDataBeShared: body.CanDataBeShared,
	}

	if err := db.DB.Create(&newUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists", "field": "username"})
			return
		}
		log.Error().Err(err).Msg("Failed to create user")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	tokens, err := auth.GenerateTokenPair(newUser.ID)

	if err != nil {
		log.Error().Err(err).Msg("Failed to generate token pair")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"user": types.UserResponse{
			ID:          newUser.ID,
			Username:    newUser.Username,
			CreatedTime: newUser.CreatedAt,
		},
		"tokens": tokens,
	})
}

func Login(ctx *gin.Context) {
	var body LoginRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User

	err := db.DB.Where("username = ?", body.Username).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		log.Error().Err(err).Msg("Database error when fetching user")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	tokens, err := auth.GenerateTokenPair(user.ID)

	if err != nil {
		log.Error().Err(err).Msg("Failed to generate token pair")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:          user.ID,
			Username:    user.Username,
			CreatedTime: user.CreatedAt,
		},
		"tokens": tokens,
	})
}

// RefreshToken exchanges a valid refresh token for a fresh access token.
func RefreshToken(ctx *gin.Context) {
	var body RefreshRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	claims, err := auth.VerifyToken(body.Refresh, auth.TokenTypeRefresh)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, claims.UserID).Error; err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	access, err := auth.GenerateAccessToken(user.ID)

	if err != nil {
		log.Error().Err(err).Msg("Failed to generate access token")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"access": access})
}

func Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, currentUser.ID).Error; err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:          user.ID,
			Username:    user.Username,
			CreatedTime: user.CreatedAt,
		},
	})
}
