package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/softdesk-dev/softdesk/internal/permissions"
	"github.com/softdesk-dev/softdesk/internal/types"
	"github.com/softdesk-dev/softdesk/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UpdateUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password" binding:"omitempty,min=8"`
	Birthday        string `json:"birthday"`
	CanBeContacted  *bool  `json:"can_be_contacted"`
	CanDataBeShared *bool  `json:"can_data_be_shared"`
}

type resourceSummary struct {
	ID    interface{} `json:"id"`
	Title string      `json:"title"`
}

type UserDetailResponse struct {
	ID               uint              `json:"id"`
	Username         string            `json:"username"`
	Birthday         string            `json:"birthday"`
	CanBeContacted   bool              `json:"can_be_contacted"`
	CanDataBeShared  bool              `json:"can_data_be_shared"`
	CreatedTime      time.Time         `json:"created_time"`
	Contributions    []resourceSummary `json:"contributions"`
	AuthoredProjects []resourceSummary `json:"authored_projects"`
	AuthoredIssues   []resourceSummary `json:"authored_issues"`
	AssignedIssues   []resourceSummary `json:"assigned_issues"`
	AuthoredComments []resourceSummary `json:"authored_comments"`
}

func parseUserID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("user_id"), 10, 64)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return 0, false
	}

	return uint(id), true
}

func ListUsers(ctx *gin.Context) {
	var users []models.User

	if err := db.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]types.UserResponse, 0, len(users))

	for _, user := range users {
		response = append(response, types.UserResponse{
			ID:          user.ID,
			Username:    user.Username,
			CreatedTime: user.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, response)
}

func RetrieveUser(ctx *gin.Context) {
	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	userID, ok := parseUserID(ctx)

	if !ok {
		return
	}

	if !permissions.CanMutateUser(actor, userID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	var user models.User

	err = db.DB.
		Preload("Contributions.Project").
		Preload("AuthoredProjects").
		Preload("AuthoredIssues").
		Preload("AssignedIssues").
		Preload("AuthoredComments").
		First(&user, userID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			log.Error().Err(err).Msg("Failed to fetch user")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	detail := UserDetailResponse{
		ID:               user.ID,
		Username:         user.Username,
		Birthday:         time.Time(user.Birthday).Format("2006-01-02"),
		CanBeContacted:   user.CanBeContacted,
		CanDataBeShared:  user.CanDataBeShared,
		CreatedTime:      user.CreatedAt,
		Contributions:    make([]resourceSummary, 0, len(user.Contributions)),
		AuthoredProjects: make([]resourceSummary, 0, len(user.AuthoredProjects)),
		AuthoredIssues:   make([]resourceSummary, 0, len(user.AuthoredIssues)),
		AssignedIssues:   make([]resourceSummary, 0, len(user.AssignedIssues)),
		AuthoredComments: make([]resourceSummary, 0, len(user.AuthoredComments)),
	}

	for _, contribution := range user.Contributions {
		detail.Contributions = append(detail.Contributions, resourceSummary{ID: contribution.ID, Title: contribution.Project.Title})
	}

	for _, project := range user.AuthoredProjects {
		detail.AuthoredProjects = append(detail.AuthoredProjects, resourceSummary{ID: project.ID, Title: project.Title})
	}

	for _, issue := range user.AuthoredIssues {
		detail.AuthoredIssues = append(detail.AuthoredIssues, resourceSummary{ID: issue.ID, Title: issue.Title})
	}

	for _, issue := range user.AssignedIssues {
		detail.AssignedIssues = append(detail.AssignedIssues, resourceSummary{ID: issue.ID, Title: issue.Title})
	}

	for _, comment := range user.AuthoredComments {
		detail.AuthoredComments = append(detail.AuthoredComments, resourceSummary{ID: comment.ID, Title: comment.Description})
	}

	ctx.JSON(http.StatusOK, detail)
}

func UpdateUser(ctx *gin.Context) {
	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	userID, ok := parseUserID(ctx)

	if !ok {
		return
	}

	if !permissions.CanMutateUser(actor, userID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	var user models.User

	if err := db.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			log.Error().Err(err).Msg("Failed to fetch user")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	var body UpdateUserRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updates := make(map[string]interface{})

	if body.Username != "" {
		newUsername := strings.TrimSpace(body.Username)

		if newUsername == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Username cannot be blank", "field": "username"})
			return
		}

		if newUsername != user.Username {
			var existingUser models.User

			err := db.DB.Where("username = ? AND id != ?", newUsername, user.ID).First(&existingUser).Error

			if err == nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists", "field": "username"})
				return
			}

			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error().Err(err).Msg("Database error when checking existing username")
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		}

		updates["username"] = newUsername
	}

	if body.Birthday != "" {
		birthday, err := time.Parse("2006-01-02", body.Birthday)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Birthday must be a valid YYYY-MM-DD date", "field": "birthday"})
			return
		}

		if utils.AgeInYears(birthday, time.Now()) < minimumAge {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "You must be at least 15 years old to register", "field": "birthday"})
			return
		}

		updates["birthday"] = datatypes.Date(birthday)
	}

	if body.Password != "" {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)

		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		updates["password_hash"] = string(passwordHash)
	}

	if body.CanBeContacted != nil {
		updates["can_be_contacted"] = *body.CanBeContacted
	}

	if body.CanDataBeShared != nil {
		updates["can_data_be_shared"] = *body.CanDataBeShared
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	if err := db.DB.Model(&user).Updates(updates).Error; err != nil {
		log.Error().Err(err).Msg("Failed to update user")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Map updates do not touch the loaded struct; re-read so the response
	// reflects what was written.
	if err := db.DB.First(&user, user.ID).Error; err != nil {
		log.Error().Err(err).Msg("Failed to reload user")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
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

func DeleteUser(ctx *gin.Context) {
	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	userID, ok := parseUserID(ctx)

	if !ok {
		return
	}

	if !permissions.CanMutateUser(actor, userID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	var user models.User

	if err := db.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			log.Error().Err(err).Msg("Failed to fetch user")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		return db.DeleteUserCascade(tx, user.ID)
	})

	if err != nil {
		log.Error().Err(err).Msg("Failed to delete user")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"detail": "User '" + user.Username + "' (id=" + strconv.FormatUint(uint64(user.ID), 10) + ") deleted.",
	})
}
