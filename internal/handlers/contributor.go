package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/softdesk-dev/softdesk/internal/permissions"
	"github.com/softdesk-dev/softdesk/internal/types"
	"github.com/softdesk-dev/softdesk/internal/utils"
	"gorm.io/gorm"
)

type AddContributorRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

type ContributorResponse struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	ProjectID   uint      `json:"project_id"`
	Role        string    `json:"role"`
	CreatedTime time.Time `json:"created_time"`
}

func contributorResponse(contributor models.Contributor) ContributorResponse {
	return ContributorResponse{
		ID:          contributor.ID,
		UserID:      contributor.UserID,
		Username:    contributor.User.Username,
		ProjectID:   contributor.ProjectID,
		Role:        contributor.Role,
		CreatedTime: contributor.CreatedAt,
	}
}

func ListContributors(ctx *gin.Context) {
	project, err := utils.GetScopedProject(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	var contributors []models.Contributor

	if err := db.DB.Preload("User").Where("project_id = ?", project.ID).Order("created_at DESC").Find(&contributors).Error; err != nil {
		log.Error().Err(err).Msg("Failed to list contributors")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]ContributorResponse, 0, len(contributors))

	for _, contributor := range contributors {
		response = append(response, contributorResponse(contributor))
	}

	ctx.JSON(http.StatusOK, response)
}

// AddContributor is reserved for the project's author. The (user, project)
// pair is guarded twice: a pre-check for the common case, and the unique
// index for the race between two simultaneous adds.
func AddContributor(ctx *gin.Context) {
	project, err := utils.GetScopedProject(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !permissions.CanManageContributors(actor, project) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	var body AddContributorRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	role := body.Role

	if role == "" {
		role = types.RoleContributor
	}

	if !types.ValidRole(role) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Role must be one of AUTHOR, CONTRIBUTOR", "field": "role"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, body.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "User does not exist", "field": "user_id"})
		} else {
			log.Error().Err(err).Msg("Failed to fetch user")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	alreadyMember, err := permissions.IsContributor(project.ID, user.ID)

	if err != nil {
		log.Error().Err(err).Msg("Failed to check existing contributor")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if alreadyMember {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "This user is already a contributor of the project", "field": "user_id"})
		return
	}

	contributor := models.Contributor{
		UserID:    user.ID,
		ProjectID: project.ID,
		Role:      role,
	}

	if err := db.DB.Create(&contributor).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "This user is already a contributor of the project", "field": "user_id"})
			return
		}
		log.Error().Err(err).Msg("Failed to create contributor")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	contributor.User = user

	ctx.JSON(http.StatusCreated, contributorResponse(contributor))
}

// RemoveContributor is reserved for the project's author. The author's own
// membership is protected from removal no matter who asks, the author
// included.
func RemoveContributor(ctx *gin.Context) {
	project, err := utils.GetScopedProject(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !permissions.CanManageContributors(actor, project) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	contributorID, err := strconv.ParseUint(ctx.Param("contributor_id"), 10, 64)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Contributor not found"})
		return
	}

	var contributor models.Contributor

	if err := db.DB.Preload("User").First(&contributor, "id = ? AND project_id = ?", contributorID, project.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Contributor not found"})
		} else {
			log.Error().Err(err).Msg("Failed to fetch contributor")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if contributor.UserID == project.AuthorID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ErrCannotRemoveProjectAuthor.Error()})
		return
	}

	if err := db.DB.Unscoped().Delete(&contributor).Error; err != nil {
		log.Error().Err(err).Msg("Failed to delete contributor")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"detail": fmt.Sprintf("Contributor '%s' (id=%d) removed from project '%s' (id=%d).",
			contributor.User.Username, contributor.ID, project.Title, project.ID),
	})
}

// ContributorMethodNotAllowed rejects PUT and PATCH on contributor records
// before any permission evaluation. Memberships are only created or deleted.
func ContributorMethodNotAllowed(ctx *gin.Context) {
	ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": fmt.Sprintf("Method \"%s\" not allowed.", ctx.Request.Method)})
}
