package handlers

import (
	"fmt"
	"net/http"
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

type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required"`
}

type UpdateProjectRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Type        string  `json:"type"`
}

type ProjectResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	AuthorID    uint      `json:"author"`
	CreatedTime time.Time `json:"created_time"`
}

type contributorSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"user"`
	Role     string `json:"role"`
}

type issueSummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type ProjectDetailResponse struct {
	ProjectResponse
	Contributors []contributorSummary `json:"contributors"`
	Issues       []issueSummary       `json:"issues"`
}

func projectResponse(project models.Project) ProjectResponse {
	return ProjectResponse{
		ID:          project.ID,
		Title:       project.Title,
		Description: project.Description,
		Type:        project.Type,
		AuthorID:    project.AuthorID,
		CreatedTime: project.CreatedAt,
	}
}

// CreateProject is open to any authenticated caller. The caller becomes the
// project's author and is enrolled as an AUTHOR contributor in the same
// transaction, so the project is never visible without its author membership.
func CreateProject(ctx *gin.Context) {
	var body CreateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !types.ValidProjectType(body.Type) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Type must be one of BACKEND, FRONTEND, IOS, ANDROID", "field": "type"})
		return
	}

	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	project := models.Project{
		Title:       body.Title,
		Description: body.Description,
		Type:        body.Type,
		AuthorID:    actor.ID,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		contributor := models.Contributor{
			UserID:    actor.ID,
			ProjectID: project.ID,
			Role:      types.RoleAuthor,
		}

		return tx.Create(&contributor).Error
	})

	if err != nil {
		log.Error().Err(err).Msg("Failed to create project")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	ctx.JSON(http.StatusCreated, projectResponse(project))
}

// ListProjects returns the projects the caller contributes to. Superusers see
// every project.
func ListProjects(ctx *gin.Context) {
	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var projects []models.Project

	query := db.DB.Order("projects.created_at DESC")

	if !actor.IsSuperuser {
		query = query.
			Joins("JOIN contributors ON contributors.project_id = projects.id").
			Where("contributors.user_id = ?", actor.ID)
	}

	if err := query.Find(&projects).Error; err != nil {
		log.Error().Err(err).Msg("Failed to list projects")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	response := make([]ProjectResponse, 0, len(projects))

	for _, project := range projects {
		response = append(response, projectResponse(project))
	}

	ctx.JSON(http.StatusOK, response)
}

func RetrieveProject(ctx *gin.Context) {
	project, err := utils.GetScopedProject(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	var contributors []models.Contributor

	if err := db.DB.Preload("User").Where("project_id = ?", project.ID).Find(&contributors).Error; err != nil {
		log.Error().Err(err).Msg("Failed to fetch contributors")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var issues []models.Issue

	if err := db.DB.Where("project_id = ?", project.ID).Find(&issues).Error; err != nil {
		log.Error().Err(err).Msg("Failed to fetch issues")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	detail := ProjectDetailResponse{
		ProjectResponse: projectResponse(project),
		Contributors:    make([]contributorSummary, 0, len(contributors)),
		Issues:          make([]issueSummary, 0, len(issues)),
	}

	for _, contributor := range contributors {
		detail.Contributors = append(detail.Contributors, contributorSummary{
			ID:       contributor.ID,
			Username: contributor.User.Username,
			Role:     contributor.Role,
		})
	}

	for _, issue := range issues {
		detail.Issues = append(detail.Issues, issueSummary{ID: issue.ID, Title: issue.Title})
	}

	ctx.JSON(http.StatusOK, detail)
}

func UpdateProject(ctx *gin.Context) {
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

	if !permissions.CanMutate(actor, project.AuthorID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	var body UpdateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.Title != "" {
		project.Title = body.Title
	}

	if body.Description != nil {
		project.Description = *body.Description
	}

	if body.Type != "" {
		if !types.ValidProjectType(body.Type) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Type must be one of BACKEND, FRONTEND, IOS, ANDROID", "field": "type"})
			return
		}
		project.Type = body.Type
	}

	if err := db.DB.Save(&project).Error; err != nil {
		log.Error().Err(err).Msg("Failed to update project")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	ctx.JSON(http.StatusOK, projectResponse(project))
}

func DeleteProject(ctx *gin.Context) {
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

	if !permissions.CanMutate(actor, project.AuthorID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		return db.DeleteProjectCascade(tx, project.ID)
	})

	if err != nil {
		log.Error().Err(err).Msg("Failed to delete project")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"detail": fmt.Sprintf("Project '%s' (id=%d) deleted.", project.Title, project.ID),
	})
}
