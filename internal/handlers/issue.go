package handlers

import (
	"encoding/json"
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

type CreateIssueRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Tag         string `json:"tag" binding:"required"`
	Priority    string `json:"priority" binding:"required"`
	Status      string `json:"status"`
	AssigneeID  *uint  `json:"assignee_id"`
}

type UpdateIssueRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Tag         string  `json:"tag"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	// Raw so that an explicit null, which clears the assignee, can be told
	// apart from an absent key.
	AssigneeID json.RawMessage `json:"assignee_id"`
}

type IssueResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tag         string    `json:"tag"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	ProjectID   uint      `json:"project"`
	AuthorID    uint      `json:"author"`
	AssigneeID  *uint     `json:"assignee"`
	CreatedTime time.Time `json:"created_time"`
}

func issueResponse(issue models.Issue) IssueResponse {
	return IssueResponse{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Tag:         issue.Tag,
		Priority:    issue.Priority,
		Status:      issue.Status,
		ProjectID:   issue.ProjectID,
		AuthorID:    issue.AuthorID,
		AssigneeID:  issue.AssigneeID,
		CreatedTime: issue.CreatedAt,
	}
}

// validateAssignee enforces that issues are only assigned to contributors of
// the same project.
func validateAssignee(ctx *gin.Context, projectID uint, assigneeID uint) bool {
	isMember, err := permissions.IsContributor(projectID, assigneeID)

	if err != nil {
		log.Error().Err(err).Msg("Failed to check assignee membership")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}

	if !isMember {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Assignee must be a contributor of the project", "field": "assignee_id"})
		return false
	}

	return true
}

func ListIssues(ctx *gin.Context) {
	project, err := utils.GetScopedProject(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	var issues []models.Issue

	if err := db.DB.Where("project_id = ?", project.ID).Order("created_at DESC").Find(&issues).Error; err != nil {
		log.Error().Err(err).Msg("Failed to list issues")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]IssueResponse, 0, len(issues))

	for _, issue := range issues {
		response = append(response, issueResponse(issue))
	}

	ctx.JSON(http.StatusOK, response)
}

func CreateIssue(ctx *gin.Context) {
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

	var body CreateIssueRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !types.ValidIssueTag(body.Tag) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Tag must be one of BUG, FEATURE, TASK", "field": "tag"})
		return
	}

	if !types.ValidIssuePriority(body.Priority) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Priority must be one of LOW, MEDIUM, HIGH", "field": "priority"})
		return
	}

	status := body.Status

	if status == "" {
		status = types.StatusTodo
	}

	if !types.ValidIssueStatus(status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Status must be one of TODO, IN_PROGRESS, FINISHED", "field": "status"})
		return
	}

	// The caller is the default assignee; an explicit assignee must be a
	// contributor of the project.
	assigneeID := actor.ID

	if body.AssigneeID != nil {
		assigneeID = *body.AssigneeID

		if !validateAssignee(ctx, project.ID, assigneeID) {
			return
		}
	}

	issue := models.Issue{
		Title:       body.Title,
		Description: body.Description,
		Tag:         body.Tag,
		Priority:    body.Priority,
		Status:      status,
		ProjectID:   project.ID,
		AuthorID:    actor.ID,
		AssigneeID:  &assigneeID,
	}

	if err := db.DB.Create(&issue).Error; err != nil {
		log.Error().Err(err).Msg("Failed to create issue")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastProjectEvent(project.ID, "issue_created", issueResponse(issue))

	ctx.JSON(http.StatusCreated, issueResponse(issue))
}

func RetrieveIssue(ctx *gin.Context) {
	issue, err := utils.GetScopedIssue(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	ctx.JSON(http.StatusOK, issueResponse(issue))
}

func UpdateIssue(ctx *gin.Context) {
	issue, err := utils.GetScopedIssue(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !permissions.CanMutate(actor, issue.AuthorID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	var body UpdateIssueRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.Title != "" {
		issue.Title = body.Title
	}

	if body.Description != nil {
		issue.Description = *body.Description
	}

	if body.Tag != "" {
		if !types.ValidIssueTag(body.Tag) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Tag must be one of BUG, FEATURE, TASK", "field": "tag"})
			return
		}
		issue.Tag = body.Tag
	}

	if body.Priority != "" {
		if !types.ValidIssuePriority(body.Priority) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Priority must be one of LOW, MEDIUM, HIGH", "field": "priority"})
			return
		}
		issue.Priority = body.Priority
	}

	if body.Status != "" {
		if !types.ValidIssueStatus(body.Status) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Status must be one of TODO, IN_PROGRESS, FINISHED", "field": "status"})
			return
		}
		issue.Status = body.Status
	}

	if len(body.AssigneeID) > 0 {
		if string(body.AssigneeID) == "null" {
			issue.AssigneeID = nil
		} else {
			var assigneeID uint

			if err := json.Unmarshal(body.AssigneeID, &assigneeID); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Assignee must be a user id or null", "field": "assignee_id"})
				return
			}

			if !validateAssignee(ctx, issue.ProjectID, assigneeID) {
				return
			}

			issue.AssigneeID = &assigneeID
		}
	}

	if err := db.DB.Save(&issue).Error; err != nil {
		log.Error().Err(err).Msg("Failed to update issue")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastProjectEvent(issue.ProjectID, "issue_updated", issueResponse(issue))

	ctx.JSON(http.StatusOK, issueResponse(issue))
}

func DeleteIssue(ctx *gin.Context) {
	project, err := utils.GetScopedProject(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	issue, err := utils.GetScopedIssue(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !permissions.CanMutate(actor, issue.AuthorID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		return db.DeleteIssueCascade(tx, issue.ID)
	})

	if err != nil {
		log.Error().Err(err).Msg("Failed to delete issue")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastProjectEvent(project.ID, "issue_deleted", gin.H{"id": issue.ID})

	ctx.JSON(http.StatusOK, gin.H{
		"detail": fmt.Sprintf("Issue '%s' (id=%d) deleted from project '%s' (id=%d).",
			issue.Title, issue.ID, project.Title, project.ID),
	})
}
