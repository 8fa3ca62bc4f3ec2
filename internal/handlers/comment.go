package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/softdesk-dev/softdesk/internal/permissions"
	"github.com/softdesk-dev/softdesk/internal/utils"
	"gorm.io/gorm"
)

type CreateCommentRequest struct {
	Description string `json:"description" binding:"required"`
}

type UpdateCommentRequest struct {
	Description string `json:"description" binding:"required"`
}

type CommentResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	IssueID     uint      `json:"issue"`
	AuthorID    uint      `json:"author"`
	CreatedTime time.Time `json:"created_time"`
}

func commentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:          comment.ID,
		Description: comment.Description,
		IssueID:     comment.IssueID,
		AuthorID:    comment.AuthorID,
		CreatedTime: comment.CreatedAt,
	}
}

// fetchScopedComment loads the comment addressed by :comment_id under the
// already resolved project and issue. The comment's owning project is
// resolved through the permissions engine; a comment living under another
// project or another issue is reported as not found.
func fetchScopedComment(ctx *gin.Context, projectID uint, issueID uint) (models.Comment, bool) {
	commentID, err := uuid.Parse(ctx.Param("comment_id"))

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return models.Comment{}, false
	}

	owningProjectID, err := permissions.OwningProjectID(permissions.KindComment, commentID)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		} else {
			log.Error().Err(err).Msg("Failed to resolve comment scope")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return models.Comment{}, false
	}

	var comment models.Comment

	if err := db.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		} else {
			log.Error().Err(err).Msg("Failed to fetch comment")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return models.Comment{}, false
	}

	if owningProjectID != projectID || comment.IssueID != issueID {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return models.Comment{}, false
	}

	return comment, true
}

func ListComments(ctx *gin.Context) {
	issue, err := utils.GetScopedIssue(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	var comments []models.Comment

	if err := db.DB.Where("issue_id = ?", issue.ID).Order("created_at DESC").Find(&comments).Error; err != nil {
		log.Error().Err(err).Msg("Failed to list comments")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]CommentResponse, 0, len(comments))

	for _, comment := range comments {
		response = append(response, commentResponse(comment))
	}

	ctx.JSON(http.StatusOK, response)
}

func CreateComment(ctx *gin.Context) {
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

	var body CreateCommentRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Description is required", "field": "description"})
		return
	}

	comment := models.Comment{
		Description: body.Description,
		IssueID:     issue.ID,
		AuthorID:    actor.ID,
	}

	if err := db.DB.Create(&comment).Error; err != nil {
		log.Error().Err(err).Msg("Failed to create comment")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastProjectEvent(issue.ProjectID, "comment_created", commentResponse(comment))

	ctx.JSON(http.StatusCreated, commentResponse(comment))
}

func RetrieveComment(ctx *gin.Context) {
	issue, err := utils.GetScopedIssue(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	comment, ok := fetchScopedComment(ctx, issue.ProjectID, issue.ID)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, commentResponse(comment))
}

func UpdateComment(ctx *gin.Context) {
	issue, err := utils.GetScopedIssue(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	comment, ok := fetchScopedComment(ctx, issue.ProjectID, issue.ID)

	if !ok {
		return
	}

	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !permissions.CanMutate(actor, comment.AuthorID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	var body UpdateCommentRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Description is required", "field": "description"})
		return
	}

	comment.Description = body.Description

	if err := db.DB.Save(&comment).Error; err != nil {
		log.Error().Err(err).Msg("Failed to update comment")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastProjectEvent(issue.ProjectID, "comment_updated", commentResponse(comment))

	ctx.JSON(http.StatusOK, commentResponse(comment))
}

func DeleteComment(ctx *gin.Context) {
	issue, err := utils.GetScopedIssue(ctx)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	comment, ok := fetchScopedComment(ctx, issue.ProjectID, issue.ID)

	if !ok {
		return
	}

	actor, err := utils.GetCurrentActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !permissions.CanMutate(actor, comment.AuthorID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	if err := db.DB.Unscoped().Delete(&comment).Error; err != nil {
		log.Error().Err(err).Msg("Failed to delete comment")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastProjectEvent(issue.ProjectID, "comment_deleted", gin.H{"id": comment.ID})

	ctx.JSON(http.StatusOK, gin.H{
		"detail": fmt.Sprintf("Comment (id=%s) deleted from issue '%s' (id=%d).",
			comment.ID, issue.Title, issue.ID),
	})
}
