package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/softdesk-dev/softdesk/internal/permissions"
	"github.com/softdesk-dev/softdesk/internal/types"
	"gorm.io/gorm"
)

func currentActor(ctx *gin.Context) (permissions.Actor, bool) {
	value, exists := ctx.Get(types.ContextUserKey)
	if !exists {
		return permissions.Actor{}, false
	}

	user, ok := value.(AuthenticatedUser)
	if !ok {
		return permissions.Actor{}, false
	}

	return permissions.Actor{ID: user.ID, IsSuperuser: user.IsSuperuser}, true
}

// RequireProjectAccess resolves the :project_id path segment and enforces the
// project-scoping rule: everything nested under a project is reserved for its
// contributors. Superusers pass unconditionally. Contributorship is read from
// the store on every request.
func RequireProjectAccess() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor, ok := currentActor(ctx)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		projectID, err := strconv.ParseUint(ctx.Param("project_id"), 10, 64)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		var project models.Project

		if err := db.DB.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			} else {
				log.Error().Err(err).Msg("Failed to resolve project scope")
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		allowed, err := permissions.CanAccessProject(actor, project.ID)

		if err != nil {
			log.Error().Err(err).Msg("Failed to check project membership")
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if !allowed {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
			return
		}

		ctx.Set(types.ContextProjectKey, project)
		ctx.Next()
	}
}

// RequireIssue resolves the :issue_id path segment within the already scoped
// project. An issue id that exists under a different project is reported as
// not found, so issue ids in foreign projects are not revealed.
func RequireIssue() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, exists := ctx.Get(types.ContextProjectKey)

		if !exists {
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		project, ok := value.(models.Project)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		issueID, err := strconv.ParseUint(ctx.Param("issue_id"), 10, 64)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
			return
		}

		owningProjectID, err := permissions.OwningProjectID(permissions.KindIssue, uint(issueID))

		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
			} else {
				log.Error().Err(err).Msg("Failed to resolve issue scope")
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		if owningProjectID != project.ID {
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
			return
		}

		var issue models.Issue

		if err := db.DB.First(&issue, "id = ?", issueID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
			} else {
				log.Error().Err(err).Msg("Failed to fetch issue")
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		ctx.Set(types.ContextIssueKey, issue)
		ctx.Next()
	}
}
