package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/softdesk-dev/softdesk/internal/middleware"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/softdesk-dev/softdesk/internal/permissions"
	"github.com/softdesk-dev/softdesk/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, fmt.Errorf("User not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, fmt.Errorf("Invalid user type in context")
	}

	return authenticatedUser, nil
}

func GetCurrentActor(ctx *gin.Context) (permissions.Actor, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return permissions.Actor{}, err
	}

	return permissions.Actor{ID: user.ID, IsSuperuser: user.IsSuperuser}, nil
}

// GetScopedProject returns the project resolved by RequireProjectAccess.
func GetScopedProject(ctx *gin.Context) (models.Project, error) {
	value, exists := ctx.Get(types.ContextProjectKey)

	if !exists {
		return models.Project{}, fmt.Errorf("Project not resolved in context")
	}

	project, ok := value.(models.Project)

	if !ok {
		return models.Project{}, fmt.Errorf("Invalid project type in context")
	}

	return project, nil
}

// GetScopedIssue returns the issue resolved by RequireIssue.
func GetScopedIssue(ctx *gin.Context) (models.Issue, error) {
	value, exists := ctx.Get(types.ContextIssueKey)

	if !exists {
		return models.Issue{}, fmt.Errorf("Issue not resolved in context")
	}

	issue, ok := value.(models.Issue)

	if !ok {
		return models.Issue{}, fmt.Errorf("Invalid issue type in context")
	}

	return issue, nil
}
