// Package permissions implements the layered authorization checks: superuser
// override, project-contributor scoping, author-only mutation, author-only
// contributor management, and self-or-superuser user mutation. Checks always
// read the store; nothing is cached between requests.
package permissions

import (
	"errors"

	"github.com/google/uuid"
	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/models"
)

// ForbiddenMessage is the generic denial body. It deliberately carries no
// detail about the resource or the failed rule.
const ForbiddenMessage = "You do not have permission to perform this action"

var (
	ErrCannotRemoveProjectAuthor = errors.New("the project's author cannot be removed from contributors")
	ErrUnknownResourceKind       = errors.New("unknown resource kind")
)

// Actor is the caller identity the engine evaluates against.
type Actor struct {
	ID          uint
	IsSuperuser bool
}

type ResourceKind int

const (
	KindProject ResourceKind = iota
	KindIssue
	KindComment
)

// projectResolvers maps each resource kind to its owning-project lookup.
// Project resolves to itself, an issue follows its project key, a comment
// follows its issue's project key.
var projectResolvers = map[ResourceKind]func(id interface{}) (uint, error){
	KindProject: resolveProject,
	KindIssue:   resolveIssueProject,
	KindComment: resolveCommentProject,
}

// OwningProjectID resolves which project scopes the given resource. The
// result is never cached: membership may change between requests, so every
// authorization decision re-reads the chain.
func OwningProjectID(kind ResourceKind, id interface{}) (uint, error) {
	resolver, ok := projectResolvers[kind]
	if !ok {
		return 0, ErrUnknownResourceKind
	}
	return resolver(id)
}

func resolveProject(id interface{}) (uint, error) {
	var project models.Project
	if err := db.DB.Select("id").First(&project, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return project.ID, nil
}

func resolveIssueProject(id interface{}) (uint, error) {
	var issue models.Issue
	if err := db.DB.Select("project_id").First(&issue, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return issue.ProjectID, nil
}

func resolveCommentProject(id interface{}) (uint, error) {
	commentID, ok := id.(uuid.UUID)
	if !ok {
		return 0, ErrUnknownResourceKind
	}

	var comment models.Comment
	if err := db.DB.Select("issue_id").First(&comment, "id = ?", commentID).Error; err != nil {
		return 0, err
	}

	return resolveIssueProject(comment.IssueID)
}

func IsContributor(projectID uint, userID uint) (bool, error) {
	var count int64

	err := db.DB.Model(&models.Contributor{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// CanAccessProject is the project-scoping rule: any resource nested under a
// project requires contributorship, superusers excepted.
func CanAccessProject(actor Actor, projectID uint) (bool, error) {
	if actor.IsSuperuser {
		return true, nil
	}
	return IsContributor(projectID, actor.ID)
}

// CanMutate is the mutation-authorship rule: writes to a project, issue or
// comment are reserved for its author, superusers excepted. Reads never go
// through this check.
func CanMutate(actor Actor, authorID uint) bool {
	return actor.IsSuperuser || actor.ID == authorID
}

// CanManageContributors gates contributor creation and removal: the project's
// author only, superusers excepted. Contributor reads fall under
// CanAccessProject alone.
func CanManageContributors(actor Actor, project models.Project) bool {
	return actor.IsSuperuser || actor.ID == project.AuthorID
}

// CanMutateUser is the self-or-superuser rule for the User hierarchy.
func CanMutateUser(actor Actor, targetUserID uint) bool {
	return actor.IsSuperuser || actor.ID == targetUserID
}
