package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentsPath(projectID, issueID uint) string {
	return fmt.Sprintf("/api/projects/%d/issues/%d/comments", projectID, issueID)
}

func TestCreateComment(t *testing.T) {
	r := newTestRouter(t)
	alice, token := createTestUser(t, "alice", false)

	project := createTestProject(t, alice, "Tracked project")
	issue := createTestIssue(t, project, alice)

	w := doRequest(r, http.MethodPost, commentsPath(project.ID, issue.ID), token, map[string]string{
		"description": "I can reproduce this",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Author      uint   `json:"author"`
	}
	decodeBody(t, w, &resp)

	// The id is a random UUID, not a sequential integer.
	parsed, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, parsed)
	assert.Equal(t, alice.ID, resp.Author)
}

func TestCreateCommentCrossProjectMismatch(t *testing.T) {
	r := newTestRouter(t)
	alice, token := createTestUser(t, "alice", false)

	projectA := createTestProject(t, alice, "Project A")
	projectB := createTestProject(t, alice, "Project B")
	issueB := createTestIssue(t, projectB, alice)

	// The issue belongs to project B; addressing it through project A is
	// reported as not found, not forbidden.
	w := doRequest(r, http.MethodPost, commentsPath(projectA.ID, issueB.ID), token, map[string]string{
		"description": "Wrong address",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, db.DB.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCommentsRequireMembership(t *testing.T) {
	r := newTestRouter(t)
	alice, _ := createTestUser(t, "alice", false)
	_, bobToken := createTestUser(t, "bob", false)

	project := createTestProject(t, alice, "Tracked project")
	issue := createTestIssue(t, project, alice)

	w := doRequest(r, http.MethodGet, commentsPath(project.ID, issue.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateCommentAuthorOnly(t *testing.T) {
	r := newTestRouter(t)
	alice, _ := createTestUser(t, "alice", false)
	bob, bobToken := createTestUser(t, "bob", false)

	project := createTestProject(t, alice, "Tracked project")
	addTestContributor(t, project, bob)
	issue := createTestIssue(t, project, alice)
	comment := createTestComment(t, issue, alice)

	path := fmt.Sprintf("%s/%s", commentsPath(project.ID, issue.ID), comment.ID)

	// bob can read the comment but only alice may edit it.
	w := doRequest(r, http.MethodGet, path, bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodPatch, path, bobToken, map[string]string{"description": "edited"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteComment(t *testing.T) {
	r := newTestRouter(t)
	alice, token := createTestUser(t, "alice", false)

	project := createTestProject(t, alice, "Tracked project")
	issue := createTestIssue(t, project, alice)
	comment := createTestComment(t, issue, alice)

	path := fmt.Sprintf("%s/%s", commentsPath(project.ID, issue.ID), comment.ID)

	w := doRequest(r, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Contains(t, resp["detail"], "deleted from issue")
	assert.Contains(t, resp["detail"], issue.Title)

	var count int64
	require.NoError(t, db.DB.Unscoped().Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRetrieveCommentUnknownID(t *testing.T) {
	r := newTestRouter(t)
	alice, token := createTestUser(t, "alice", false)

	project := createTestProject(t, alice, "Tracked project")
	issue := createTestIssue(t, project, alice)

	w := doRequest(r, http.MethodGet, fmt.Sprintf("%s/%s", commentsPath(project.ID, issue.ID), uuid.New()), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, fmt.Sprintf("%s/not-a-uuid", commentsPath(project.ID, issue.ID)), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
