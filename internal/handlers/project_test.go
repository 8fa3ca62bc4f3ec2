package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/softdesk-dev/softdesk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectEnrollsAuthor(t *testing.T) {
	r := newTestRouter(t)
	user, token := createTestUser(t, "alice", false)

	w := doRequest(r, http.MethodPost, "/api/projects", token, map[string]string{
		"title":       "SoftDesk API",
		"description": "Issue tracking",
		"type":        "BACKEND",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID       uint   `json:"id"`
		Title    string `json:"title"`
		AuthorID uint   `json:"author"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, user.ID, resp.AuthorID)

	// The AUTHOR membership exists as soon as the project does.
	var contributor models.Contributor
	require.NoError(t, db.DB.Where("project_id = ? AND user_id = ?", resp.ID, user.ID).First(&contributor).Error)
	assert.Equal(t, types.RoleAuthor, contributor.Role)
}

func TestCreateProjectInvalidType(t *testing.T) {
	r := newTestRouter(t)
	_, token := createTestUser(t, "alice", false)

	w := doRequest(r, http.MethodPost, "/api/projects", token, map[string]string{
		"title": "SoftDesk API",
		"type":  "MAINFRAME",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.DB.Model(&models.Project{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListProjectsScopedToMembership(t *testing.T) {
	r := newTestRouter(t)
	alice, aliceToken := createTestUser(t, "alice", false)
	bob, bobToken := createTestUser(t, "bob", false)

	project := createTestProject(t, alice, "Alice's project")
	createTestProject(t, bob, "Bob's project")

	var resp []struct {
		Title string `json:"title"`
	}

	w := doRequest(r, http.MethodGet, "/api/projects", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "Alice's project", resp[0].Title)

	// Adding bob as a contributor makes the project appear in his list.
	addTestContributor(t, project, bob)

	w = doRequest(r, http.MethodGet, "/api/projects", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	assert.Len(t, resp, 2)
}

func TestRetrieveProjectRequiresMembership(t *testing.T) {
	r := newTestRouter(t)
	alice, _ := createTestUser(t, "alice", false)
	_, bobToken := createTestUser(t, "bob", false)

	project := createTestProject(t, alice, "Private project")

	w := doRequest(r, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodGet, "/api/projects/999999", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRetrieveProjectDetail(t *testing.T) {
	r := newTestRouter(t)
	alice, token := createTestUser(t, "alice", false)

	project := createTestProject(t, alice, "Detailed project")
	createTestIssue(t, project, alice)

	w := doRequest(r, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Title        string `json:"title"`
		Contributors []struct {
			User string `json:"user"`
			Role string `json:"role"`
		} `json:"contributors"`
		Issues []struct {
			Title string `json:"title"`
		} `json:"issues"`
	}
	decodeBody(t, w, &resp)

	assert.Equal(t, "Detailed project", resp.Title)
	require.Len(t, resp.Contributors, 1)
	assert.Equal(t, "alice", resp.Contributors[0].User)
	assert.Equal(t, types.RoleAuthor, resp.Contributors[0].Role)
	assert.Len(t, resp.Issues, 1)
}

func TestUpdateProjectAuthorOnly(t *testing.T) {
	r := newTestRouter(t)
	alice, aliceToken := createTestUser(t, "alice", false)
	bob, bobToken := createTestUser(t, "bob", false)

	project := createTestProject(t, alice, "Original title")
	addTestContributor(t, project, bob)

	// A contributor who is not the author may read but not write.
	w := doRequest(r, http.MethodPatch, fmt.Sprintf("/api/projects/%d", project.ID), bobToken, map[string]string{
		"title": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodPatch, fmt.Sprintf("/api/projects/%d", project.ID), aliceToken, map[string]string{
		"title": "Renamed",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Project
	require.NoError(t, db.DB.First(&updated, project.ID).Error)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestDeleteProjectCascades(t *testing.T) {
	r := newTestRouter(t)
	alice, token := createTestUser(t, "alice", false)
	bob, _ := createTestUser(t, "bob", false)

	project := createTestProject(t, alice, "Doomed project")
	addTestContributor(t, project, bob)
	issue := createTestIssue(t, project, alice)
	createTestComment(t, issue, bob)

	w := doRequest(r, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Contains(t, resp["detail"], "Doomed project")
	assert.Contains(t, resp["detail"], "deleted")

	// No orphan rows anywhere under the project.
	var count int64
	require.NoError(t, db.DB.Unscoped().Model(&models.Issue{}).Where("project_id = ?", project.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.DB.Unscoped().Model(&models.Comment{}).Where("issue_id = ?", issue.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.DB.Unscoped().Model(&models.Contributor{}).Where("project_id = ?", project.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.DB.Unscoped().Model(&models.Project{}).Where("id = ?", project.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteProjectAuthorOnly(t *testing.T) {
	r := newTestRouter(t)
	alice, _ := createTestUser(t, "alice", false)
	bob, bobToken := createTestUser(t, "bob", false)

	project := createTestProject(t, alice, "Protected project")
	addTestContributor(t, project, bob)

	w := doRequest(r, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSuperuserBypassesProjectScoping(t *testing.T) {
	r := newTestRouter(t)
	alice, _ := createTestUser(t, "alice", false)
	_, rootToken := createTestUser(t, "root", true)

	project := createTestProject(t, alice, "Someone else's project")

	// The superuser is not a contributor but sees and deletes the project.
	w := doRequest(r, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), rootToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/projects", rootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []struct {
		ID uint `json:"id"`
	}
	decodeBody(t, w, &listed)
	assert.Len(t, listed, 1)

	w = doRequest(r, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), rootToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
