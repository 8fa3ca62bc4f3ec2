package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(username, birthday string) map[string]interface{} {
	return map[string]interface{}{
		"username":           username,
		"password":           testPassword,
		"birthday":           birthday,
		"can_be_contacted":   true,
		"can_data_be_shared": false,
	}
}

func TestRegister(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/auth/register", "", registerBody("alice", "1990-06-15"))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		User struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
		Tokens struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		} `json:"tokens"`
	}
	decodeBody(t, w, &resp)

	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.Tokens.Access)
	assert.NotEmpty(t, resp.Tokens.Refresh)

	var user models.User
	require.NoError(t, db.DB.First(&user, resp.User.ID).Error)
	assert.True(t, user.CanBeContacted)
	assert.False(t, user.CanDataBeShared)
	assert.NotEqual(t, testPassword, user.PasswordHash)
}

func TestRegisterAgeBoundary(t *testing.T) {
	r := newTestRouter(t)

	now := time.Now()

	// Exactly fifteen years old today: accepted.
	fifteen := now.AddDate(-15, 0, 0).Format("2006-01-02")
	w := doRequest(r, http.MethodPost, "/api/auth/register", "", registerBody("justold", fifteen))
	assert.Equal(t, http.StatusCreated, w.Code)

	// One day short of fifteen: rejected.
	almost := now.AddDate(-15, 0, 1).Format("2006-01-02")
	w = doRequest(r, http.MethodPost, "/api/auth/register", "", registerBody("tooyoung", almost))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Equal(t, "birthday", resp["field"])

	var count int64
	require.NoError(t, db.DB.Model(&models.User{}).Where("username = ?", "tooyoung").Count(&count).Error)
	assert.Zero(t, count)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/auth/register", "", registerBody("bob", "1990-06-15"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(r, http.MethodPost, "/api/auth/register", "", registerBody("bob", "1992-01-20"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterInvalidBirthday(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/auth/register", "", registerBody("carol", "15/06/1990"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterShortPassword(t *testing.T) {
	r := newTestRouter(t)

	body := registerBody("dave", "1990-06-15")
	body["password"] = "short"

	w := doRequest(r, http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	r := newTestRouter(t)
	user, _ := createTestUser(t, "alice", false)

	w := doRequest(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": user.Username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tokens struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		} `json:"tokens"`
	}
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.Tokens.Access)
	assert.NotEmpty(t, resp.Tokens.Refresh)
}

func TestLoginWrongPassword(t *testing.T) {
	r := newTestRouter(t)
	user, _ := createTestUser(t, "alice", false)

	w := doRequest(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": user.Username,
		"password": "not-the-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshToken(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/auth/register", "", registerBody("alice", "1990-06-15"))
	require.Equal(t, http.StatusCreated, w.Code)

	var registered struct {
		Tokens struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		} `json:"tokens"`
	}
	decodeBody(t, w, &registered)

	w = doRequest(r, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{
		"refresh": registered.Tokens.Refresh,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var refreshed map[string]string
	decodeBody(t, w, &refreshed)
	assert.NotEmpty(t, refreshed["access"])

	// An access token is not accepted in place of a refresh token.
	w = doRequest(r, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{
		"refresh": registered.Tokens.Access,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshTokenNotUsableAsBearer(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/auth/register", "", registerBody("alice", "1990-06-15"))
	require.Equal(t, http.StatusCreated, w.Code)

	var registered struct {
		Tokens struct {
			Refresh string `json:"refresh"`
		} `json:"tokens"`
	}
	decodeBody(t, w, &registered)

	w = doRequest(r, http.MethodGet, "/api/auth/me", registered.Tokens.Refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	r := newTestRouter(t)
	user, token := createTestUser(t, "alice", false)

	w := doRequest(r, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, user.Username, resp.User.Username)
}

func TestUnauthenticatedRejected(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/auth/me", "/api/projects", "/api/users", "/api/issues"} {
		w := doRequest(r, http.MethodGet, path, "", nil)
		assert.Equalf(t, http.StatusUnauthorized, w.Code, "path %s", path)
	}

	w := doRequest(r, http.MethodGet, "/api/projects", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
