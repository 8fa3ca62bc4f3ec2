package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/softdesk-dev/softdesk/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsPath(projectID uint) string {
	return fmt.Sprintf("/api/ws/%d", projectID)
}

func dialProjectEvents(t *testing.T, server *httptest.Server, projectID uint, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + wsPath(projectID)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		resp.Body.Close()
	})

	return conn
}

func TestBroadcastProjectEventWithoutSubscribers(t *testing.T) {
	setupTestDB(t)

	// No socket has subscribed to this project; the broadcast is a no-op.
	assert.NotPanics(t, func() {
		handlers.BroadcastProjectEvent(42, "issue_created", map[string]interface{}{"id": 1})
	})
}

func TestProjectEventsRequiresMembership(t *testing.T) {
	r := newTestRouter(t)

	alice, _ := createTestUser(t, "alice", false)
	_, bobToken := createTestUser(t, "bob", false)
	project := createTestProject(t, alice, "Private project")

	w := doRequest(r, http.MethodGet, wsPath(project.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjectEventsUnknownProjectNotFound(t *testing.T) {
	r := newTestRouter(t)

	_, token := createTestUser(t, "alice", false)

	w := doRequest(r, http.MethodGet, wsPath(4242), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectEventsConcurrentBroadcasts(t *testing.T) {
	r := newTestRouter(t)

	alice, token := createTestUser(t, "alice", false)
	project := createTestProject(t, alice, "Streamed project")

	server := httptest.NewServer(r)
	defer server.Close()

	conn := dialProjectEvents(t, server, project.ID, token)

	var welcome map[string]interface{}
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "connected", welcome["type"])

	// Broadcasts come in on arbitrary request goroutines; the write pump must
	// serialize them into well-formed frames.
	const writers = 16

	var wg sync.WaitGroup
	wg.Add(writers)

	for i := 0; i < writers; i++ {
		go func(n int) {
			defer wg.Done()
			handlers.BroadcastProjectEvent(project.ID, "issue_created", map[string]interface{}{"id": n})
		}(i)
	}

	wg.Wait()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for i := 0; i < writers; i++ {
		var event map[string]interface{}
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, "issue_created", event["type"])
		assert.Equal(t, float64(project.ID), event["project_id"])
	}
}
