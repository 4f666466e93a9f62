package apitest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := newServer(t, Config{Clock: fixedClock()})
	require.NoError(t, s.AddStaff("mod", "hunter2"))
	require.NoError(t, s.AddMember("carol", "pass"))
	return s
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func call(t *testing.T, s *Server, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func claimGuest(t *testing.T, s *Server, name string) string {
	t.Helper()
	resp, raw := call(t, s, http.MethodPost, "/api/guest-login/", "", models.GuestLoginRequest{Username: name})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var out models.GuestLoginResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	require.True(t, strings.HasPrefix(out.AuthToken, "Bearer "))
	return out.AuthToken
}

func createPost(t *testing.T, s *Server, auth, content string) models.Post {
	t.Helper()
	resp, raw := call(t, s, http.MethodPost, "/api/posts/", auth, models.CreatePostRequest{Content: content})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var p models.Post
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func TestGuestLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		user   string
		status int
	}{
		{name: "fresh name", user: "nova", status: http.StatusOK},
		{name: "reserved name", user: "Admin", status: http.StatusBadRequest},
		{name: "password account", user: "carol", status: http.StatusBadRequest},
		{name: "blank", user: "   ", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)
			resp, _ := call(t, s, http.MethodPost, "/api/guest-login/", "", models.GuestLoginRequest{Username: tt.user})
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestGuestLogin_ReclaimAndMe(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	first := claimGuest(t, s, "nova")
	second := claimGuest(t, s, "nova")
	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)

	resp, raw := call(t, s, http.MethodGet, "/api/me/", second, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.MeResponse
	require.NoError(t, json.Unmarshal(raw, &me))
	assert.Equal(t, "nova", me.Username)
	assert.False(t, me.IsStaff)
}

func TestMe_BasicAuth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	resp, raw := call(t, s, http.MethodGet, "/api/me/", basic("mod", "hunter2"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.MeResponse
	require.NoError(t, json.Unmarshal(raw, &me))
	assert.Equal(t, "mod", me.Username)
	assert.True(t, me.IsStaff)

	resp, _ = call(t, s, http.MethodGet, "/api/me/", basic("mod", "wrong"), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, s, http.MethodGet, "/api/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, s, http.MethodGet, "/api/me/", "Bearer not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPosts_CreateListAndLike(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	nova := claimGuest(t, s, "nova")
	older := createPost(t, s, nova, "first")
	newer := createPost(t, s, nova, "second")
	assert.Equal(t, "nova", newer.Author.Username)

	resp, _ := call(t, s, http.MethodPost, "/api/posts/", "", models.CreatePostRequest{Content: "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, s, http.MethodPost, "/api/posts/"+itoa(older.ID)+"/like/", nova, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, raw := call(t, s, http.MethodGet, "/api/posts/", nova, nil)
	var posts []models.Post
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 2)
	assert.Equal(t, newer.ID, posts[0].ID)
	assert.Equal(t, 1, posts[1].LikesCount)
	assert.True(t, posts[1].IsLiked)

	_, raw = call(t, s, http.MethodGet, "/api/posts/", "", nil)
	require.NoError(t, json.Unmarshal(raw, &posts))
	assert.False(t, posts[1].IsLiked)
	assert.Equal(t, 1, posts[1].LikesCount)

	// toggling again removes the like
	call(t, s, http.MethodPost, "/api/posts/"+itoa(older.ID)+"/like/", nova, nil)
	_, raw = call(t, s, http.MethodGet, "/api/posts/", nova, nil)
	require.NoError(t, json.Unmarshal(raw, &posts))
	assert.Zero(t, posts[1].LikesCount)
}

func TestCommentTree(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	nova := claimGuest(t, s, "nova")
	p := createPost(t, s, nova, "hello")
	base := "/api/posts/" + itoa(p.ID)

	resp, raw := call(t, s, http.MethodPost, base+"/comments/", nova, models.CreateCommentRequest{Content: "top"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var top models.Comment
	require.NoError(t, json.Unmarshal(raw, &top))
	assert.Nil(t, top.Parent)

	resp, raw = call(t, s, http.MethodPost, base+"/comments/", nova, models.CreateCommentRequest{Content: "child", Parent: &top.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var child models.Comment
	require.NoError(t, json.Unmarshal(raw, &child))

	call(t, s, http.MethodPost, base+"/comments/", nova, models.CreateCommentRequest{Content: "grandchild", Parent: &child.ID})

	resp, _ = call(t, s, http.MethodPost, "/api/comments/"+itoa(child.ID)+"/like/", nova, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, raw = call(t, s, http.MethodGet, base+"/", nova, nil)
	var detail models.Post
	require.NoError(t, json.Unmarshal(raw, &detail))
	assert.Equal(t, 3, detail.CommentsCount)
	require.Len(t, detail.Comments, 1)
	require.Len(t, detail.Comments[0].Replies, 1)
	assert.True(t, detail.Comments[0].Replies[0].IsLiked)
	require.Len(t, detail.Comments[0].Replies[0].Replies, 1)
	assert.Equal(t, "grandchild", detail.Comments[0].Replies[0].Replies[0].Content)
}

func TestCreateComment_ForeignParent(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	nova := claimGuest(t, s, "nova")
	a := createPost(t, s, nova, "a")
	b := createPost(t, s, nova, "b")

	_, raw := call(t, s, http.MethodPost, "/api/posts/"+itoa(a.ID)+"/comments/", nova, models.CreateCommentRequest{Content: "on a"})
	var onA models.Comment
	require.NoError(t, json.Unmarshal(raw, &onA))

	resp, _ := call(t, s, http.MethodPost, "/api/posts/"+itoa(b.ID)+"/comments/", nova, models.CreateCommentRequest{Content: "x", Parent: &onA.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeletePost_Permissions(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	nova := claimGuest(t, s, "nova")
	rex := claimGuest(t, s, "rex")
	p1 := createPost(t, s, nova, "one")
	p2 := createPost(t, s, nova, "two")

	resp, _ := call(t, s, http.MethodDelete, "/api/posts/"+itoa(p1.ID)+"/", rex, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, s, http.MethodDelete, "/api/posts/"+itoa(p1.ID)+"/", nova, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = call(t, s, http.MethodDelete, "/api/posts/"+itoa(p2.ID)+"/", basic("mod", "hunter2"), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = call(t, s, http.MethodGet, "/api/posts/"+itoa(p1.ID)+"/", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLeaderboard(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	nova := claimGuest(t, s, "nova")
	rex := claimGuest(t, s, "rex")
	p := createPost(t, s, nova, "hello")
	_, raw := call(t, s, http.MethodPost, "/api/posts/"+itoa(p.ID)+"/comments/", rex, models.CreateCommentRequest{Content: "hi"})
	var c models.Comment
	require.NoError(t, json.Unmarshal(raw, &c))

	call(t, s, http.MethodPost, "/api/posts/"+itoa(p.ID)+"/like/", rex, nil)
	call(t, s, http.MethodPost, "/api/posts/"+itoa(p.ID)+"/like/", basic("mod", "hunter2"), nil)
	call(t, s, http.MethodPost, "/api/comments/"+itoa(c.ID)+"/like/", nova, nil)

	_, raw = call(t, s, http.MethodGet, "/api/leaderboard/", "", nil)
	var board []models.LeaderboardEntry
	require.NoError(t, json.Unmarshal(raw, &board))
	require.GreaterOrEqual(t, len(board), 2)
	assert.Equal(t, "nova", board[0].Username)
	assert.Equal(t, 2, board[0].Karma)
	assert.Equal(t, 2, board[0].PostLikes)
	assert.Equal(t, "rex", board[1].Username)
	assert.Equal(t, 1, board[1].CommentLikes)
}

func TestFailureInjection(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.Fail(http.MethodGet, "/api/posts/", http.StatusServiceUnavailable)

	resp, raw := call(t, s, http.MethodGet, "/api/posts/", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, models.CodeInternal, body.Code)

	s.ClearFailures()
	resp, _ = call(t, s, http.MethodGet, "/api/posts/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Len(t, s.RequestsTo(http.MethodGet, "/api/posts/"), 2)
}

func TestRequests_RecordsAuthorization(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	call(t, s, http.MethodGet, "/api/me/", basic("mod", "hunter2"), nil)

	reqs := s.RequestsTo(http.MethodGet, "/api/me/")
	require.Len(t, reqs, 1)
	assert.Equal(t, basic("mod", "hunter2"), reqs[0].Authorization)

	s.ClearRequests()
	assert.Empty(t, s.Requests())
	call(t, s, http.MethodGet, "/api/me/", "", nil)
	assert.Len(t, s.RequestsTo(http.MethodGet, "/api/me/"), 1)
}

func TestSeed(t *testing.T) {
	t.Parallel()

	s := newServer(t, Config{})
	require.NoError(t, s.Seed(SeedOptions{Users: 4, Posts: 5, MaxDepth: 2, Seed: 42}))
	n, err := s.PostCount()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, raw := call(t, s, http.MethodGet, "/api/posts/", "", nil)
	var posts []models.Post
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 5)
	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt), "posts are newest first")
	}

	_, raw = call(t, s, http.MethodGet, "/api/leaderboard/", "", nil)
	var board []models.LeaderboardEntry
	require.NoError(t, json.Unmarshal(raw, &board))
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Karma, board[i].Karma)
	}
}

func TestTransport(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	resp, err := s.HTTPClient().Get(BaseURL + "/posts/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestServer_Middleware(t *testing.T) {
	t.Parallel()

	var seen []string
	s := newServer(t, Config{Middleware: []fiber.Handler{func(c *fiber.Ctx) error {
		seen = append(seen, utils.CopyString(c.Path()))
		return c.Next()
	}}})

	resp, _ := call(t, s, http.MethodGet, "/api/leaderboard/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"/api/leaderboard/"}, seen)
}
