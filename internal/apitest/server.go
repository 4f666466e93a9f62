package apitest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"golang.org/x/crypto/bcrypt"
)

// reservedGuestNames cannot be claimed by guests.
var reservedGuestNames = map[string]struct{}{
	"admin":     {},
	"root":      {},
	"staff":     {},
	"moderator": {},
	"system":    {},
	"anonymous": {},
}

// Config controls a fake API instance.
type Config struct {
	// Secret signs guest tokens.
	Secret string
	// Clock overrides time.Now for created_at stamps.
	Clock func() time.Time
	// Middleware runs ahead of every route, e.g. request metrics.
	Middleware []fiber.Handler
	// Database is the sqlite DSN. Empty keeps everything in memory.
	Database string
}

// RecordedRequest is one request as seen by the fake API.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          string
}

// Server is the fake API. All exported methods are safe for concurrent use.
type Server struct {
	app    *fiber.App
	store  *store
	secret []byte

	mu       sync.Mutex
	failures map[string]int
	requests []RecordedRequest
}

// NewServer builds the fake API with its routes mounted under /api.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Secret == "" {
		cfg.Secret = "apitest-secret"
	}
	st, err := newStore(cfg.Database, cfg.Clock)
	if err != nil {
		return nil, err
	}
	s := &Server{
		store:    st,
		secret:   []byte(cfg.Secret),
		failures: make(map[string]int),
	}

	app := fiber.New(fiber.Config{
		AppName:               "agora fake API",
		DisableStartupMessage: true,
	})
	for _, mw := range cfg.Middleware {
		app.Use(mw)
	}
	app.Use(s.record)

	api := app.Group("/api")
	api.Get("/posts/", s.ListPosts)
	api.Post("/posts/", s.requireUser, s.CreatePost)
	api.Get("/posts/:id/", s.GetPost)
	api.Delete("/posts/:id/", s.requireUser, s.DeletePost)
	api.Post("/posts/:id/comments/", s.requireUser, s.CreateComment)
	api.Post("/posts/:id/like/", s.requireUser, s.LikePost)
	api.Post("/comments/:id/like/", s.requireUser, s.LikeComment)
	api.Post("/guest-login/", s.GuestLogin)
	api.Get("/me/", s.requireUser, s.Me)
	api.Get("/leaderboard/", s.Leaderboard)

	s.app = app
	return s, nil
}

// App returns the fiber app, e.g. to Listen on a port.
func (s *Server) App() *fiber.App {
	return s.app
}

// Close releases the database.
func (s *Server) Close() error {
	return s.store.close()
}

// PostCount reports how many posts exist.
func (s *Server) PostCount() (int64, error) {
	return s.store.postCount()
}

// AddStaff creates a password account with staff rights.
func (s *Server) AddStaff(username, password string) error {
	return s.addAccount(username, password, true)
}

// AddMember creates a non-staff password account.
func (s *Server) AddMember(username, password string) error {
	return s.addAccount(username, password, false)
}

func (s *Server) addAccount(username, password string, staff bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.savePasswordAccount(username, hash, staff); err != nil {
		return fmt.Errorf("save account %s: %w", username, err)
	}
	return nil
}

// Fail makes every request matching method and path (e.g. "/api/posts/1/like/")
// answer status until ClearFailures is called.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// ClearFailures removes all injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]int)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// ClearRequests forgets every recorded request, typically once fixtures
// have been seeded.
func (s *Server) ClearRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// RequestsTo returns recorded requests with the given method and path.
func (s *Server) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(c *fiber.Ctx) error {
	// fiber reuses request buffers once the handler returns.
	rec := RecordedRequest{
		Method:        utils.CopyString(c.Method()),
		Path:          utils.CopyString(c.Path()),
		Authorization: utils.CopyString(c.Get(fiber.HeaderAuthorization)),
		Body:          string(c.Body()),
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	status, fail := s.failures[rec.Method+" "+rec.Path]
	s.mu.Unlock()

	if fail {
		return respondWithError(c, status, models.NewInternalError(fmt.Errorf("injected failure")))
	}
	return c.Next()
}

// respondWithError creates a standardized error response
func respondWithError(c *fiber.Ctx, status int, err error) error {
	response := models.ErrorResponse{Error: err.Error()}
	if appErr, ok := err.(*models.AppError); ok {
		response = models.ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	}
	return c.Status(status).JSON(response)
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return int64(id), true
}

// storeError maps a store failure onto a response.
func storeError(c *fiber.Ctx, resource string, id int64, err error) error {
	switch {
	case errors.Is(err, errNotFound):
		return respondWithError(c, fiber.StatusNotFound, models.NewNotFoundError(resource, id))
	case errors.Is(err, errForbidden):
		return respondWithError(c, fiber.StatusForbidden, models.NewUnauthorizedError("Not allowed to delete this post"))
	case errors.Is(err, errForeignParent):
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Parent comment does not belong to this post"))
	}
	return respondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// ListPosts handles GET /api/posts/
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.store.listPosts(s.optionalUser(c))
	if err != nil {
		return storeError(c, "Post", 0, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts/
func (s *Server) CreatePost(c *fiber.Ctx) error {
	username := c.Locals("username").(string)

	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Content is required"))
	}

	p, err := s.store.createPost(username, req.Content)
	if err != nil {
		return storeError(c, "Post", 0, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// GetPost handles GET /api/posts/:id/
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid ID"))
	}

	p, err := s.store.getPost(id, s.optionalUser(c))
	if err != nil {
		return storeError(c, "Post", id, err)
	}
	return c.JSON(p)
}

// DeletePost handles DELETE /api/posts/:id/
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid ID"))
	}
	username := c.Locals("username").(string)
	isStaff := c.Locals("isStaff").(bool)

	if err := s.store.deletePost(id, username, isStaff); err != nil {
		return storeError(c, "Post", id, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateComment handles POST /api/posts/:id/comments/
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid ID"))
	}
	username := c.Locals("username").(string)

	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Content is required"))
	}

	cm, err := s.store.createComment(id, req.Parent, username, req.Content)
	if err != nil {
		return storeError(c, "Post", id, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cm)
}

// LikePost handles POST /api/posts/:id/like/
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.toggleLike(c, targetPost, "Post")
}

// LikeComment handles POST /api/comments/:id/like/
func (s *Server) LikeComment(c *fiber.Ctx) error {
	return s.toggleLike(c, targetComment, "Comment")
}

func (s *Server) toggleLike(c *fiber.Ctx, kind, resource string) error {
	id, ok := parseID(c)
	if !ok {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid ID"))
	}
	username := c.Locals("username").(string)

	count, liked, err := s.store.toggleLike(kind, id, username)
	if err != nil {
		return storeError(c, resource, id, err)
	}
	return c.JSON(fiber.Map{"likes_count": count, "is_liked": liked})
}

// Leaderboard handles GET /api/leaderboard/
func (s *Server) Leaderboard(c *fiber.Ctx) error {
	entries, err := s.store.leaderboard()
	if err != nil {
		return storeError(c, "Leaderboard", 0, err)
	}
	return c.JSON(entries)
}
