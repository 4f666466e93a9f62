package apitest

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = errors.New("invalid credentials")

// issueGuestToken returns the full Authorization header value for a guest.
func (s *Server) issueGuestToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   username,
		"guest": true,
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return "Bearer " + signed, nil
}

// authenticate resolves an Authorization header to an account.
func (s *Server) authenticate(header string) (*account, error) {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || value == "" {
		return nil, errBadCredentials
	}

	switch scheme {
	case "Basic":
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, errBadCredentials
		}
		username, password, ok := strings.Cut(string(raw), ":")
		if !ok {
			return nil, errBadCredentials
		}
		acc, err := s.store.account(username)
		if err != nil {
			return nil, err
		}
		if acc == nil || acc.Guest {
			return nil, errBadCredentials
		}
		if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
			return nil, errBadCredentials
		}
		return acc, nil

	case "Bearer":
		token, err := jwt.Parse(value, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errBadCredentials
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			return nil, errBadCredentials
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, errBadCredentials
		}
		sub, ok := claims["sub"].(string)
		if !ok {
			return nil, errBadCredentials
		}
		acc, err := s.store.account(sub)
		if err != nil {
			return nil, err
		}
		if acc == nil || !acc.Guest {
			return nil, errBadCredentials
		}
		return acc, nil
	}

	return nil, errBadCredentials
}

// requireUser rejects requests without a valid credential.
func (s *Server) requireUser(c *fiber.Ctx) error {
	header := utils.CopyString(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return respondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Authorization header required"))
	}

	acc, err := s.authenticate(header)
	if errors.Is(err, errBadCredentials) {
		return respondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Invalid credentials"))
	}
	if err != nil {
		return respondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	c.Locals("username", acc.Username)
	c.Locals("isStaff", acc.IsStaff)
	return c.Next()
}

// optionalUser returns the caller's username, or "" for anonymous or invalid credentials.
func (s *Server) optionalUser(c *fiber.Ctx) string {
	header := utils.CopyString(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return ""
	}
	acc, err := s.authenticate(header)
	if err != nil {
		return ""
	}
	return acc.Username
}

// GuestLogin handles POST /api/guest-login/
func (s *Server) GuestLogin(c *fiber.Ctx) error {
	var req models.GuestLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Username is required"))
	}
	if _, reserved := reservedGuestNames[strings.ToLower(username)]; reserved {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Username is reserved"))
	}

	acc, err := s.store.claimGuest(username)
	if errors.Is(err, errNameTaken) {
		return respondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Username is taken"))
	}
	if err != nil {
		return respondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	token, err := s.issueGuestToken(username)
	if err != nil {
		return respondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(models.GuestLoginResponse{
		Username:  acc.Username,
		IsStaff:   acc.IsStaff,
		AuthToken: token,
	})
}

// Me handles GET /api/me/
func (s *Server) Me(c *fiber.Ctx) error {
	return c.JSON(models.MeResponse{
		Username: c.Locals("username").(string),
		IsStaff:  c.Locals("isStaff").(bool),
	})
}
