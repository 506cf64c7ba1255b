package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.OK("Registration successful", authResponse(result)))
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Login successful", authResponse(result)))
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(dto.OK("", userResponse(principal.User)))
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:      userResponse(result.User),
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
	}
}
