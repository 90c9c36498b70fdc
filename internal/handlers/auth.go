package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vaultledger/internal/config"
	"vaultledger/internal/models"
	"vaultledger/internal/services/auth"
	"vaultledger/internal/utils"
)

type AuthHandler struct {
	authService auth.Service
	log         *zap.Logger
}

func NewAuthHandler(authService auth.Service, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// RegisterUser creates an account and pays the signup bonus.
func (h *AuthHandler) RegisterUser(c *fiber.Ctx) error {
	var input auth.RegisterRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	session, err := h.authService.Register(c.UserContext(), input)
	if err != nil {
		return utils.HandleError(c, err)
	}

	h.setAuthCookies(c, session.AccessToken, session.RefreshToken)
	return utils.Respond(c, fiber.StatusCreated, sessionBody(session))
}

// LoginUser handles user authentication and returns JWT tokens
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	if input.Email == "" || input.Password == "" {
		return utils.BadRequest(c, "Email and password are required")
	}

	session, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return utils.HandleError(c, err)
	}

	h.setAuthCookies(c, session.AccessToken, session.RefreshToken)
	return utils.Success(c, sessionBody(session))
}

// RefreshToken handles token refresh requests
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	// cookie first, then body
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&input); err != nil {
			return utils.Unauthorized(c, "Refresh token not provided")
		}
		refreshToken = input.RefreshToken
	}

	if refreshToken == "" {
		return utils.Unauthorized(c, "Refresh token not provided")
	}

	access, refresh, err := h.authService.RefreshTokens(c.UserContext(), refreshToken)
	if err != nil {
		h.log.Info("token refresh failed", zap.Error(err))
		return utils.Unauthorized(c, "Invalid refresh token")
	}

	h.setAuthCookies(c, access, refresh)
	return utils.Success(c, fiber.Map{
		"token":         access,
		"refresh_token": refresh,
	})
}

// LogoutUser invalidates every token issued to the caller.
func (h *AuthHandler) LogoutUser(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.authService.Logout(c.UserContext(), claims.UserID); err != nil {
		return utils.HandleError(c, err)
	}

	h.clearAuthCookies(c)
	return utils.Success(c, fiber.Map{
		"message": "Successfully logged out",
	})
}

// ChangePassword handles password change requests
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.authService.ChangePassword(c.UserContext(), claims.UserID, input.OldPassword, input.NewPassword); err != nil {
		h.log.Info("password change failed", zap.Uint("account_id", claims.UserID), zap.Error(err))
		return utils.HandleError(c, err)
	}

	h.clearAuthCookies(c)
	return utils.Success(c, fiber.Map{
		"message": "Password changed successfully",
	})
}

func sessionBody(s *auth.Session) fiber.Map {
	return fiber.Map{
		"access_token":  s.AccessToken,
		"refresh_token": s.RefreshToken,
		"user": fiber.Map{
			"id":            s.Account.ID,
			"email":         s.Account.Email,
			"name":          s.Account.Name,
			"role":          s.Account.Role,
			"referral_code": s.Account.ReferralCode,
			"permissions":   models.GetDefaultPermissions(s.Account.Role),
		},
	}
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Expires:  time.Now().Add(15 * time.Minute),
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		SameSite: "Strict",
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		SameSite: "Strict",
		Path:     "/api/refresh",
	})
}

func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			Secure:   config.IsProduction(),
			Path:     "/",
		})
	}
}
