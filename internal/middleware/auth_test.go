package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/utils"
)

const testSecret = "middleware-secret"

type versions map[uint]int

func (v versions) GetTokenVersion(ctx context.Context, id uint) (int, error) {
	ver, ok := v[id]
	if !ok {
		return 0, apperrors.ErrAccountNotFound
	}
	return ver, nil
}

func newApp(v versions) *fiber.App {
	app := fiber.New()
	auth := NewAuthMiddleware(v, testSecret, nil)
	app.Get("/me", auth.Handler, HasPermission(models.PermissionWalletRead), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/admin", auth.Handler, AdminAuthMiddleware, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func token(t *testing.T, id uint, role string, version int) string {
	t.Helper()
	access, _, err := utils.GenerateTokens(testSecret, &models.UserClaims{
		UserID:       id,
		Email:        "ada@example.com",
		Role:         role,
		Permissions:  models.GetDefaultPermissions(role),
		TokenVersion: version,
	})
	require.NoError(t, err)
	return access
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp(versions{1: 2, 9: 1})

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", fiber.StatusUnauthorized},
		{"not bearer", "/me", "Token abc", fiber.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc", fiber.StatusUnauthorized},
		{"valid", "/me", "Bearer " + token(t, 1, models.RoleUser, 2), fiber.StatusOK},
		{"stale version", "/me", "Bearer " + token(t, 1, models.RoleUser, 1), fiber.StatusUnauthorized},
		{"unknown account", "/me", "Bearer " + token(t, 5, models.RoleUser, 1), fiber.StatusUnauthorized},
		{"user on admin route", "/admin", "Bearer " + token(t, 1, models.RoleUser, 2), fiber.StatusForbidden},
		{"admin", "/admin", "Bearer " + token(t, 9, models.RoleAdmin, 1), fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
