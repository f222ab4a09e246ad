package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, token string) *fiber.App {
	t.Helper()
	t.Setenv("REWARDS_SERVICE_TOKEN", token)

	app := fiber.New()
	app.Use(GatewayAuthMiddleware())
	app.Use(UserContextMiddleware())
	app.Get("/public", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/s/progress", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	app.Get("/s/admin/drops", RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendString("admin ok")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestGatewayAuth(t *testing.T) {
	app := newApp(t, "secret-token")

	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/public", nil))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/public", map[string]string{
		"Authorization": "Bearer wrong",
	}))
	assert.Equal(t, fiber.StatusOK, get(t, app, "/public", map[string]string{
		"Authorization": "Bearer secret-token",
	}))
	// Unprefixed token from the gateway is accepted too.
	assert.Equal(t, fiber.StatusOK, get(t, app, "/public", map[string]string{
		"Authorization": "secret-token",
	}))
}

func TestUserContextRequiredOnSecuredPaths(t *testing.T) {
	app := newApp(t, "secret-token")
	auth := map[string]string{"Authorization": "Bearer secret-token"}

	assert.Equal(t, fiber.StatusOK, get(t, app, "/public", auth))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/s/progress", auth))

	assert.Equal(t, fiber.StatusOK, get(t, app, "/s/progress", map[string]string{
		"Authorization": "Bearer secret-token",
		"X-User-ID":     "u1",
	}))
}

func TestRequireRole(t *testing.T) {
	app := newApp(t, "secret-token")

	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/s/admin/drops", map[string]string{
		"Authorization": "Bearer secret-token",
		"X-User-ID":     "u1",
	}))
	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/s/admin/drops", map[string]string{
		"Authorization": "Bearer secret-token",
		"X-User-ID":     "u1",
		"X-User-Roles":  "editor, viewer",
	}))
	assert.Equal(t, fiber.StatusOK, get(t, app, "/s/admin/drops", map[string]string{
		"Authorization": "Bearer secret-token",
		"X-User-ID":     "u1",
		"X-User-Roles":  "editor, admin",
	}))
}
