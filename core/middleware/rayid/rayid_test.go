package rayid_test

import (
	"net/http/httptest"
	"testing"

	"account-sync/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(seen *string) *fiber.App {
	app := fiber.New()
	app.Use(rayid.New())
	app.Get("/", func(c *fiber.Ctx) error {
		*seen, _ = c.Locals(rayid.LocalKey).(string)
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestNewGeneratesID(t *testing.T) {
	var seen string
	resp, err := setupApp(&seen).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	id := resp.Header.Get(rayid.Header)
	_, parseErr := uuid.Parse(id)
	assert.NoError(t, parseErr)
	assert.Equal(t, id, seen)
}

func TestNewReusesIncomingID(t *testing.T) {
	var seen string
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(rayid.Header, "abc-123")

	resp, err := setupApp(&seen).Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(rayid.Header))
	assert.Equal(t, "abc-123", seen)
}
