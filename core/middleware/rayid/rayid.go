package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// Header is the request and response header carrying the ray id.
	Header = "X-Ray-ID"
	// LocalKey is the fiber.Ctx locals key the id is stored under.
	LocalKey = "ray_id"
)

// New returns a middleware that tags every request with a ray id. An incoming
// X-Ray-ID header is reused, otherwise a UUID is generated.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(LocalKey, id)
		c.Set(Header, id)
		return c.Next()
	}
}
