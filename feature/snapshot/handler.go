package snapshot

import (
	"errors"

	"account-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for snapshots.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the snapshot routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/snapshots")
	group.Get("/", h.HandleList)
	group.Get("/:name", h.HandleGet)
}

// HandleList returns every stored snapshot, oldest first.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	infos, err := h.service.List(c.Context())
	if err != nil {
		l.Error("Failed to list snapshots", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if infos == nil {
		infos = []Info{}
	}
	return c.JSON(infos)
}

// HandleGet returns one snapshot.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	name := c.Params("name")
	l := logger.WithRayID(h.service.logger, c)

	snap, err := h.service.Load(c.Context(), name)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Failed to load snapshot", zap.String("name", name), zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(snap)
}
