package snapshot

import (
	"account-sync/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature exposes stored snapshots over HTTP.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the snapshot feature. A nil client disables it.
func NewFeature(client storage.Client, cfg storage.Config, logger *zap.Logger) *Feature {
	if client == nil {
		return &Feature{}
	}
	svc := NewService(client, cfg, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "snapshots"
}

// IsEnabled reports whether object storage is configured.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
