package history

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature serves the run history API.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the history feature. A nil db disables it.
func NewFeature(db *gorm.DB, logger *zap.Logger) *Feature {
	if db == nil {
		return &Feature{}
	}
	svc := NewService(db, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "history"
}

// IsEnabled reports whether a history database is connected.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load migrates the history tables and registers the routes.
func (f *Feature) Load(app fiber.Router) error {
	if err := f.service.Migrate(); err != nil {
		return err
	}
	f.handler.RegisterRoutes(app)
	return nil
}
