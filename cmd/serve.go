package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"account-sync/core/config"
	"account-sync/core/database"
	"account-sync/core/loader"
	"account-sync/core/logger"
	"account-sync/core/middleware/auth"
	"account-sync/core/middleware/rayid"
	"account-sync/core/storage"

	"account-sync/feature/history"
	"account-sync/feature/snapshot"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history and snapshots over HTTP",
	Long: `Starts a read-only HTTP API over past sync runs (database) and inventory
snapshots (object storage). Each backend is optional; its routes are only
mounted when it is reachable.`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Sync()
	zap.ReplaceGlobals(logg)

	// Optional backends
	var db *gorm.DB
	if conn, err := database.Connect(cfg.Database); err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
	} else {
		db = conn
		logg.Info("Connected to history database", zap.String("driver", cfg.Database.Driver))
	}

	var store storage.Client
	if client, err := storage.NewClient(cfg.Storage); err != nil {
		logg.Warn("Optional storage client failed", zap.Error(err))
	} else {
		store = client
	}

	app := newServer(cfg, logg, db, store)

	go func() {
		logg.Info("Starting server", zap.String("addr", cfg.Server.Addr()))
		if err := app.Listen(cfg.Server.Addr()); err != nil {
			logg.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logg.Info("Shutting down server...")
	return app.Shutdown()
}

// newServer builds the fiber app with middleware and every enabled feature.
func newServer(cfg *config.Config, logg *zap.Logger, db *gorm.DB, store storage.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	mgr := loader.NewManager(logg)
	mgr.Register(history.NewFeature(db, logg))
	mgr.Register(snapshot.NewFeature(store, cfg.Storage, logg))

	// RayID first so every later log line carries it
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

	if err := mgr.LoadAll(app); err != nil {
		logg.Error("Failed to load features", zap.Error(err))
	}
	return app
}
