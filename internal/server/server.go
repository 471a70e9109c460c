package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/tabula/backend/internal/config"
	"github.com/OFFIS-RIT/tabula/backend/internal/convert"
	"github.com/OFFIS-RIT/tabula/backend/internal/queue"
	mid "github.com/OFFIS-RIT/tabula/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance serving app.
func New(app *mid.App, bodyLimit string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))

	RegisterRoutes(e)
	return e
}

func Init(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.NewStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to init object store", "err", err)
	}

	aiClient, err := bootstrap.NewAIClient(cfg)
	if err != nil {
		logger.Fatal("Failed to init AI client", "err", err)
	}

	cat, err := bootstrap.OpenCatalog(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open dataset catalog", "err", err)
	}
	if cat != nil {
		defer cat.Close()
	}

	components, err := bootstrap.NewComponents(cfg, store, aiClient, cat, "server")
	if err != nil {
		logger.Fatal("Failed to init summary pipeline", "err", err)
	}

	app := &mid.App{
		Store:     store,
		Converter: convert.NewConverter(store, ""),
		Reports:   components.Pipeline,
		Embedder:  components.Embedder,
	}
	if cat != nil {
		app.Catalog = cat
	}

	if cfg.RabbitMQURL != "" {
		que, err := queue.Connect(ctx, cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", "err", err)
		}
		defer que.Close()
		ch, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, []string{queue.SummaryQueue}); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
		app.Queue = ch
	}

	e := New(app, cfg.MaxUploadSize)

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "bucket", store.Bucket())
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
