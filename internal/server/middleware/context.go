package middleware

import (
	"context"

	"github.com/OFFIS-RIT/tabula/backend/internal/catalog"
	"github.com/OFFIS-RIT/tabula/backend/internal/convert"
	"github.com/OFFIS-RIT/tabula/backend/internal/queue"
	"github.com/OFFIS-RIT/tabula/backend/internal/storage"
	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"

	"github.com/labstack/echo/v4"
)

// Catalog is the read and upload side of catalog.Store.
type Catalog interface {
	RecordUpload(ctx context.Context, u catalog.Upload) error
	Get(ctx context.Context, key string) (*catalog.Dataset, error)
	List(ctx context.Context, limit, offset int) ([]catalog.Dataset, error)
	Search(ctx context.Context, embedding []float32, limit int) ([]catalog.Match, error)
}

type App struct {
	Store     storage.ObjectStore
	Converter *convert.Converter
	Reports   queue.Processor

	// Optional services; nil when not configured.
	Catalog  Catalog
	Embedder ai.Embedder
	Queue    queue.Channel
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}

// GetApp returns the App attached by AppContextMiddleware.
func GetApp(c echo.Context) *App {
	return c.(*AppContext).App
}

var _ Catalog = (*catalog.Store)(nil)
