package server

import (
	"github.com/OFFIS-RIT/tabula/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	// File routes
	e.POST("/convert-to-parquet", routes.ConvertHandler)
	e.GET("/list-files", routes.ListFilesHandler)
	e.GET("/download/:filename", routes.DownloadHandler)

	// Summary routes
	e.POST("/summaries/:filename", routes.SummarizeHandler)

	// Catalog routes
	e.GET("/datasets", routes.GetDatasetsHandler)
	e.GET("/datasets/search", routes.SearchDatasetsHandler)
	e.GET("/datasets/:filename", routes.GetDatasetHandler)
}
