package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/tabula/backend/internal/catalog"
	"github.com/OFFIS-RIT/tabula/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

var catalogUnavailable = errorResponse{Error: "Dataset catalog not available"}

func GetDatasetsHandler(c echo.Context) error {
	type getDatasetsParams struct {
		Limit  int `query:"limit" validate:"omitempty,gte=1,lte=500"`
		Offset int `query:"offset" validate:"omitempty,gte=0"`
	}

	params := new(getDatasetsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request params"})
	}
	if params.Limit == 0 {
		params.Limit = 50
	}

	app := middleware.GetApp(c)
	if app.Catalog == nil {
		return c.JSON(http.StatusServiceUnavailable, catalogUnavailable)
	}

	datasets, err := app.Catalog.List(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list datasets", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
	return c.JSON(http.StatusOK, datasets)
}

func GetDatasetHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	if app.Catalog == nil {
		return c.JSON(http.StatusServiceUnavailable, catalogUnavailable)
	}

	d, err := app.Catalog.Get(c.Request().Context(), c.Param("filename"))
	if errors.Is(err, catalog.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Dataset not found"})
	}
	if err != nil {
		logger.Error("Failed to get dataset", "key", c.Param("filename"), "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
	return c.JSON(http.StatusOK, d)
}

// SearchDatasetsHandler ranks summarized datasets by how close their
// descriptions are to the query text.
func SearchDatasetsHandler(c echo.Context) error {
	type searchParams struct {
		Query string `query:"q" validate:"required"`
		Limit int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	}

	params := new(searchParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request params"})
	}
	if params.Limit == 0 {
		params.Limit = 10
	}

	app := middleware.GetApp(c)
	if app.Catalog == nil || app.Embedder == nil {
		return c.JSON(http.StatusServiceUnavailable, catalogUnavailable)
	}

	ctx := c.Request().Context()
	vec, err := app.Embedder.GenerateEmbedding(ctx, []byte(params.Query))
	if err != nil {
		logger.Error("Failed to embed search query", "err", err)
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "Failed to embed query"})
	}

	matches, err := app.Catalog.Search(ctx, vec, params.Limit)
	if err != nil {
		logger.Error("Failed to search datasets", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
	return c.JSON(http.StatusOK, matches)
}
