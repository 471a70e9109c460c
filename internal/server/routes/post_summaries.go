package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/tabula/backend/internal/report"
	"github.com/OFFIS-RIT/tabula/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula/backend/internal/storage"
	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula/backend/pkg/profile"

	"github.com/labstack/echo/v4"
)

// SummarizeHandler runs the summary pipeline for a stored Parquet file.
func SummarizeHandler(c echo.Context) error {
	type summarizeParams struct {
		Filename string `param:"filename" validate:"required"`
		Mode     string `query:"mode" form:"mode" json:"mode" validate:"omitempty,oneof=default columns llm"`
		Samples  int    `query:"samples" form:"samples" json:"samples" validate:"omitempty,gte=1,lte=50"`
	}

	params := new(summarizeParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request params"})
	}
	if err := new(echo.DefaultBinder).BindQueryParams(c, params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request params"})
	}

	app := middleware.GetApp(c)
	res, err := app.Reports.Process(c.Request().Context(), params.Filename, report.Options{
		Mode:    profile.Mode(params.Mode),
		Samples: params.Samples,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, storage.ErrObjectNotFound):
			status = http.StatusNotFound
		case errors.Is(err, profile.ErrUnknownMode):
			status = http.StatusBadRequest
		case errors.Is(err, dataset.ErrMalformed):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, profile.ErrGeneration):
			status = http.StatusBadGateway
		default:
			logger.Error("Failed to summarize file", "key", params.Filename, "err", err)
		}
		return c.JSON(status, report.ErrorResult(err))
	}

	return c.JSON(http.StatusOK, res)
}
