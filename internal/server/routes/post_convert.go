package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/OFFIS-RIT/tabula/backend/internal/catalog"
	"github.com/OFFIS-RIT/tabula/backend/internal/convert"
	"github.com/OFFIS-RIT/tabula/backend/internal/queue"
	"github.com/OFFIS-RIT/tabula/backend/internal/report"
	"github.com/OFFIS-RIT/tabula/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula/backend/internal/util"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

// ConvertHandler converts an uploaded CSV or JSON file to Parquet.
func ConvertHandler(c echo.Context) error {
	type convertResponse struct {
		Message       string         `json:"message"`
		InputFile     string         `json:"input_file"`
		OutputFile    string         `json:"output_file"`
		RowsConverted int            `json:"rows_converted"`
		FileSize      int64          `json:"file_size"`
		Bucket        string         `json:"bucket"`
		URL           string         `json:"url"`
		SummaryJob    string         `json:"summary_job,omitempty"`
		Summary       *report.Result `json:"summary,omitempty"`
	}

	fh, err := c.FormFile("file")
	if err != nil || fh.Filename == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No file selected"})
	}
	if !util.AllowedFile(fh.Filename) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid file type. Only CSV and JSON files are allowed."})
	}

	upload, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Could not read uploaded file"})
	}
	defer upload.Close()

	app := middleware.GetApp(c)
	ctx := c.Request().Context()

	res, err := app.Converter.Convert(ctx, fh.Filename, upload)
	if err != nil {
		switch {
		case errors.Is(err, convert.ErrInvalidFile):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid file type. Only CSV and JSON files are allowed."})
		case errors.Is(err, convert.ErrStorage):
			logger.Error("Failed to store converted file", "file", fh.Filename, "err", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("Storage error: %v", err)})
		}
		logger.Error("Failed to convert upload", "file", fh.Filename, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("Conversion failed: %v", err)})
	}

	if app.Catalog != nil {
		err := app.Catalog.RecordUpload(ctx, catalog.Upload{
			Key:        res.OutputFile,
			SourceFile: res.InputFile,
			Rows:       res.Rows,
			Columns:    res.Columns,
			SizeBytes:  res.Size,
		})
		if err != nil {
			logger.Error("Failed to record upload", "key", res.OutputFile, "err", err)
		}
	}

	out := convertResponse{
		Message:       res.Message(),
		InputFile:     res.InputFile,
		OutputFile:    res.OutputFile,
		RowsConverted: res.Rows,
		FileSize:      res.Size,
		Bucket:        res.Bucket,
		URL:           res.URL,
	}

	if summarize, _ := strconv.ParseBool(c.FormValue("summarize")); summarize {
		if app.Queue != nil {
			id, err := queue.PublishSummary(app.Queue, queue.SummaryMessage{Key: res.OutputFile})
			if err != nil {
				logger.Error("Failed to enqueue summary", "key", res.OutputFile, "err", err)
			}
			out.SummaryJob = id
		} else {
			result, err := app.Reports.Process(ctx, res.OutputFile, report.Options{})
			if err != nil {
				result = report.ErrorResult(err)
			}
			out.Summary = result
		}
	}

	return c.JSON(http.StatusOK, out)
}
