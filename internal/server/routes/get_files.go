package routes

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula/backend/internal/storage"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ListFilesHandler lists every object in the bucket.
func ListFilesHandler(c echo.Context) error {
	type fileEntry struct {
		Filename     string  `json:"filename"`
		Size         int64   `json:"size"`
		LastModified *string `json:"last_modified"`
		DownloadURL  string  `json:"download_url"`
	}
	type listFilesResponse struct {
		Bucket     string      `json:"bucket"`
		Files      []fileEntry `json:"files"`
		TotalFiles int         `json:"total_files"`
	}

	app := middleware.GetApp(c)
	ctx := c.Request().Context()

	objects, err := app.Store.List(ctx, "")
	if err != nil {
		logger.Error("Failed to list files", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("Failed to list files: %v", err)})
	}

	files := make([]fileEntry, 0, len(objects))
	for _, obj := range objects {
		entry := fileEntry{Filename: obj.Key, Size: obj.Size}
		if !obj.LastModified.IsZero() {
			ts := obj.LastModified.Format(time.RFC3339)
			entry.LastModified = &ts
		}
		link, err := app.Store.URL(ctx, obj.Key)
		if err != nil {
			logger.Warn("Failed to build download link", "key", obj.Key, "err", err)
		}
		entry.DownloadURL = link
		files = append(files, entry)
	}

	return c.JSON(http.StatusOK, listFilesResponse{
		Bucket:     app.Store.Bucket(),
		Files:      files,
		TotalFiles: len(files),
	})
}

// DownloadHandler streams a stored object as an attachment.
func DownloadHandler(c echo.Context) error {
	filename := c.Param("filename")
	if filename == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No file selected"})
	}

	app := middleware.GetApp(c)
	data, err := app.Store.Get(c.Request().Context(), filename)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("File not found or storage error: %v", err)})
	}
	if err != nil {
		logger.Error("Failed to download file", "key", filename, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("Download failed: %v", err)})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}
