package batch

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"medrecords-backend/internal/shared/server/middleware"
	"medrecords-backend/internal/shared/server/respond"
	"medrecords-backend/internal/shared/storage/object"
	"medrecords-backend/internal/shared/telemetry"
	"medrecords-backend/internal/tabular"
)

// Handler wires HTTP handlers to the batch coordinator.
type Handler struct {
	Coord *Coordinator
	Store object.Store
}

// NewHandler constructs a Handler. Store may be nil, which disables
// upload archiving and CSV export archiving.
func NewHandler(coord *Coordinator, store object.Store) *Handler {
	return &Handler{Coord: coord, Store: store}
}

// RegisterRoutes attaches batch routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload-analyze-csv", h.uploadAnalyzeCSV)
	rg.GET("/batch-analysis-status/:batch_id", h.getStatus)
	rg.GET("/batch-results/:batch_id", h.getResults)
}

func (h *Handler) uploadAnalyzeCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "a CSV file is required in the 'file' field", nil)
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only .csv files are supported", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read uploaded file", nil)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read uploaded file", nil)
		return
	}

	if h.Store != nil {
		saved, serr := h.Store.Save(c.Request.Context(), "uploads", fileHeader.Filename, bytes.NewReader(buf.Bytes()))
		if serr != nil {
			telemetry.Warn("batch.upload_archive_failed", map[string]any{"file": fileHeader.Filename, "error": serr.Error()})
		} else {
			telemetry.Info("batch.upload_archived", map[string]any{"key": saved.Key, "size": saved.Size})
		}
	}

	table, err := tabular.Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		if errors.Is(err, tabular.ErrEmptyTable) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "CSV file is empty", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", fmt.Sprintf("failed to parse CSV: %v", err), nil)
		return
	}

	result, err := h.Coord.Submit(c.Request.Context(), table, middleware.RequestIDFromContext(c))
	if err != nil {
		var nvc *NoValidCasesError
		if errors.As(err, &nvc) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "no valid records found in CSV", nvc.Errors)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start batch analysis", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"message":           "CSV uploaded and batch analysis started",
		"batch_id":          result.BatchID,
		"total_records":     result.TotalRecords,
		"valid_records":     result.ValidRecords,
		"conversion_errors": result.ConversionErrors,
		"errors":            result.Errors,
		"status":            result.Status,
		"check_status_url":  "/api/v1/batch-analysis-status/" + result.BatchID,
	})
}

func (h *Handler) getStatus(c *gin.Context) {
	batchID := c.Param("batch_id")

	job, err := h.Coord.GetStatus(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Batch not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch batch status", nil)
		return
	}

	respond.JSON(c, http.StatusOK, job)
}

func (h *Handler) getResults(c *gin.Context) {
	batchID := c.Param("batch_id")
	format := c.DefaultQuery("format", "json")

	job, outcomes, err := h.Coord.Results(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Batch not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch batch results", nil)
		return
	}

	switch format {
	case "json":
		respond.JSON(c, http.StatusOK, gin.H{
			"batch":   job,
			"results": outcomes,
		})
	case "csv":
		var buf bytes.Buffer
		if err := WriteResultsCSV(&buf, outcomes); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render CSV export", nil)
			return
		}
		if h.Store != nil {
			key := "exports/batch_" + batchID + "/results.csv"
			if _, serr := h.Store.SaveWithKey(c.Request.Context(), key, "text/csv", bytes.NewReader(buf.Bytes())); serr != nil {
				telemetry.Warn("batch.export_archive_failed", map[string]any{"batchId": batchID, "error": serr.Error()})
			}
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=batch_%s_results.csv", batchID))
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "format must be 'json' or 'csv'", nil)
	}
}
