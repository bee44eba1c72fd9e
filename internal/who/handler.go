package who

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medrecords-backend/internal/shared/server/respond"
	"medrecords-backend/internal/shared/storage/object"
	"medrecords-backend/internal/shared/telemetry"
	"medrecords-backend/internal/tabular"
)

// Handler accepts WHO reference data uploads.
type Handler struct {
	Repo  Repo
	Store object.Store
}

// NewHandler constructs a Handler. Store may be nil, which disables
// upload archiving.
func NewHandler(repo Repo, store object.Store) *Handler {
	return &Handler{Repo: repo, Store: store}
}

// RegisterRoutes attaches WHO data routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload-who-data", h.upload)
	rg.GET("/who-data/:country", h.listByCountry)
}

func (h *Handler) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "a file is required in the 'file' field", nil)
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid file format. Only CSV files are allowed.", nil)
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
		if _, serr := h.Store.Save(c.Request.Context(), "who", fileHeader.Filename, bytes.NewReader(buf.Bytes())); serr != nil {
			telemetry.Warn("who.upload_archive_failed", map[string]any{"file": fileHeader.Filename, "error": serr.Error()})
		}
	}

	table, err := tabular.Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		if errors.Is(err, tabular.ErrEmptyTable) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is empty", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to parse file", nil)
		return
	}

	indicators := extractIndicators(table)
	if len(indicators) > 0 {
		if err := h.Repo.SaveAll(c.Request.Context(), indicators); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Error uploading WHO data", nil)
			return
		}
	}

	telemetry.Info("who.uploaded", map[string]any{
		"file":   fileHeader.Filename,
		"rows":   len(table.Rows),
		"stored": len(indicators),
	})

	respond.JSON(c, http.StatusOK, gin.H{
		"message": "WHO data uploaded successfully",
		"data_info": UploadInfo{
			Filename:   fileHeader.Filename,
			Rows:       len(table.Rows),
			Columns:    table.Columns,
			Stored:     len(indicators),
			UploadTime: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (h *Handler) listByCountry(c *gin.Context) {
	country := c.Param("country")

	indicators, err := h.Repo.ListByCountry(c.Request.Context(), country)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch WHO data", nil)
		return
	}
	if indicators == nil {
		indicators = []Indicator{}
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"country":    country,
		"indicators": indicators,
	})
}

// extractIndicators keeps rows carrying the country/year/indicator/value
// shape; other rows are retained only in the archived file.
func extractIndicators(table tabular.Table) []Indicator {
	now := time.Now().UTC()
	var out []Indicator
	for _, row := range table.Rows {
		if !row.Has("country") || !row.Has("year") || !row.Has("indicator") || !row.Has("value") {
			continue
		}
		year, err := strconv.Atoi(row.Get("year"))
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(row.Get("value"), 64)
		if err != nil {
			continue
		}
		out = append(out, Indicator{
			ID:         uuid.NewString(),
			Country:    row.Get("country"),
			Year:       year,
			Indicator:  row.Get("indicator"),
			Value:      value,
			UploadedAt: now,
		})
	}
	return out
}
