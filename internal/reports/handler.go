package reports

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medrecords-backend/internal/analysis"
	"medrecords-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the reports service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/doctor-report", h.generate)
	rg.GET("/doctor-report/:report_id", h.get)
	rg.GET("/doctor-report/:report_id/pdf", h.getPDF)
}

type generateRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
}

func (h *Handler) generate(c *gin.Context) {
	// IDs come from query params or a JSON body, whichever is present.
	req := generateRequest{
		PatientID: c.Query("patient_id"),
		DoctorID:  c.Query("doctor_id"),
	}
	if req.PatientID == "" && req.DoctorID == "" {
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	if req.PatientID == "" || req.DoctorID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "patient_id and doctor_id are required", nil)
		return
	}

	report, err := h.Svc.Generate(c.Request.Context(), req.PatientID, req.DoctorID)
	if err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis result not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate report", nil)
		return
	}

	respond.JSON(c, http.StatusOK, report)
}

func (h *Handler) get(c *gin.Context) {
	report, err := h.Svc.Get(c.Request.Context(), c.Param("report_id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Report not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		return
	}
	respond.JSON(c, http.StatusOK, report)
}

func (h *Handler) getPDF(c *gin.Context) {
	report, err := h.Svc.Get(c.Request.Context(), c.Param("report_id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Report not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		return
	}

	data, err := RenderPDF(report)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report PDF", nil)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", report.DisplayID))
	c.Data(http.StatusOK, "application/pdf", data)
}
