package analysis

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medrecords-backend/internal/records"
	"medrecords-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze-record", h.analyzeRecord)
	rg.GET("/analysis-result/:patient_id", h.getResult)
}

func (h *Handler) analyzeRecord(c *gin.Context) {
	var body records.PatientCase
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if body.Patient.Age <= 0 || body.Patient.Gender == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "age and gender are required", []map[string]string{
			{"field": "patient_info", "issue": "age and gender must be set"},
		})
		return
	}
	if len(body.Symptoms.Primary) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one primary symptom is required", nil)
		return
	}

	result, err := h.Svc.SubmitSingleCase(c.Request.Context(), body)
	if err != nil {
		var gerr *GatewayError
		if errors.As(err, &gerr) {
			respond.Error(c, http.StatusBadGateway, "gateway_error", "AI analysis failed after retries", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze record", nil)
		return
	}

	respond.JSON(c, http.StatusOK, result)
}

func (h *Handler) getResult(c *gin.Context) {
	patientID := c.Param("patient_id")
	if patientID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "patient id is required", nil)
		return
	}

	result, err := h.Svc.GetResult(c.Request.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis result not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis result", nil)
		return
	}

	respond.JSON(c, http.StatusOK, result)
}
