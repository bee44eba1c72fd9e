package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"medrecords-backend/internal/records"
)

func newTestRouter(client *fakeLLM) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := NewService(
		records.NewMemoryRepo(),
		NewMemoryRepo(),
		NewOrchestrator(client, FixedBackoff(3, time.Millisecond)),
	)

	r := gin.New()
	api := r.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api)
	return r
}

const analyzeBody = `{
	"patient_info": {
		"patient_id": "p7",
		"name": "Jane Roe",
		"age": 58,
		"gender": "female"
	},
	"symptoms": {
		"primary_symptoms": ["chest pain"],
		"severity": "severe"
	}
}`

func TestAnalyzeRecordEndpoint(t *testing.T) {
	r := newTestRouter(&fakeLLM{responses: []string{validResponse}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-record", strings.NewReader(analyzeBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got ClinicalAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PatientID != "p7" {
		t.Errorf("patient id = %q", got.PatientID)
	}
	if len(got.SuspectedConditions) == 0 {
		t.Error("empty conditions")
	}
}

func TestAnalyzeRecordValidation(t *testing.T) {
	r := newTestRouter(&fakeLLM{responses: []string{validResponse}})

	body := `{"patient_info": {"patient_id": "p1", "name": "x", "gender": "male"}, "symptoms": {"primary_symptoms": ["cough"]}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-record", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation_error") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAnalyzeRecordGatewayExhaustion(t *testing.T) {
	failing := &fakeLLM{errs: []error{
		errors.New("connection refused"),
		errors.New("connection refused"),
		errors.New("connection refused"),
	}}
	r := newTestRouter(failing)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-record", strings.NewReader(analyzeBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "gateway_error") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetAnalysisResult(t *testing.T) {
	r := newTestRouter(&fakeLLM{responses: []string{validResponse}})

	// Seed an analysis through the service path.
	seedReq := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-record", strings.NewReader(analyzeBody))
	seedReq.Header.Set("Content-Type", "application/json")
	seedW := httptest.NewRecorder()
	r.ServeHTTP(seedW, seedReq)
	if seedW.Code != http.StatusOK {
		t.Fatalf("seed status = %d", seedW.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis-result/p7", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got ClinicalAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PatientID != "p7" {
		t.Errorf("patient id = %q", got.PatientID)
	}
}

func TestGetAnalysisResultNotFound(t *testing.T) {
	r := newTestRouter(&fakeLLM{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis-result/nobody", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Errorf("body = %s", w.Body.String())
	}
}
