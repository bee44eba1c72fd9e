package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"medrecords-backend/internal/llm"
)

func newTestRouter(env testEnv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(env.coord, nil)
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func multipartCSV(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func TestUploadAnalyzeCSV(t *testing.T) {
	env := newTestEnv(newFakeGateway(func(in llm.CaseInput, call int) (string, error) {
		return gatewayResponse, nil
	}))
	router := newTestRouter(env)

	csvContent := "patient_id,age,gender,primary_symptoms\np1,45,male,chest pain\np2,,female,headache\n"
	body, contentType := multipartCSV(t, "records.csv", csvContent)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-analyze-csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		BatchID          string   `json:"batch_id"`
		TotalRecords     int      `json:"total_records"`
		ValidRecords     int      `json:"valid_records"`
		ConversionErrors int      `json:"conversion_errors"`
		Errors           []string `json:"errors"`
		Status           string   `json:"status"`
		CheckStatusURL   string   `json:"check_status_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BatchID == "" {
		t.Fatal("expected a batch id")
	}
	if resp.TotalRecords != 2 || resp.ValidRecords != 1 || resp.ConversionErrors != 1 {
		t.Fatalf("unexpected counts: %+v", resp)
	}
	if resp.Status != StatusProcessing {
		t.Fatalf("expected processing status, got %q", resp.Status)
	}
	if !strings.HasSuffix(resp.CheckStatusURL, resp.BatchID) {
		t.Fatalf("unexpected status url %q", resp.CheckStatusURL)
	}

	waitForFinished(t, env, resp.BatchID)
}

func TestUploadAnalyzeCSVRejectsNonCSV(t *testing.T) {
	env := newTestEnv(newFakeGateway(func(in llm.CaseInput, call int) (string, error) {
		return gatewayResponse, nil
	}))
	router := newTestRouter(env)

	body, contentType := multipartCSV(t, "records.xlsx", "not a csv")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-analyze-csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadAnalyzeCSVEmptyFile(t *testing.T) {
	env := newTestEnv(newFakeGateway(func(in llm.CaseInput, call int) (string, error) {
		return gatewayResponse, nil
	}))
	router := newTestRouter(env)

	body, contentType := multipartCSV(t, "records.csv", "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-analyze-csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "CSV file is empty") {
		t.Fatalf("expected empty-file message, got %s", rec.Body.String())
	}
}

func TestUploadAnalyzeCSVNoValidRows(t *testing.T) {
	env := newTestEnv(newFakeGateway(func(in llm.CaseInput, call int) (string, error) {
		t.Error("gateway should not be called")
		return "", nil
	}))
	router := newTestRouter(env)

	csvContent := "patient_id,age,gender\np1,,male\np2,,female\n"
	body, contentType := multipartCSV(t, "records.csv", csvContent)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-analyze-csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "no valid records") {
		t.Fatalf("expected no-valid-records message, got %s", rec.Body.String())
	}
}

func TestGetBatchStatus(t *testing.T) {
	env := newTestEnv(newFakeGateway(func(in llm.CaseInput, call int) (string, error) {
		return gatewayResponse, nil
	}))
	router := newTestRouter(env)

	job := BatchJob{
		BatchID:      "batch-1",
		TotalRecords: 1,
		Status:       StatusProcessing,
		Errors:       []string{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := env.batches.CreateBatch(context.Background(), job); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-analysis-status/batch-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got BatchJob
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.BatchID != "batch-1" || got.Status != StatusProcessing {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestGetBatchStatusNotFound(t *testing.T) {
	env := newTestEnv(newFakeGateway(func(in llm.CaseInput, call int) (string, error) {
		return gatewayResponse, nil
	}))
	router := newTestRouter(env)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-analysis-status/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetBatchResultsCSV(t *testing.T) {
	env := newTestEnv(newFakeGateway(func(in llm.CaseInput, call int) (string, error) {
		return gatewayResponse, nil
	}))
	router := newTestRouter(env)

	csvContent := "patient_id,age,gender,primary_symptoms\np1,45,male,chest pain\n"
	body, contentType := multipartCSV(t, "records.csv", csvContent)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-analyze-csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		BatchID string `json:"batch_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	waitForFinished(t, env, resp.BatchID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/batch-results/"+resp.BatchID+"?format=csv", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv content type, got %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "Lisinopril") || !strings.Contains(lines[1], "Hypertension") {
		t.Fatalf("expected analysis fields in CSV row, got %q", lines[1])
	}
}

func TestGetBatchResultsBadFormat(t *testing.T) {
	env := newTestEnv(newFakeGateway(func(in llm.CaseInput, call int) (string, error) {
		return gatewayResponse, nil
	}))
	router := newTestRouter(env)

	job := BatchJob{BatchID: "batch-1", TotalRecords: 0, Status: StatusCompleted, Errors: []string{}, CreatedAt: time.Now().UTC()}
	if err := env.batches.CreateBatch(context.Background(), job); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batch-results/batch-1?format=xml", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
