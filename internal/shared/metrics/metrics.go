package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	caseAnalysesStartedTotal   atomic.Uint64
	caseAnalysesCompletedTotal atomic.Uint64
	caseAnalysesFailedTotal    atomic.Uint64
	caseAnalysesFallbackTotal  atomic.Uint64
	gatewayRetriesTotal        atomic.Uint64
	batchJobsStartedTotal      atomic.Uint64
	batchJobsCompletedTotal    atomic.Uint64
	batchJobsFailedTotal       atomic.Uint64

	queueJobsReceivedTotal             atomic.Uint64
	queueJobsCompletedTotal            atomic.Uint64
	queueJobsFailedTotal               atomic.Uint64
	queueJobsDeletedUnrecoverableTotal atomic.Uint64

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncCaseAnalysisStarted increments the started counter.
func IncCaseAnalysisStarted() {
	caseAnalysesStartedTotal.Add(1)
}

// IncCaseAnalysisCompleted increments the completed counter.
func IncCaseAnalysisCompleted() {
	caseAnalysesCompletedTotal.Add(1)
}

// IncCaseAnalysisFailed increments the failed counter.
func IncCaseAnalysisFailed() {
	caseAnalysesFailedTotal.Add(1)
}

// IncCaseAnalysisFallback increments the normalization-fallback counter.
func IncCaseAnalysisFallback() {
	caseAnalysesFallbackTotal.Add(1)
}

// IncGatewayRetry increments the gateway retry counter.
func IncGatewayRetry() {
	gatewayRetriesTotal.Add(1)
}

// IncBatchStarted increments the batch started counter.
func IncBatchStarted() {
	batchJobsStartedTotal.Add(1)
}

// IncBatchCompleted increments the batch completed counter.
func IncBatchCompleted() {
	batchJobsCompletedTotal.Add(1)
}

// IncBatchFailed increments the batch failed counter.
func IncBatchFailed() {
	batchJobsFailedTotal.Add(1)
}

// IncQueueJobReceived increments the worker received counter.
func IncQueueJobReceived() {
	queueJobsReceivedTotal.Add(1)
}

// IncQueueJobCompleted increments the worker completed counter.
func IncQueueJobCompleted() {
	queueJobsCompletedTotal.Add(1)
}

// IncQueueJobFailed increments the worker failed counter.
func IncQueueJobFailed() {
	queueJobsFailedTotal.Add(1)
}

// IncQueueJobDeletedUnrecoverable counts malformed messages deleted
// without processing.
func IncQueueJobDeletedUnrecoverable() {
	queueJobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveAnalysisDurationMs records a case analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "case_analyses_started_total", "Total case analyses started", caseAnalysesStartedTotal.Load())
	writeCounter(&buf, "case_analyses_completed_total", "Total case analyses completed", caseAnalysesCompletedTotal.Load())
	writeCounter(&buf, "case_analyses_failed_total", "Total case analyses failed", caseAnalysesFailedTotal.Load())
	writeCounter(&buf, "case_analyses_fallback_total", "Total case analyses that used the degraded fallback", caseAnalysesFallbackTotal.Load())
	writeCounter(&buf, "gateway_retries_total", "Total LLM gateway retry attempts", gatewayRetriesTotal.Load())
	writeCounter(&buf, "batch_jobs_started_total", "Total batch jobs started", batchJobsStartedTotal.Load())
	writeCounter(&buf, "batch_jobs_completed_total", "Total batch jobs completed", batchJobsCompletedTotal.Load())
	writeCounter(&buf, "batch_jobs_failed_total", "Total batch jobs failed", batchJobsFailedTotal.Load())
	writeCounter(&buf, "queue_jobs_received_total", "Total queue jobs received by workers", queueJobsReceivedTotal.Load())
	writeCounter(&buf, "queue_jobs_completed_total", "Total queue jobs completed by workers", queueJobsCompletedTotal.Load())
	writeCounter(&buf, "queue_jobs_failed_total", "Total queue jobs that failed processing", queueJobsFailedTotal.Load())
	writeCounter(&buf, "queue_jobs_deleted_unrecoverable_total", "Total malformed queue messages deleted without processing", queueJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "case_analysis_duration_ms", "Case analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
