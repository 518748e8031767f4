package submissions

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"repstack-backend/internal/shared/metrics"
	"repstack-backend/internal/shared/telemetry"
	"repstack-backend/internal/vision"
)

const analyzerRetryBaseDelay = 300 * time.Millisecond

// safeAnalyzer wraps a vision client with the no-throw contract: every call
// returns an ItemResult, never an error. One failing video must not abort its
// batch. Transient network failures get exactly one retry; a well-formed
// negative verdict from the vision service is terminal for the item.
type safeAnalyzer struct {
	client     vision.Client
	jobID      string
	requestID  string
	retryDelay time.Duration
}

func newSafeAnalyzer(client vision.Client, jobID, requestID string) safeAnalyzer {
	return safeAnalyzer{
		client:     client,
		jobID:      jobID,
		requestID:  requestID,
		retryDelay: analyzerRetryBaseDelay,
	}
}

func (a safeAnalyzer) analyze(ctx context.Context, exerciseType, videoURL string) ItemResult {
	start := time.Now()
	metrics.IncAnalyzerCall()

	out, err := a.client.AnalyzeVideo(ctx, vision.AnalyzeInput{
		ExerciseType: exerciseType,
		VideoURL:     videoURL,
	})
	if err != nil && shouldRetryAnalyze(err) {
		telemetry.Warn("analyzer.retry", map[string]any{
			"request_id": a.requestID,
			"job_id":     a.jobID,
			"exercise":   exerciseType,
			"error":      sanitizeError(err),
		})
		select {
		case <-time.After(a.retryDelay):
			out, err = a.client.AnalyzeVideo(ctx, vision.AnalyzeInput{
				ExerciseType: exerciseType,
				VideoURL:     videoURL,
			})
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	metrics.ObserveAnalyzerDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)

	if err != nil {
		metrics.IncAnalyzerCallFailed()
		return ItemResult{
			ExerciseType: exerciseType,
			Success:      false,
			Error:        analyzeFailureMessage(err),
		}
	}

	return ItemResult{
		ExerciseType: exerciseType,
		Success:      true,
		RepCount:     out.RepCount,
		WeightKg:     out.WeightKg,
		QualityScore: out.QualityScore,
		Issues:       out.Issues,
		Feedback:     out.Feedback,
	}
}

func shouldRetryAnalyze(err error) bool {
	if err == nil {
		return false
	}

	// A negative analysis verdict is a terminal per-item outcome, not a
	// transient error.
	var verdict *vision.AnalysisError
	if errors.As(err, &verdict) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}

func analyzeFailureMessage(err error) string {
	var verdict *vision.AnalysisError
	if errors.As(err, &verdict) {
		return verdict.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "analysis timed out"
	}
	return sanitizeError(err)
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
