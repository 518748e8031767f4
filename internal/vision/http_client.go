package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient implements Client against the vision service's REST API.
type HTTPClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient constructs an HTTPClient. timeout bounds each analysis call
// end to end.
func NewHTTPClient(apiURL, apiKey string, timeout time.Duration) (*HTTPClient, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("VISION_API_URL is required")
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPClient{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type analyzeRequest struct {
	ExerciseType string `json:"exercise_type"`
	VideoURL     string `json:"video_url"`
}

type analyzeResponse struct {
	Success      bool     `json:"success"`
	RepCount     int      `json:"rep_count"`
	WeightKg     float64  `json:"weight_kg"`
	QualityScore int      `json:"quality_score"`
	Issues       []string `json:"issues"`
	Feedback     string   `json:"feedback"`
	Error        string   `json:"error,omitempty"`
}

// AnalyzeVideo posts one video reference to the vision service and parses the
// verdict. A success=false body is returned as *AnalysisError; transport and
// server errors are returned as plain errors.
func (c *HTTPClient) AnalyzeVideo(ctx context.Context, input AnalyzeInput) (AnalyzeOutput, error) {
	payload, err := json.Marshal(analyzeRequest{
		ExerciseType: input.ExerciseType,
		VideoURL:     input.VideoURL,
	})
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/analyze", bytes.NewReader(payload))
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("read vision response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return AnalyzeOutput{}, fmt.Errorf("vision http status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return AnalyzeOutput{}, fmt.Errorf("decode vision response: %w", err)
	}

	if !parsed.Success {
		reason := parsed.Error
		if reason == "" {
			reason = "analysis rejected without reason"
		}
		return AnalyzeOutput{}, &AnalysisError{Reason: reason}
	}

	if parsed.QualityScore < 0 || parsed.QualityScore > 100 {
		return AnalyzeOutput{}, fmt.Errorf("vision quality score out of range: %d", parsed.QualityScore)
	}

	return AnalyzeOutput{
		RepCount:     parsed.RepCount,
		WeightKg:     parsed.WeightKg,
		QualityScore: parsed.QualityScore,
		Issues:       parsed.Issues,
		Feedback:     parsed.Feedback,
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
