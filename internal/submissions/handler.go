package submissions

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"repstack-backend/internal/shared/server/middleware"
	"repstack-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the submissions service.
type Handler struct {
	Svc   *Service
	polls *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:   svc,
		polls: newPollLimiter(pollLimitWindow, time.Now),
	}
}

// RegisterRoutes attaches submission routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/submissions", h.createSubmission)
	rg.GET("/submissions", h.listSubmissions)
	rg.GET("/submissions/:id", h.getSubmission)
}

type createItemRequest struct {
	ExerciseType string `json:"exercise_type"`
	VideoKey     string `json:"video_key"`
}

type createSubmissionRequest struct {
	Kind  string              `json:"kind"`
	Items []createItemRequest `json:"items"`
}

func (h *Handler) createSubmission(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeInvalidInput, "request body must be valid JSON", nil)
		return
	}

	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, Item{ExerciseType: it.ExerciseType, VideoKey: it.VideoKey})
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	sub, err := h.Svc.Create(ctx, userID, req.Kind, items)
	if err != nil {
		var ve *ValidationError
		var ape *AlreadyProcessingError
		switch {
		case errors.As(err, &ve):
			respond.Error(c, http.StatusBadRequest, ErrorCodeInvalidInput, ve.Reason, nil)
		case errors.As(err, &ape):
			respond.Error(c, http.StatusConflict, ErrorCodeAlreadyProcessing, "an active submission already exists", gin.H{
				"jobId": ape.JobID,
			})
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to create submission", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"jobId":  sub.ID,
		"status": sub.Status,
	})
}

func (h *Handler) getSubmission(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeInvalidInput, "job id is required", nil)
		return
	}

	if !h.polls.Allow(userID, jobID) {
		c.Header("Retry-After", strconv.Itoa(h.polls.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", gin.H{
			"retryAfterSeconds": h.polls.RetryAfterSeconds(),
		})
		return
	}

	sub, err := h.Svc.Get(c.Request.Context(), userID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "submission not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch submission", nil)
		}
		return
	}

	respond.OK(c, submissionResponse(sub))
}

func (h *Handler) listSubmissions(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	subs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list submissions", nil)
		return
	}

	resp := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, submissionResponse(sub))
	}
	respond.OK(c, gin.H{"submissions": resp})
}

// submissionResponse shapes the poll-safe snapshot. Results and outcome only
// appear once recorded, so a client never sees a partially aggregated view.
func submissionResponse(sub Submission) gin.H {
	resp := gin.H{
		"jobId":     sub.ID,
		"kind":      sub.Kind,
		"status":    sub.Status,
		"items":     sub.Items,
		"createdAt": sub.CreatedAt,
	}
	if len(sub.Results) > 0 {
		resp["results"] = sub.Results
	}
	if sub.Outcome != nil {
		resp["outcome"] = sub.Outcome
	}
	if sub.Status == StatusFailed {
		resp["error"] = gin.H{
			"code":    sub.ErrorCode,
			"message": sub.ErrorMessage,
		}
	}
	if sub.CompletedAt != nil {
		resp["completedAt"] = sub.CompletedAt
	}
	return resp
}
