package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repstack-backend/internal/shared/server/middleware"
	"repstack-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the users service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches profile routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me/profile", h.getProfile)
}

func (h *Handler) getProfile(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	user, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load profile", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"id":           user.ID,
		"name":         user.Name,
		"currentLevel": user.CurrentLevel,
		"tier":         user.Tier,
	})
}
