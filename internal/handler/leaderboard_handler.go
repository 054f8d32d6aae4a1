package handler

import (
	"net/http"

	"Community_Feed/internal/service"

	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	svc *service.LeaderboardService
}

func NewLeaderboardHandler(svc *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{svc: svc}
}

// Top 近 24 小时 karma 前五
func (h *LeaderboardHandler) Top(c *gin.Context) {
	entries, err := h.svc.Top(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
