package handler

import (
	"errors"
	"net/http"

	"Community_Feed/internal/middleware"
	"Community_Feed/internal/model"
	"Community_Feed/internal/service"

	"github.com/gin-gonic/gin"
)

// toggleLike 帖子与评论共用的点赞/取消点赞处理
func toggleLike(c *gin.Context, svc *service.LikeService, kind model.TargetKind, like bool) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	uid := middleware.UserID(c)

	var (
		res *service.LikeResult
		err error
	)
	if like {
		res, err = svc.Like(c.Request.Context(), kind, uid, id)
	} else {
		res, err = svc.Unlike(c.Request.Context(), kind, uid, id)
	}
	switch {
	case errors.Is(err, service.ErrAlreadyLiked):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You have already liked this " + string(kind)})
		return
	case errors.Is(err, service.ErrNotLiked):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You have not liked this " + string(kind)})
		return
	case err != nil:
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
