package handler

import (
	"net/http"

	"Community_Feed/internal/middleware"
	"Community_Feed/internal/model"
	"Community_Feed/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts *service.PostService
	likes *service.LikeService
}

type CreatePostReq struct {
	Content string `json:"content" binding:"required,max=2000"`
}

func NewPostHandler(posts *service.PostService, likes *service.LikeService) *PostHandler {
	return &PostHandler{posts: posts, likes: likes}
}

// List 帖子列表
func (h *PostHandler) List(c *gin.Context) {
	list, err := h.posts.ListPosts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Detail 帖子详情（含评论树）
func (h *PostHandler) Detail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	post, err := h.posts.GetPost(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Create 发帖
func (h *PostHandler) Create(c *gin.Context) {
	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		renderBindError(c, err)
		return
	}
	post, err := h.posts.CreatePost(c.Request.Context(), middleware.UserID(c), req.Content)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Delete 作者删帖
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.posts.DeletePost(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) Like(c *gin.Context) {
	toggleLike(c, h.likes, model.TargetPost, true)
}

func (h *PostHandler) Unlike(c *gin.Context) {
	toggleLike(c, h.likes, model.TargetPost, false)
}
