package handler

import (
	"net/http"

	"Community_Feed/internal/middleware"
	"Community_Feed/internal/model"
	"Community_Feed/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *service.CommentService
	likes    *service.LikeService
}

type CreateCommentReq struct {
	Post    uint64  `json:"post" binding:"required"`
	Parent  *uint64 `json:"parent"`
	Content string  `json:"content" binding:"required,max=1000"`
}

func NewCommentHandler(comments *service.CommentService, likes *service.LikeService) *CommentHandler {
	return &CommentHandler{comments: comments, likes: likes}
}

// Create 发表评论，parent 必须属于同一帖子
func (h *CommentHandler) Create(c *gin.Context) {
	var req CreateCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		renderBindError(c, err)
		return
	}
	node, err := h.comments.CreateComment(c.Request.Context(), middleware.UserID(c), service.CreateCommentInput{
		PostID:   req.Post,
		ParentID: req.Parent,
		Content:  req.Content,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

// ListByPost 帖子下全部评论，默认嵌套，?flat=1 返回先序扁平列表
func (h *CommentHandler) ListByPost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	flat := c.Query("flat") == "1" || c.Query("flat") == "true"
	list, err := h.comments.ListComments(c.Request.Context(), id, middleware.UserID(c), flat)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Detail 单条评论及子树
func (h *CommentHandler) Detail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	node, err := h.comments.GetComment(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.comments.DeleteComment(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommentHandler) Like(c *gin.Context) {
	toggleLike(c, h.likes, model.TargetComment, true)
}

func (h *CommentHandler) Unlike(c *gin.Context) {
	toggleLike(c, h.likes, model.TargetComment, false)
}
