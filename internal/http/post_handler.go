package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-board/internal/service"
)

// PostHandler mantiene dependencias para endpoints de posts.
type PostHandler struct {
	logger   *zap.Logger
	postServ *service.PostService
}

func NewPostHandler(logger *zap.Logger, postServ *service.PostService) *PostHandler {
	return &PostHandler{
		logger:   logger,
		postServ: postServ,
	}
}

// List maneja GET /posts: el feed completo, el mas reciente primero.
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.postServ.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list posts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Create maneja POST /posts.
func (h *PostHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create post request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	post, err := h.postServ.Create(c.Request.Context(), claims.UserID, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyPost) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "post text is empty"})
			return
		}
		h.logger.Error("create post failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create post"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// Delete maneja DELETE /posts/:id.
func (h *PostHandler) Delete(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	err := h.postServ.Delete(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		case errors.Is(err, service.ErrNotPostOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not the post owner"})
		default:
			h.logger.Error("delete post failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete post"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
