package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-board/internal/service"
)

// RatingHandler mantiene dependencias para endpoints de ratings y perfil.
type RatingHandler struct {
	logger     *zap.Logger
	ratingServ *service.RatingService
}

func NewRatingHandler(logger *zap.Logger, ratingServ *service.RatingService) *RatingHandler {
	return &RatingHandler{
		logger:     logger,
		ratingServ: ratingServ,
	}
}

// Submit maneja POST /posts/:id/ratings.
func (h *RatingHandler) Submit(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Trait string   `json:"trait" binding:"required"`
		Value *float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid rating request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.ratingServ.SubmitRating(c.Request.Context(), c.Param("id"), claims.UserID, req.Trait, *req.Value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTrait), errors.Is(err, service.ErrInvalidValue):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		case errors.Is(err, service.ErrAggregationFailed):
			h.logger.Error("rating aggregation failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not save rating, try again"})
		default:
			h.logger.Error("submit rating failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save rating"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rated"})
}

// TraitStats maneja GET /users/:id/personality.
func (h *RatingHandler) TraitStats(c *gin.Context) {
	stats, err := h.ratingServ.GetTraitStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("trait stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load personality stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("id"), "traits": stats})
}
