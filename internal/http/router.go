package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-board/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	postH *PostHandler,
	ratingH *RatingHandler,
	feedH *FeedStreamHandler,
	jwtSvc *service.JWTService,
) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	auth := r.Group("/auth")
	auth.POST("/signup", authH.SignUp)
	auth.POST("/signin", authH.SignIn)
	auth.POST("/confirm", authH.Confirm)
	auth.POST("/resend", authH.Resend)
	auth.POST("/refresh", authH.Refresh)
	auth.POST("/signout", authH.SignOut)

	api := r.Group("", JWTAuthMiddleware(jwtSvc))
	api.GET("/posts", postH.List)
	api.POST("/posts", postH.Create)
	api.DELETE("/posts/:id", postH.Delete)
	api.POST("/posts/:id/ratings", ratingH.Submit)
	api.GET("/users/:id/personality", ratingH.TraitStats)
	api.GET("/feed/stream", feedH.Stream)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
