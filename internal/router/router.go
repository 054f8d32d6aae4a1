package router

import (
	"net/http"
	"slices"
	"time"

	"Community_Feed/internal/handler"
	"Community_Feed/internal/middleware"
	"Community_Feed/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Users       *handler.UserHandler
	Posts       *handler.PostHandler
	Comments    *handler.CommentHandler
	Leaderboard *handler.LeaderboardHandler
	Auth        *middleware.Auth
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

func InitRouter(d Deps) *gin.Engine {
	handler.UseJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Observe(d.Metrics), cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	required := d.Auth.Required()
	optional := d.Auth.Optional()
	api := r.Group("/api")

	// 用户相关接口
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register/", d.Users.Register)
		authGroup.POST("/login/", d.Users.Login)
		authGroup.POST("/logout/", required, d.Users.Logout)
		authGroup.GET("/me/", optional, d.Users.Me)
	}

	// token相关接口
	api.POST("/token/refresh/", d.Users.TokenRefresh)

	// 帖子相关接口
	postGroup := api.Group("/posts")
	{
		postGroup.GET("/", optional, d.Posts.List)
		postGroup.POST("/", required, d.Posts.Create)
		postGroup.GET("/:id/", optional, d.Posts.Detail)
		postGroup.DELETE("/:id/", required, d.Posts.Delete)
		postGroup.GET("/:id/comments/", optional, d.Comments.ListByPost)
		postGroup.POST("/:id/like/", required, d.Posts.Like)
		postGroup.POST("/:id/unlike/", required, d.Posts.Unlike)
	}

	// 评论相关接口
	commentGroup := api.Group("/comments")
	{
		commentGroup.POST("/", required, d.Comments.Create)
		commentGroup.GET("/:id/", optional, d.Comments.Detail)
		commentGroup.DELETE("/:id/", required, d.Comments.Delete)
		commentGroup.POST("/:id/like/", required, d.Comments.Like)
		commentGroup.POST("/:id/unlike/", required, d.Comments.Unlike)
	}

	api.GET("/leaderboard/", d.Leaderboard.Top)

	return r
}

// corsConfig 未配置或包含 * 时放开所有来源（此时不允许携带凭据）
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
