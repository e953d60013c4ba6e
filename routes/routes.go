package routes

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"piazza/handlers"
	"piazza/middleware"
	"piazza/observability"
)

const serviceName = "piazza"

type Options struct {
	Handler     *handlers.Handler
	JWTSecret   []byte
	CORSOrigins []string
	Logger      *slog.Logger
	Metrics     *observability.Metrics
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

func SetupRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		middleware.RequestLogger(opts.Logger),
		middleware.Metrics(opts.Metrics),
	)

	corsConfig := cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		// cors panics on an empty origin list.
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", handlers.Health)
	router.GET("/api/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	// Public routes (no auth required)
	h := opts.Handler
	router.POST("/api/signup", h.Signup)
	router.POST("/api/login", h.Login)

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware(opts.JWTSecret))

	protected.GET("/me", h.Me)

	// Topics
	protected.GET("/topics", h.ListTopics)
	protected.GET("/topics/:topic/posts", h.ListTopicPosts)
	protected.GET("/topics/:topic/most-active", h.MostActive)
	protected.GET("/topics/:topic/expired", h.ExpiredPosts)

	// Posts
	protected.POST("/posts", h.CreatePost)
	protected.GET("/posts/:id", h.GetPost)
	protected.POST("/posts/:id/like", h.LikePost)
	protected.POST("/posts/:id/dislike", h.DislikePost)
	protected.POST("/posts/:id/comments", h.AddComment)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"path":    c.Request.URL.Path,
				"message": "Endpoint not found",
			})
			return
		}
		c.Status(http.StatusNotFound)
	})

	return router
}
