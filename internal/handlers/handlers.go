package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"clipstream/server/internal/config"
	"clipstream/server/internal/middleware"
	"clipstream/server/internal/notify"
	"clipstream/server/internal/queue"
	"clipstream/server/internal/repository"
	"clipstream/server/internal/security"
)

type HandlerSet struct {
	log   zerolog.Logger
	cfg   *config.AppConfig
	media repository.MediaRepository
	queue *queue.Queue
	hub   *notify.Hub
	db    *pgxpool.Pool
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	media repository.MediaRepository,
	q *queue.Queue,
	hub *notify.Hub,
	db *pgxpool.Pool,
) HandlerSet {
	return HandlerSet{
		log:   log,
		cfg:   cfg,
		media: media,
		queue: q,
		hub:   hub,
		db:    db,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(h.cfg))

	v1.GET("/events", h.UserEvents)

	media := v1.Group("/media")
	{
		media.POST("", h.Upload)
		media.GET("", h.List)
		media.GET("/:id", h.Get)
		media.DELETE("/:id", h.Delete)
		media.GET("/:id/stream", h.Stream)
		media.HEAD("/:id/stream", h.Stream)
		media.GET("/:id/events", h.MediaEvents)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRoles(security.RoleAdmin))
	admin.GET("/queue", h.QueueStatus)
}
