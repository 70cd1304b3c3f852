package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/tombola/internal/admin"
	"github.com/mossy-p/tombola/internal/metrics"
	"github.com/mossy-p/tombola/internal/middleware"
	"github.com/mossy-p/tombola/internal/room"
	"github.com/mossy-p/tombola/internal/security"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Auth endpoints allow a short burst, then one request every few seconds per IP.
const (
	authRate  = rate.Limit(0.2)
	authBurst = 5
)

type Deps struct {
	AllowedOrigins []string
	Admin          *admin.Manager
	Rooms          *room.Registry
	Socket         *Socket
	Limiter        *security.RateLimitManager
	Metrics        *metrics.Collector
	Log            *zap.Logger
	// RequestLog enables gin's request logger.
	RequestLog bool
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if d.RequestLog {
		router.Use(gin.Logger())
	}

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(d.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": d.Rooms.Len()})
	})
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := router.Group("/api")
	{
		throttled := RateLimit(d.Limiter, "auth", authRate, authBurst)
		superAdmin := middleware.SuperAdminAuth(d.Admin)

		api.POST("/auth/super-admin", throttled, SuperAdminLogin(d.Admin))
		api.POST("/admin/verify", throttled, VerifyAdminCode(d.Admin))
		api.POST("/admin/create", superAdmin, CreateAdminCode(d.Admin, d.Log))

		api.GET("/rooms/stats", RoomStats(d.Rooms))
		api.GET("/rooms/:code", GetRoom(d.Rooms))
		api.GET("/rooms", superAdmin, ListRooms(d.Rooms))
		api.DELETE("/rooms/:code", superAdmin, CloseRoom(d.Rooms))
	}

	if d.Socket != nil {
		router.GET("/ws", d.Socket.Handle)
	}

	return router
}
