// Package api exposes the thin control-verb + event-stream surface the core
// must support (spec.md §6); the UI-facing CRUD/account surface is out of
// scope, so this is deliberately a small slice of the donor's internal/api.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trading-core/internal/eventbus"
	"trading-core/internal/monitor"
	"trading-core/internal/position"
	"trading-core/internal/strategy"
)

// Server wires the control-verb endpoints and the lifecycle event stream.
type Server struct {
	Router *gin.Engine

	Bus        *eventbus.Bus
	Strategies *strategy.Manager
	Positions  *position.Manager
	Metrics    *monitor.SystemMetrics

	JWTSecret string
	Meta      SystemMeta
}

// SystemMeta describes static runtime info surfaced on /health.
type SystemMeta struct {
	DryRun  bool
	Version string
}

// NewServer builds the control API around the already-running core.
func NewServer(bus *eventbus.Bus, strategies *strategy.Manager, positions *position.Manager, metrics *monitor.SystemMetrics, jwtSecret string, meta SystemMeta) *Server {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:     r,
		Bus:        bus,
		Strategies: strategies,
		Positions:  positions,
		Metrics:    metrics,
		JWTSecret:  jwtSecret,
		Meta:       meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/events", s.eventStream)

	control := s.Router.Group("/api/v1/control")
	control.Use(AuthMiddleware(s.JWTSecret))
	{
		control.POST("/start", s.start)
		control.POST("/stop", s.stop)
		control.POST("/emergency_close_all", s.emergencyCloseAll)
		control.POST("/strategies/:id/toggle", s.toggleStrategy)
		control.POST("/strategies/reset", s.resetStrategies)
		control.POST("/positions/:id/close", s.closePosition)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"dry_run": s.Meta.DryRun,
		"version": s.Meta.Version,
	})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
