package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trading-core/internal/position"
)

// start implements the start control verb: un-halts the engine.
func (s *Server) start(c *gin.Context) {
	s.Positions.SetHalted(false)
	c.JSON(http.StatusOK, gin.H{"status": "running"})
}

// stop implements the stop control verb: halts new position sizing while
// leaving in-flight orders and open positions untouched.
func (s *Server) stop(c *gin.Context) {
	s.Positions.SetHalted(true)
	c.JSON(http.StatusOK, gin.H{"status": "halted"})
}

// emergencyCloseAll implements emergency_close_all.
func (s *Server) emergencyCloseAll(c *gin.Context) {
	s.Positions.EmergencyCloseAll()
	c.JSON(http.StatusAccepted, gin.H{"status": "close_requested"})
}

// toggleStrategy implements toggle_strategy(id): pauses the strategy when the
// request body carries {"pause": true} and resumes it otherwise. The current
// state is not read, so a request without that body always resumes.
func (s *Server) toggleStrategy(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		Pause bool `json:"pause"`
	}
	_ = c.ShouldBindJSON(&req)

	if req.Pause {
		s.Strategies.Pause(id)
	} else {
		s.Strategies.Resume(id)
	}
	c.JSON(http.StatusOK, gin.H{"strategy_id": id, "paused": req.Pause})
}

// resetStrategies implements reset_strategies.
func (s *Server) resetStrategies(c *gin.Context) {
	s.Strategies.ResetAll()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// closePosition implements close_position(id, reason?). The body's reason is
// the only option read; there is no force flag.
func (s *Server) closePosition(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	reason := position.ReasonManual
	if req.Reason != "" {
		reason = position.CloseReason(req.Reason)
	}

	if !s.Positions.ClosePosition(id, reason) {
		c.JSON(http.StatusNotFound, gin.H{"error": "position not open or not found"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "close_requested", "position_id": id})
}
