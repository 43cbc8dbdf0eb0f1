package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wemo-robotics/teleopd/internal/teleop"
)

// Core is the contract this layer has with the teleoperation core:
// structured success values or typed failures, never partial results.
// Satisfied by *teleop.Service.
type Core interface {
	Start(robotID int) (string, error)
	End(robotID int) (string, error)
	Send(robotID int, cmd teleop.Command) (string, error)
	Speed(robotID int) (float64, error)
	Status(robotID int) string
	ListActive() []teleop.Liveness
	Debug(robotID int) teleop.DebugInfo
}

// Request bodies for the mutating endpoints. Enum fields are validated
// by the core's translator; the shell only checks shape.
type botIDReq struct {
	BotID int `json:"bot_id" binding:"required,gt=0"`
}

type moveReq struct {
	BotID     int    `json:"bot_id" binding:"required,gt=0"`
	Direction string `json:"direction" binding:"required"`
}

type rotateReq struct {
	BotID     int    `json:"bot_id" binding:"required,gt=0"`
	Direction string `json:"direction" binding:"required"`
}

type speedReq struct {
	BotID  int    `json:"bot_id" binding:"required,gt=0"`
	Action string `json:"action" binding:"required"`
}

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, core Core) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "teleopd is running")
	})
	router.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	apiGroup := router.Group("/api")
	apiGroup.POST("/startsession", handleStartSession(core))
	apiGroup.POST("/endsession", handleEndSession(core))
	apiGroup.POST("/move", handleMove(core))
	apiGroup.POST("/rotate", handleRotate(core))
	apiGroup.POST("/speed", handleSpeed(core))
	apiGroup.GET("/getspeed", handleGetSpeed(core))
	apiGroup.GET("/session/status", handleSessionStatus(core))
	apiGroup.GET("/sessions", handleListSessions(core))
	apiGroup.GET("/debug", handleDebug(core))
}

func handleStartSession(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req botIDReq
		if !bindJSON(c, &req) {
			return
		}
		out, err := core.Start(req.BotID)
		if err != nil {
			renderFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": out})
	}
}

func handleEndSession(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req botIDReq
		if !bindJSON(c, &req) {
			return
		}
		out, err := core.End(req.BotID)
		if err != nil {
			renderFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": out})
	}
}

func handleMove(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req moveReq
		if !bindJSON(c, &req) {
			return
		}
		out, err := core.Send(req.BotID, teleop.Move(req.Direction))
		if err != nil {
			renderFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": out})
	}
}

func handleRotate(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rotateReq
		if !bindJSON(c, &req) {
			return
		}
		out, err := core.Send(req.BotID, teleop.Rotate(req.Direction))
		if err != nil {
			renderFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": out})
	}
}

func handleSpeed(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req speedReq
		if !bindJSON(c, &req) {
			return
		}
		out, err := core.Send(req.BotID, teleop.SpeedChange(req.Action))
		if err != nil {
			renderFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": out})
	}
}

func handleGetSpeed(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		botID, ok := botIDQuery(c)
		if !ok {
			return
		}
		speed, err := core.Speed(botID)
		if err != nil {
			renderFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"speed_info": gin.H{"linear_speed": fmt.Sprintf("%.3f", speed)},
		})
	}
}

func handleSessionStatus(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		botID, ok := botIDQuery(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "success",
			"session_status": core.Status(botID),
		})
	}
}

func handleListSessions(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := gin.H{}
		for _, lv := range core.ListActive() {
			state := "Active"
			if !lv.Alive {
				state = "Terminated"
			}
			sessions[strconv.Itoa(lv.RobotID)] = state
		}
		c.JSON(http.StatusOK, gin.H{
			"status":          "success",
			"active_sessions": sessions,
		})
	}
}

func handleDebug(core Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		botID, ok := botIDQuery(c)
		if !ok {
			return
		}
		info := core.Debug(botID)
		c.JSON(http.StatusOK, gin.H{
			"bot_id":                     info.RobotID,
			"status":                     info.Status,
			"session_exists_in_sessions": info.InRegistry,
			"all_active_sessions":        info.ActiveRobots,
			"process_alive":              info.ProcessAlive,
		})
	}
}

// bindJSON decodes the request body, rendering a 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// botIDQuery reads the bot_id query parameter, rendering a 400 when it
// is missing or not a positive integer.
func botIDQuery(c *gin.Context) (int, bool) {
	raw := c.Query("bot_id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("bot_id %q must be a positive integer", raw)})
		return 0, false
	}
	return id, true
}

// renderFailure maps a core failure to an HTTP status. Invalid input is
// the caller's fault, a missing session is addressable, and everything
// else is an upstream session fault.
func renderFailure(c *gin.Context, err error) {
	var status int
	switch teleop.KindOf(err) {
	case teleop.KindInvalidParameter:
		status = http.StatusBadRequest
	case teleop.KindNoActiveSession:
		status = http.StatusNotFound
	case teleop.KindUnknown:
		status = http.StatusInternalServerError
	default:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
