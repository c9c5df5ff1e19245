package control

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/autopilot"
)

// startBody is the POST /api/start payload.
type startBody struct {
	N      int                    `json:"n"`
	Config *autopilot.StartConfig `json:"config"`
}

func registerRoutes(router *gin.Engine, ctrl Controller) {
	api := router.Group("/api")
	api.GET("/ping", handleSimple(ctrl, autopilot.PingTest))
	api.GET("/status", handleSimple(ctrl, autopilot.GetStatus))
	api.POST("/start", handleStart(ctrl))
	api.POST("/stop", handleSimple(ctrl, autopilot.StopBot))
	api.POST("/check-unread", handleSimple(ctrl, autopilot.CheckUnread))
	api.POST("/command", handleCommand(ctrl))
	api.GET("/events", handleSSE(ctrl))
}

func handleSimple(ctrl Controller, typ autopilot.CommandType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ctrl.Dispatch(c.Request.Context(), autopilot.Command{Type: typ}))
	}
}

func handleStart(ctrl Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body startBody
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				badRequest(c, err)
				return
			}
		}
		cmd := autopilot.Command{Type: autopilot.StartBot, N: body.N, Config: body.Config}
		c.JSON(http.StatusOK, ctrl.Dispatch(c.Request.Context(), cmd))
	}
}

func handleCommand(ctrl Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd autopilot.Command
		if err := c.ShouldBindJSON(&cmd); err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, ctrl.Dispatch(c.Request.Context(), cmd))
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, autopilot.Reply{
		Status: autopilot.StatusError,
		Error:  "invalid request body: " + err.Error(),
	})
}
