package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"

	"fireplacerf/rf"
)

type commandInfo struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Enc   string `json:"enc"`
	Check string `json:"check"`
}

type channelRequest struct {
	Payload string `json:"payload" binding:"required"`
}

type apiServer struct {
	ctrl    *Controller
	events  *EventDispatcher
	metrics *Metrics
}

func (s *apiServer) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger)

	api := r.Group("/api")
	api.GET("/commands", s.getCommands)
	api.GET("/state", s.getState)
	api.PUT("/channel/:channel", s.putChannel)
	api.POST("/send/:command", s.postSend)
	api.GET("/ws", gin.WrapH(websocket.Handler(s.attachListener)))

	r.GET("/metrics", gin.WrapH(s.metrics.handler()))
	r.StaticFS("/ui", assetFS())
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/ui/")
	})
	return r
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	log.Debugf("HTTP %s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

func (s *apiServer) getCommands(c *gin.Context) {
	cal := s.ctrl.Calibration()

	var out []commandInfo
	for _, name := range rf.Names() {
		cmd, _ := rf.Resolve(name)
		e := rf.Encode(cmd, cal.K)
		out = append(out, commandInfo{
			Name:  name,
			Code:  fmt.Sprintf("%02X", byte(cmd)),
			Enc:   fmt.Sprintf("%02X", e.Enc),
			Check: fmt.Sprintf("%02X", e.Check()),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *apiServer) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.State())
}

func (s *apiServer) putChannel(c *gin.Context) {
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := s.ctrl.SubmitPayload(c.Param("channel"), req.Payload, "http")
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": job.ID})
}

func (s *apiServer) postSend(c *gin.Context) {
	job, err := s.ctrl.SubmitCommand(c.Param("command"), "http")
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": job.ID})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownChannel), errors.Is(err, ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// attachListener streams dispatcher events to one websocket client, starting
// with the current state.
func (s *apiServer) attachListener(ws *websocket.Conn) {
	listener := &EventListener{ch: make(chan []byte, 32)}

	defer func() {
		s.events.deregister <- listener
		log.Debug("websocket listener detached")
	}()

	s.events.register <- listener
	log.Debug("websocket listener attached")

	if err := websocket.Message.Send(ws, string(serializeEvent("state", s.ctrl.State()))); err != nil {
		return
	}

	for message := range listener.ch {
		if err := websocket.Message.Send(ws, string(message)); err != nil {
			return
		}
	}
}
