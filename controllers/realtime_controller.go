package controllers

import (
	"net/http"
	"time"

	"dietica/services"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type RealtimeController struct {
	RT  *services.RealtimeHub
	Log *log.Logger
}

func NewRealtimeController(rt *services.RealtimeHub, logger *log.Logger) *RealtimeController {
	return &RealtimeController{RT: rt, Log: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // mobile clients send no Origin
}

const pingEvery = 25 * time.Second

// GET /ws/notifications
func (rc *RealtimeController) NotificationsWS(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rc.Log.Debug("websocket upgrade failed", "user", uid, "err", err)
		return
	}
	cl := &services.WSClient{UserID: uid, Conn: conn}
	rc.RT.Register(cl)
	rc.Log.Debug("websocket connected", "user", uid, "sockets", rc.RT.Connected(uid))

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// read loop ends on client close/error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			rc.RT.Unregister(cl)
			return
		}
	}
}
