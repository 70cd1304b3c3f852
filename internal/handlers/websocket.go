package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/tombola/internal/apperr"
	"github.com/mossy-p/tombola/internal/engine"
	"github.com/mossy-p/tombola/internal/gateway"
	"github.com/mossy-p/tombola/internal/models"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Socket upgrades /ws requests and pumps frames between the connection, the
// hub and the engine.
type Socket struct {
	hub    *gateway.Hub
	engine *engine.Engine
	log    *zap.Logger
}

func NewSocket(hub *gateway.Hub, eng *engine.Engine, log *zap.Logger) *Socket {
	return &Socket{hub: hub, engine: eng, log: log}
}

// Handle is the gin handler for GET /ws. Every connection starts without a
// role; the first admin:create-room or player:join decides it.
func (s *Socket) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	client := s.hub.Register(connID)
	log := s.log.With(zap.String("conn", connID))
	log.Debug("connection opened", zap.String("ip", c.ClientIP()))

	go s.writePump(conn, client, log)
	go s.readPump(conn, connID, log)
}

func (s *Socket) readPump(conn *websocket.Conn, connID string, log *zap.Logger) {
	defer func() {
		s.engine.Disconnect(connID)
		s.hub.Unregister(connID)
		conn.Close()
		log.Debug("connection closed")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Info("websocket error", zap.Error(err))
			}
			return
		}

		msg, err := models.Decode(data)
		if err != nil {
			s.engine.Reject(connID, false, apperr.New(apperr.ErrInvalid, err.Error()))
			continue
		}
		s.engine.Dispatch(context.Background(), connID, msg)
	}
}

func (s *Socket) writePump(conn *websocket.Conn, client *gateway.Client, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
