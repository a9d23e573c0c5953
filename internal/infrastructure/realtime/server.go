package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"sketchroom/internal/core/collab"
	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/internal/infrastructure/middleware"
	"sketchroom/pkg/tracing"
	"sketchroom/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	CookieName     string
	AllowedOrigins []string

	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxMessageBytes caps a single inbound frame; zero means no limit.
	MaxMessageBytes int64
	// MessagesPerSecond limits inbound frames per connection; zero disables it.
	MessagesPerSecond float64
	Burst             int
}

func DefaultOptions() Options {
	return Options{
		CookieName:     "sketchroom_session",
		AllowedOrigins: []string{"*"},
		PingInterval:   30 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Server upgrades authenticated requests to websockets and pumps frames
// between each socket and the hub.
type Server struct {
	hub      *collab.Hub
	auth     ports.AuthService
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func NewServer(hub *collab.Hub, auth ports.AuthService, opts Options, logger *zap.SugaredLogger) *Server {
	s := &Server{
		hub:    hub,
		auth:   auth,
		opts:   opts,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handle is the gin handler for the websocket endpoint. The session is
// checked before the upgrade so unauthenticated clients get a plain 401.
func (s *Server) Handle(c *gin.Context) {
	user, err := s.auth.Authenticate(c.Request.Context(), middleware.SessionToken(c, s.opts.CookieName))
	if err != nil {
		appErr := middleware.ToAppError(err)
		c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		})
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	conn := s.hub.Register(user.ID)
	s.logger.Infow("websocket connected", "conn_id", conn.ID, "user_id", user.ID, "remote_addr", c.ClientIP())

	go s.writePump(ws, conn)
	s.readPump(ws, conn)
}

func (s *Server) readPump(ws *websocket.Conn, conn *collab.Conn) {
	defer func() {
		s.hub.Disconnect(conn.ID)
		s.logger.Infow("websocket disconnected", "conn_id", conn.ID, "user_id", conn.UserID)
	}()

	if s.opts.MaxMessageBytes > 0 {
		ws.SetReadLimit(s.opts.MaxMessageBytes)
	}
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	var limiter *rate.Limiter
	if s.opts.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst)
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Debugw("websocket read failed", "conn_id", conn.ID, "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if limiter != nil && !limiter.Allow() {
			s.hub.Dropped(collab.DropRateLimited)
			s.logger.Debugw("frame dropped by rate limit", "conn_id", conn.ID)
			continue
		}
		s.handleFrame(conn, data)
	}
}

// writePump is the only writer on ws. It exits once the hub closes the
// connection's queue, or on the first failed write.
func (s *Server) writePump(ws *websocket.Conn, conn *collab.Conn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case frame, ok := <-conn.Send():
			_ = ws.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debugw("websocket write failed", "conn_id", conn.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debugw("websocket ping failed", "conn_id", conn.ID, "error", err)
				return
			}
		}
	}
}

func (s *Server) handleFrame(conn *collab.Conn, data []byte) {
	msg, err := collab.Decode(data)
	if err != nil {
		s.hub.Dropped(collab.DropInvalid)
		s.logger.Debugw("malformed frame dropped", "conn_id", conn.ID, "frame", utils.TruncateString(string(data), 120), "error", err)
		return
	}

	switch msg.Event {
	case collab.EventJoinRoom:
		s.handleJoin(conn, msg)
	case collab.EventLeaveRoom:
		s.hub.Leave(conn.ID)
	default:
		env, err := collab.ParseEnvelope(msg)
		if err != nil {
			s.hub.Dropped(collab.DropInvalid)
			s.logger.Debugw("invalid event dropped", "conn_id", conn.ID, "event", msg.Event, "error", err)
			return
		}
		if _, err := s.hub.Relay(conn.ID, env); err != nil {
			s.logger.Debugw("event dropped", "conn_id", conn.ID, "event", msg.Event, "room_id", env.RoomID, "error", err)
		}
	}
}

func (s *Server) handleJoin(conn *collab.Conn, msg *collab.Message) {
	ctx, span := tracing.TraceWebSocketMessage(context.Background(), msg.Event, string(conn.ID))
	defer span.End()

	var req collab.JoinRoomRequest
	if err := collab.DecodeData(msg, &req); err != nil || req.RoomID == "" {
		if err == nil {
			err = domain.ErrInvalidEvent
		}
		s.sendError(conn, err)
		return
	}
	span.SetAttributes(tracing.WhiteboardIDKey.String(string(req.RoomID)), tracing.UserIDKey.String(string(conn.UserID)))

	if _, err := s.hub.Join(ctx, conn.ID, req.RoomID, req.UserID); err != nil {
		tracing.RecordError(ctx, err)
		if errors.Is(err, domain.ErrConnectionClosed) {
			return
		}
		s.logger.Infow("join rejected", "conn_id", conn.ID, "room_id", req.RoomID, "user_id", conn.UserID, "error", err)
		s.sendError(conn, err)
	}
}

func (s *Server) sendError(conn *collab.Conn, err error) {
	appErr := middleware.ToAppError(err)
	frame, encErr := collab.Encode(collab.EventError, collab.ErrorPayload{
		Code:    string(appErr.Code),
		Message: appErr.Message,
	})
	if encErr != nil {
		return
	}
	s.hub.Send(conn.ID, frame)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	s.logger.Warnw("websocket origin rejected", "origin", origin)
	return false
}
