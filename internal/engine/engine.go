// Package engine applies decoded client events to rooms on behalf of a
// connection and reports failures back to that connection only.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mossy-p/tombola/internal/apperr"
	"github.com/mossy-p/tombola/internal/metrics"
	"github.com/mossy-p/tombola/internal/models"
	"github.com/mossy-p/tombola/internal/room"
	"github.com/mossy-p/tombola/internal/security"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrNotJoined       = apperr.New(apperr.ErrInvalid, "join a room first")
	ErrAlreadyJoined   = apperr.New(apperr.ErrInvalid, "this connection is already in a room with another role")
	ErrChatRateLimited = apperr.New(apperr.ErrCapacity, "too many chat messages, slow down")
)

const (
	DefaultChatRate  = 1.0
	DefaultChatBurst = 5
)

// Session is what a connection currently is: the admin of a room, a player
// in a room, or nothing yet.
type Session struct {
	RoomCode string
	Role     models.SenderRole
	PlayerID string
}

type Options struct {
	ChatRate  float64
	ChatBurst int
}

type Engine struct {
	mu       sync.Mutex
	sessions map[string]Session

	rooms   *room.Registry
	notify  room.Notifier
	limiter *security.RateLimitManager
	opts    Options
	metrics *metrics.Collector
	log     *zap.Logger
	now     func() time.Time
}

func New(rooms *room.Registry, notify room.Notifier, limiter *security.RateLimitManager, opts Options, m *metrics.Collector, log *zap.Logger) *Engine {
	if opts.ChatRate <= 0 {
		opts.ChatRate = DefaultChatRate
	}
	if opts.ChatBurst <= 0 {
		opts.ChatBurst = DefaultChatBurst
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Engine{
		sessions: make(map[string]Session),
		rooms:    rooms,
		notify:   notify,
		limiter:  limiter,
		opts:     opts,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func (e *Engine) Session(connID string) (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[connID]
	return s, ok
}

func (e *Engine) setSession(connID string, s Session) {
	e.mu.Lock()
	e.sessions[connID] = s
	e.mu.Unlock()
}

func (e *Engine) dropSession(connID string) (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[connID]
	delete(e.sessions, connID)
	return s, ok
}

// Dispatch handles one inbound event from connID to completion.
func (e *Engine) Dispatch(ctx context.Context, connID string, msg models.Inbound) {
	var err error
	switch m := msg.(type) {
	case models.CreateRoom:
		err = e.createRoom(ctx, connID, m)
	case models.ExtractNumber:
		err = e.asAdmin(connID, func(r *room.Room) error {
			_, err := r.Extract(connID)
			return err
		})
	case models.ToggleGame:
		err = e.asAdmin(connID, func(r *room.Room) error {
			return r.ToggleGame(connID, m.Enabled)
		})
	case models.ToggleAutoExtract:
		err = e.asAdmin(connID, func(r *room.Room) error {
			return r.ToggleAutoExtract(connID, m.Enabled, time.Duration(m.IntervalMs)*time.Millisecond)
		})
	case models.RemovePlayer:
		err = e.asAdmin(connID, func(r *room.Room) error {
			kicked, err := r.RemovePlayer(connID, m.PlayerID)
			if kicked != "" {
				e.dropSession(kicked)
			}
			return err
		})
	case models.UpdateSettings:
		err = e.asAdmin(connID, func(r *room.Room) error {
			_, err := r.UpdateSettings(connID, m)
			return err
		})
	case models.ResetGame:
		err = e.asAdmin(connID, func(r *room.Room) error {
			return r.ResetGame(connID)
		})
	case models.JoinRoom:
		err = e.join(connID, m)
	case models.RequestNewCard:
		err = e.asPlayer(connID, func(r *room.Room, playerID string) error {
			return r.RequestNewCard(connID, playerID)
		})
	case models.ChatMessage:
		err = e.chat(connID, m)
	case models.Ping:
		e.notify.Send(connID, models.NewMessage(models.EventPong, models.PongPayload{
			Timestamp:  m.Timestamp,
			ServerTime: e.now().UnixMilli(),
		}))
	}

	if err != nil {
		e.Reject(connID, isAdminEvent(msg), err)
	}
}

// Reject reports err to connID as admin:error or player:error. A connection
// with no session yet is answered according to the kind of event it sent.
func (e *Engine) Reject(connID string, adminEvent bool, err error) {
	event := models.EventPlayerError
	if s, ok := e.Session(connID); (ok && s.Role == models.RoleAdmin) || (!ok && adminEvent) {
		event = models.EventAdminError
	}

	label := "internal"
	if kind := apperr.Kind(err); kind != nil {
		label = kind.Error()
	}
	e.metrics.Rejections.WithLabelValues(label).Inc()
	e.log.Debug("event rejected", zap.String("conn", connID), zap.String("kind", label), zap.Error(err))

	e.notify.Send(connID, models.NewMessage(event, models.ErrorPayload{Message: err.Error()}))
}

// Disconnect turns a dropped connection into the matching room transition:
// the admin seat is vacated, a player goes offline.
func (e *Engine) Disconnect(connID string) {
	e.limiter.Forget(chatKey(connID))

	s, ok := e.dropSession(connID)
	if !ok {
		return
	}
	r, err := e.rooms.Find(s.RoomCode)
	if err != nil {
		return
	}
	switch s.Role {
	case models.RoleAdmin:
		r.AdminDisconnected(connID)
	case models.RolePlayer:
		r.PlayerDisconnected(connID, s.PlayerID)
	}
}

func (e *Engine) createRoom(ctx context.Context, connID string, m models.CreateRoom) error {
	prev, ok := e.Session(connID)
	if ok && prev.Role != models.RoleAdmin {
		return ErrAlreadyJoined
	}

	r, err := e.rooms.Create(ctx, room.CreateRequest{
		RoomCode:  m.RoomCode,
		AdminCode: m.AdminCode,
		Name:      m.RoomName,
		ConnID:    connID,
	})
	if err != nil {
		return err
	}

	if ok && prev.RoomCode != r.Code() {
		if old, err := e.rooms.Find(prev.RoomCode); err == nil {
			old.AdminDisconnected(connID)
		}
	}
	e.setSession(connID, Session{RoomCode: r.Code(), Role: models.RoleAdmin})
	return nil
}

func (e *Engine) join(connID string, m models.JoinRoom) error {
	prev, ok := e.Session(connID)
	if ok && prev.Role == models.RoleAdmin {
		return ErrAlreadyJoined
	}

	r, err := e.rooms.Find(m.RoomCode)
	if err != nil {
		return err
	}
	playerID := m.PlayerID
	if ok && prev.RoomCode == r.Code() && playerID == "" {
		playerID = prev.PlayerID
	}
	id, err := r.AddPlayer(connID, m.PlayerName, playerID)
	if err != nil {
		return err
	}

	if ok && prev.RoomCode != r.Code() {
		if old, err := e.rooms.Find(prev.RoomCode); err == nil {
			old.PlayerDisconnected(connID, prev.PlayerID)
		}
	}
	e.mu.Lock()
	for other, sess := range e.sessions {
		// The room already kicked the seat's previous connection.
		if other != connID && sess.RoomCode == r.Code() && sess.PlayerID == id {
			delete(e.sessions, other)
		}
	}
	e.sessions[connID] = Session{RoomCode: r.Code(), Role: models.RolePlayer, PlayerID: id}
	e.mu.Unlock()
	return nil
}

func (e *Engine) chat(connID string, m models.ChatMessage) error {
	s, ok := e.Session(connID)
	if !ok {
		return ErrNotJoined
	}
	if !e.limiter.Allow(chatKey(connID), rate.Limit(e.opts.ChatRate), e.opts.ChatBurst) {
		return ErrChatRateLimited
	}
	r, err := e.rooms.Find(s.RoomCode)
	if err != nil {
		return err
	}
	_, err = r.Chat(room.Sender{ConnID: connID, PlayerID: s.PlayerID, Role: s.Role}, uuid.NewString(), m.Text)
	if err != nil {
		return err
	}
	e.metrics.Chat.Inc()
	return nil
}

func (e *Engine) asAdmin(connID string, fn func(*room.Room) error) error {
	s, ok := e.Session(connID)
	if !ok || s.Role != models.RoleAdmin {
		return room.ErrNotAdmin
	}
	r, err := e.rooms.Find(s.RoomCode)
	if err != nil {
		return err
	}
	return fn(r)
}

func (e *Engine) asPlayer(connID string, fn func(*room.Room, string) error) error {
	s, ok := e.Session(connID)
	if !ok || s.Role != models.RolePlayer {
		return ErrNotJoined
	}
	r, err := e.rooms.Find(s.RoomCode)
	if err != nil {
		return err
	}
	return fn(r, s.PlayerID)
}

func isAdminEvent(msg models.Inbound) bool {
	switch msg.(type) {
	case models.CreateRoom, models.ExtractNumber, models.ToggleGame, models.ToggleAutoExtract,
		models.RemovePlayer, models.UpdateSettings, models.ResetGame:
		return true
	}
	return false
}

func chatKey(connID string) string { return "chat:" + connID }
