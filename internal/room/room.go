package room

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mossy-p/tombola/internal/game"
	"github.com/mossy-p/tombola/internal/metrics"
	"github.com/mossy-p/tombola/internal/models"
	"go.uber.org/zap"
)

const (
	reasonTombola   = "tombola"
	reasonExhausted = "exhausted"

	ReasonAdminGone = "admin did not return"
	ReasonInactive  = "inactive"
	ReasonShutdown  = "server shutting down"
	ReasonRemoved   = "removed"
)

// ownership is the admin state machine of a room:
//
//	Owned(connID) -> Vacant(deadline) -> Owned(newConnID) | Closed
//
// connID is empty while vacant; grace is armed only while vacant. term
// increments on every transition so a stale grace timer can tell it lost.
type ownership struct {
	connID   string
	deadline time.Time
	grace    *time.Timer
	term     uint64
}

// Room is one tombola session. Every method takes the room lock for its
// whole duration, so the auto-extract task and client events never
// interleave.
type Room struct {
	code      string
	name      string
	adminCode string
	createdAt time.Time

	mu           sync.Mutex
	owner        ownership
	players      []*Player
	draw         game.Draw
	gameActive   bool
	autoExtract  bool
	finished     bool
	closed       bool
	settings     Settings
	lastActivity time.Time
	auto         *autoTask

	gracePeriod time.Duration
	rng         *rand.Rand
	notify      Notifier
	metrics     *metrics.Collector
	log         *zap.Logger
	now         func() time.Time
	onClose     func(*Room)
}

type roomDeps struct {
	gracePeriod time.Duration
	settings    Settings
	rng         *rand.Rand
	notify      Notifier
	metrics     *metrics.Collector
	log         *zap.Logger
	now         func() time.Time
	onClose     func(*Room)
}

func newRoom(code, name, adminCode string, d roomDeps) *Room {
	if name == "" {
		name = "Stanza " + code
	}
	now := d.now()
	return &Room{
		code:         code,
		name:         name,
		adminCode:    adminCode,
		createdAt:    now,
		lastActivity: now,
		settings:     d.settings,
		gracePeriod:  d.gracePeriod,
		rng:          d.rng,
		notify:       d.notify,
		metrics:      d.metrics,
		log:          d.log.With(zap.String("room", code)),
		now:          d.now,
		onClose:      d.onClose,
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) Name() string { return r.name }

func (r *Room) AdminCode() string { return r.adminCode }

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Room) touch() { r.lastActivity = r.now() }

func (r *Room) requireAdmin(connID string) error {
	if r.closed {
		return ErrRoomClosed
	}
	if connID == "" || r.owner.connID != connID {
		return ErrNotAdmin
	}
	return nil
}

// IsAdmin reports whether connID currently owns the room.
func (r *Room) IsAdmin(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requireAdmin(connID) == nil
}

func (r *Room) claimAdmin(connID string) error {
	return r.claimAdminWith(r.adminCode, connID)
}

// claimAdminWith gives ownership to connID if adminCode is the one the room
// was created with, and sends it the full room state. A pending grace timer
// is cancelled.
func (r *Room) claimAdminWith(adminCode, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if adminCode != r.adminCode {
		return ErrWrongAdminCode
	}

	previous := r.owner.connID
	reclaimed := previous != "" || !r.owner.deadline.IsZero()
	if r.owner.grace != nil {
		r.owner.grace.Stop()
	}
	r.owner = ownership{connID: connID, term: r.owner.term + 1}
	r.touch()

	if previous != "" && previous != connID {
		r.notify.Unsubscribe(r.code, previous)
		r.notify.Send(previous, models.NewMessage(models.EventAdminError,
			models.ErrorPayload{Message: "room claimed by another admin session"}))
	}
	r.notify.Subscribe(r.code, connID)

	view := r.viewLocked()
	view.Reclaimed = reclaimed
	r.notify.Send(connID, models.NewMessage(models.EventRoomCreated, view))
	if reclaimed {
		r.notify.Broadcast(r.code, models.NewMessage(models.EventAdminChanged, struct{}{}))
	}

	r.log.Info("admin attached", zap.String("conn", connID), zap.Bool("reclaimed", reclaimed))
	return nil
}

// AdminDisconnected vacates ownership if connID holds it and starts the
// grace timer. When the timer fires with the room still vacant, the room
// closes.
func (r *Room) AdminDisconnected(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.owner.connID != connID {
		return
	}

	r.notify.Unsubscribe(r.code, connID)
	r.owner.connID = ""
	r.owner.deadline = r.now().Add(r.gracePeriod)
	r.owner.term++
	term := r.owner.term
	r.owner.grace = time.AfterFunc(r.gracePeriod, func() { r.expireGrace(term) })

	r.notify.Broadcast(r.code, models.NewMessage(models.EventAdminDisconnected,
		models.AdminDisconnectedPayload{GraceSeconds: int(r.gracePeriod / time.Second)}))
	r.log.Info("admin disconnected, grace period started", zap.Duration("grace", r.gracePeriod))
}

func (r *Room) expireGrace(term uint64) {
	r.mu.Lock()
	if r.closed || r.owner.connID != "" || r.owner.term != term {
		r.mu.Unlock()
		return
	}
	r.closeLocked(ReasonAdminGone)
	r.mu.Unlock()

	if r.onClose != nil {
		r.onClose(r)
	}
}

// AddPlayer admits a new player or reattaches an existing one when playerID
// matches. The joining connection receives player:joined.
func (r *Room) AddPlayer(connID, name, playerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", ErrRoomClosed
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}

	now := r.now()
	p, rejoined := r.findLocked(playerID), true
	if p == nil {
		rejoined = false
		if r.finished && !r.settings.AllowJoinAfterFinish {
			return "", ErrGameFinished
		}
		if len(r.players) >= r.settings.MaxPlayers {
			return "", ErrRoomFull
		}
		if playerID == "" {
			playerID = uuid.NewString()
		}
		p = &Player{
			ID:        playerID,
			Name:      name,
			Scorecard: game.NewScorecard(game.NewCard(r.rng), &r.draw),
			JoinedAt:  now,
		}
		r.players = append(r.players, p)
	} else if p.Online && p.ConnID != connID {
		r.notify.Unsubscribe(r.code, p.ConnID)
		r.notify.Disconnect(p.ConnID, models.NewMessage(models.EventKicked,
			models.KickedPayload{Reason: "signed in from another connection"}))
	}

	p.ConnID = connID
	p.Online = true
	p.LastSeenAt = now
	r.touch()

	r.notify.Subscribe(r.code, connID)
	r.notify.Send(connID, models.NewMessage(models.EventJoined, r.joinedLocked(p)))
	if r.owner.connID != "" {
		r.notify.Send(r.owner.connID, models.NewMessage(models.EventPlayerJoined, models.PlayerJoinedPayload{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Rejoined:   rejoined,
			Card:       slices.Clone(p.Card),
		}))
	}
	r.broadcastPlayersLocked()
	if !rejoined {
		r.settleLateCardLocked(p)
	}

	r.log.Info("player joined", zap.String("player", p.ID), zap.String("conn", connID), zap.Bool("rejoined", rejoined))
	return p.ID, nil
}

// PlayerDisconnected marks the player offline. The player keeps card and
// score until kicked.
func (r *Room) PlayerDisconnected(connID, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(playerID)
	if r.closed || p == nil || p.ConnID != connID {
		return
	}
	p.Online = false
	p.LastSeenAt = r.now()
	r.notify.Unsubscribe(r.code, connID)
	r.broadcastPlayersLocked()
}

// RemovePlayer kicks playerID and returns the connection it was using, or
// "" if it was offline.
func (r *Room) RemovePlayer(callerConn, playerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(callerConn); err != nil {
		return "", err
	}
	idx := slices.IndexFunc(r.players, func(p *Player) bool { return p.ID == playerID })
	if idx < 0 {
		return "", ErrPlayerNotFound
	}
	p := r.players[idx]
	r.players = slices.Delete(r.players, idx, idx+1)
	r.touch()

	var connID string
	if p.Online {
		connID = p.ConnID
		r.notify.Unsubscribe(r.code, connID)
		r.notify.Disconnect(connID, models.NewMessage(models.EventKicked,
			models.KickedPayload{Reason: "removed by the admin"}))
	}
	r.broadcastPlayersLocked()

	r.log.Info("player removed", zap.String("player", playerID))
	return connID, nil
}

// settleLateCardLocked handles a card dealt after numbers were drawn. Draws
// only award a prize on the number that reaches its threshold, so a card
// that arrives already full is awarded the Tombola here.
func (r *Room) settleLateCardLocked(p *Player) {
	if r.finished || !p.Full() {
		return
	}
	r.announceWinLocked(p, game.Win{Prize: game.FinalPrize(r.settings.GameMode), Score: p.Score}, r.draw.Last())
	r.finishLocked(reasonTombola)
}

// RequestNewCard deals a fresh card. Cards are only swapped while the game is
// paused and before the first number of the round.
func (r *Room) RequestNewCard(connID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	p := r.findLocked(playerID)
	if p == nil || p.ConnID != connID {
		return ErrPlayerNotFound
	}
	if r.gameActive {
		return ErrGameActive
	}
	if r.draw.Len() > 0 {
		return ErrRoundStarted
	}

	p.Scorecard = game.NewScorecard(game.NewCard(r.rng), nil)
	r.touch()
	r.notify.Send(connID, models.NewMessage(models.EventJoined, r.joinedLocked(p)))
	r.broadcastPlayersLocked()
	return nil
}

// Extract draws one number on the admin's request.
func (r *Room) Extract(callerConn string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(callerConn); err != nil {
		return 0, err
	}
	return r.extractLocked()
}

func (r *Room) extractLocked() (int, error) {
	if r.draw.Exhausted() {
		return 0, game.ErrExhausted
	}
	if r.finished {
		return 0, ErrGameFinished
	}
	if !r.gameActive {
		return 0, ErrGameNotActive
	}

	n, err := game.NextNumber(&r.draw, r.rng)
	if err != nil {
		r.finishLocked(reasonExhausted)
		return 0, err
	}
	if err := r.draw.Add(n); err != nil {
		return 0, err
	}
	r.touch()
	r.metrics.Extractions.Inc()

	r.notify.Broadcast(r.code, models.NewMessage(models.EventNumberExtracted,
		models.NumberExtractedPayload{Number: n, Count: r.draw.Len()}))
	if r.owner.connID != "" {
		r.notify.Send(r.owner.connID, models.NewMessage(models.EventAdminNumberExtracted,
			models.AdminNumberExtractedPayload{Number: n, ExtractedNumbers: r.draw.Numbers()}))
	}

	cards := make([]*game.Scorecard, len(r.players))
	for i, p := range r.players {
		cards[i] = &p.Scorecard
	}
	final := false
	for _, w := range game.Detect(n, r.settings.GameMode, cards) {
		r.announceWinLocked(r.players[w.Index], w, n)
		final = final || w.Prize.Final
	}
	r.broadcastPlayersLocked()

	switch {
	case final:
		r.finishLocked(reasonTombola)
	case r.draw.Exhausted():
		r.finishLocked(reasonExhausted)
	}
	return n, nil
}

func (r *Room) announceWinLocked(p *Player, w game.Win, number int) {
	r.metrics.Wins.WithLabelValues(w.Prize.Name).Inc()
	r.notify.Broadcast(r.code, models.NewMessage(models.EventWinner, models.WinnerPayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Prize:      w.Prize.Name,
		Score:      w.Score,
		Number:     number,
	}))
	r.log.Info("winner", zap.String("player", p.ID), zap.String("prize", w.Prize.Name))
}

func (r *Room) finishLocked(reason string) {
	r.finished = true
	r.gameActive = false
	r.autoExtract = false
	r.disarmLocked()

	r.notify.Broadcast(r.code, models.NewMessage(models.EventStatusChanged,
		models.StatusChangedPayload{GameActive: false}))
	r.notify.Broadcast(r.code, models.NewMessage(models.EventGameFinished,
		models.GameFinishedPayload{Reason: reason, ExtractedNumbers: r.draw.Numbers()}))
	r.log.Info("game finished", zap.String("reason", reason), zap.Int("extracted", r.draw.Len()))
}

// ToggleGame starts or stops the game. Stopping also stops auto-extraction.
func (r *Room) ToggleGame(callerConn string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(callerConn); err != nil {
		return err
	}
	if active && r.finished {
		return ErrGameFinished
	}

	r.gameActive = active
	if !active && r.autoExtract {
		r.autoExtract = false
		r.disarmLocked()
		r.broadcastAutoLocked()
	}
	r.touch()
	r.notify.Broadcast(r.code, models.NewMessage(models.EventStatusChanged,
		models.StatusChangedPayload{GameActive: active}))
	return nil
}

// ToggleAutoExtract arms or disarms the recurring draw. A positive interval
// replaces the configured one.
func (r *Room) ToggleAutoExtract(callerConn string, enabled bool, interval time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(callerConn); err != nil {
		return err
	}
	if enabled && !r.gameActive {
		return ErrGameNotActive
	}

	if interval > 0 {
		r.settings.AutoExtractInterval = interval
	}
	r.autoExtract = enabled
	if enabled {
		r.armLocked()
	} else {
		r.disarmLocked()
	}
	r.touch()
	r.broadcastAutoLocked()
	return nil
}

// UpdateSettings applies a partial settings change. Changing the interval
// while auto-extraction runs re-arms the timer.
func (r *Room) UpdateSettings(callerConn string, patch models.UpdateSettings) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(callerConn); err != nil {
		return Settings{}, err
	}
	next, err := r.settings.apply(patch, len(r.players))
	if err != nil {
		return r.settings, err
	}

	rearm := next.AutoExtractInterval != r.settings.AutoExtractInterval && r.auto != nil
	r.settings = next
	if rearm {
		r.armLocked()
	}
	r.touch()
	r.notify.Broadcast(r.code, models.NewMessage(models.EventSettingsUpdated, next.View()))
	return next, nil
}

// ResetGame clears the draw and every score so a new game can start with
// the same players and cards.
func (r *Room) ResetGame(callerConn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(callerConn); err != nil {
		return err
	}
	if r.gameActive {
		return ErrGameActive
	}

	r.draw.Reset()
	r.finished = false
	for _, p := range r.players {
		p.Scorecard = game.NewScorecard(p.Card, nil)
	}
	r.touch()
	r.notify.Broadcast(r.code, models.NewMessage(models.EventGameReset, struct{}{}))
	r.broadcastPlayersLocked()
	return nil
}

// Sender identifies the author of a chat message.
type Sender struct {
	ConnID   string
	PlayerID string
	Role     models.SenderRole
}

// Chat relays text to the whole room, truncated to MaxChatLength runes.
func (r *Room) Chat(from Sender, id, text string) (models.ChatMessageView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return models.ChatMessageView{}, ErrRoomClosed
	}

	msg := models.ChatMessageView{
		ID:         id,
		SenderRole: from.Role,
		Text:       truncate(text, MaxChatLength),
		Timestamp:  r.now(),
	}
	switch from.Role {
	case models.RoleAdmin:
		if err := r.requireAdmin(from.ConnID); err != nil {
			return models.ChatMessageView{}, err
		}
		msg.SenderID, msg.SenderName = "admin", "Admin"
	default:
		p := r.findLocked(from.PlayerID)
		if p == nil || p.ConnID != from.ConnID {
			return models.ChatMessageView{}, ErrPlayerNotFound
		}
		if !r.settings.EnableChat {
			return models.ChatMessageView{}, ErrChatDisabled
		}
		msg.SenderID, msg.SenderName = p.ID, p.Name
	}

	r.touch()
	r.notify.Broadcast(r.code, models.NewMessage(models.EventNewChatMessage, msg))
	return msg, nil
}

// Close tears the room down: timers stop, members are told why, and the
// broadcast group is dropped. It reports false if the room was already
// closed.
func (r *Room) Close(reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked(reason)
}

func (r *Room) closeLocked(reason string) bool {
	if r.closed {
		return false
	}
	r.closed = true
	r.gameActive = false
	r.autoExtract = false
	r.disarmLocked()
	if r.owner.grace != nil {
		r.owner.grace.Stop()
		r.owner.grace = nil
	}

	r.notify.Broadcast(r.code, models.NewMessage(models.EventRoomClosed, models.RoomClosedPayload{Reason: reason}))
	r.notify.DropRoom(r.code)
	r.metrics.Closures.WithLabelValues(reason).Inc()
	r.log.Info("room closed", zap.String("reason", reason))
	return true
}

// expireIfIdle closes the room when it has no players and has seen no
// activity for longer than timeout.
func (r *Room) expireIfIdle(now time.Time, timeout time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || len(r.players) > 0 || now.Sub(r.lastActivity) <= timeout {
		return false
	}
	return r.closeLocked(ReasonInactive)
}

// Snapshot is a consistent copy of the room state, for callers outside the
// lock.
type Snapshot struct {
	View         models.RoomView
	AdminOnline  bool
	LastActivity time.Time
	Closed       bool
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		View:         r.viewLocked(),
		AdminOnline:  r.owner.connID != "",
		LastActivity: r.lastActivity,
		Closed:       r.closed,
	}
}

func (r *Room) Summary() models.RoomSummary {
	s := r.Snapshot()
	online := 0
	for _, p := range s.View.Players {
		if p.IsOnline {
			online++
		}
	}
	return models.RoomSummary{
		Code:          r.code,
		Name:          r.name,
		Players:       len(s.View.Players),
		OnlinePlayers: online,
		Extracted:     len(s.View.ExtractedNumbers),
		GameActive:    s.View.GameActive,
		AutoExtract:   s.View.AutoExtract,
		AdminOnline:   s.AdminOnline,
		CreatedAt:     r.createdAt,
	}
}

func (r *Room) findLocked(playerID string) *Player {
	if playerID == "" {
		return nil
	}
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) playersLocked(withCards bool) []models.PlayerView {
	out := make([]models.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.view(withCards))
	}
	return out
}

func (r *Room) viewLocked() models.RoomView {
	return models.RoomView{
		Code:             r.code,
		RoomName:         r.name,
		Players:          r.playersLocked(true),
		ExtractedNumbers: r.draw.Numbers(),
		GameActive:       r.gameActive,
		AutoExtract:      r.autoExtract,
		Finished:         r.finished,
		Settings:         r.settings.View(),
		CreatedAt:        r.createdAt,
	}
}

func (r *Room) joinedLocked(p *Player) models.JoinedPayload {
	return models.JoinedPayload{
		PlayerID:         p.ID,
		RoomCode:         r.code,
		RoomName:         r.name,
		Card:             slices.Clone(p.Card),
		Matches:          slices.Clone(p.Matches),
		Score:            p.Score,
		Players:          r.playersLocked(false),
		ExtractedNumbers: r.draw.Numbers(),
		GameActive:       r.gameActive,
		Settings:         r.settings.View(),
	}
}

func (r *Room) broadcastPlayersLocked() {
	r.notify.Broadcast(r.code, models.NewMessage(models.EventPlayersUpdated,
		models.PlayersUpdatedPayload{Players: r.playersLocked(false)}))
}

func (r *Room) broadcastAutoLocked() {
	r.notify.Broadcast(r.code, models.NewMessage(models.EventAutoExtractChanged, models.AutoExtractChangedPayload{
		Enabled:    r.autoExtract,
		IntervalMs: int(r.settings.AutoExtractInterval / time.Millisecond),
	}))
}
