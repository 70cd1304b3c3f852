package models

import "encoding/json"

// EventType names a websocket event in either direction.
type EventType string

// Client -> server
const (
	EventAdminCreateRoom     EventType = "admin:create-room"
	EventAdminExtractNumber  EventType = "admin:extract-number"
	EventAdminToggleGame     EventType = "admin:toggle-game"
	EventAdminToggleAuto     EventType = "admin:toggle-auto-extract"
	EventAdminRemovePlayer   EventType = "admin:remove-player"
	EventAdminUpdateSettings EventType = "admin:update-settings"
	EventAdminResetGame      EventType = "admin:reset-game"
	EventPlayerJoin          EventType = "player:join"
	EventPlayerNewCard       EventType = "player:request-new-card"
	EventChatMessage         EventType = "chat:message"
	EventPing                EventType = "ping"
)

// Server -> client
const (
	EventNumberExtracted      EventType = "game:number-extracted"
	EventStatusChanged        EventType = "game:status-changed"
	EventAutoExtractChanged   EventType = "game:auto-extract-changed"
	EventWinner               EventType = "game:winner"
	EventGameFinished         EventType = "game:finished"
	EventGameReset            EventType = "game:reset"
	EventPlayersUpdated       EventType = "room:players-updated"
	EventSettingsUpdated      EventType = "room:settings-updated"
	EventRoomClosed           EventType = "room:closed"
	EventNewChatMessage       EventType = "chat:new-message"
	EventAdminDisconnected    EventType = "admin:disconnected"
	EventAdminChanged         EventType = "admin:changed"
	EventRoomCreated          EventType = "admin:room-created"
	EventPlayerJoined         EventType = "admin:player-joined"
	EventAdminNumberExtracted EventType = "admin:number-extracted"
	EventAdminError           EventType = "admin:error"
	EventJoined               EventType = "player:joined"
	EventKicked               EventType = "player:kicked"
	EventPlayerError          EventType = "player:error"
	EventPong                 EventType = "pong"
)

// Envelope is the wire frame for every websocket message.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutboundMessage is an event on its way to one or more sockets.
type OutboundMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

func NewMessage(t EventType, payload any) OutboundMessage {
	return OutboundMessage{Type: t, Payload: payload}
}

// ErrorPayload is carried by admin:error and player:error.
type ErrorPayload struct {
	Message string `json:"message"`
}

type NumberExtractedPayload struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}

type AdminNumberExtractedPayload struct {
	Number           int   `json:"number"`
	ExtractedNumbers []int `json:"extractedNumbers"`
}

type StatusChangedPayload struct {
	GameActive bool `json:"gameActive"`
}

type AutoExtractChangedPayload struct {
	Enabled    bool `json:"enabled"`
	IntervalMs int  `json:"intervalMs"`
}

type WinnerPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Prize      string `json:"prize"`
	Score      int    `json:"score"`
	Number     int    `json:"number"`
}

type GameFinishedPayload struct {
	Reason           string `json:"reason"`
	ExtractedNumbers []int  `json:"extractedNumbers"`
}

type PlayersUpdatedPayload struct {
	Players []PlayerView `json:"players"`
}

type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

type KickedPayload struct {
	Reason string `json:"reason"`
}

type AdminDisconnectedPayload struct {
	GraceSeconds int `json:"graceSeconds"`
}

type PlayerJoinedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Rejoined   bool   `json:"rejoined"`
	Card       []int  `json:"card,omitempty"`
}

type PongPayload struct {
	Timestamp  int64 `json:"timestamp,omitempty"`
	ServerTime int64 `json:"serverTime"`
}
