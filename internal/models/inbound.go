package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Inbound is the closed set of events a client may send.
type Inbound interface{ isInbound() }

type CreateRoom struct {
	AdminCode string `json:"adminCode" validate:"required,max=64"`
	RoomCode  string `json:"roomCode" validate:"required,min=3,max=8,alphanum"`
	RoomName  string `json:"roomName" validate:"max=60"`
}

type ExtractNumber struct{}

type ToggleGame struct {
	Enabled bool `json:"enabled"`
}

type ToggleAutoExtract struct {
	Enabled    bool `json:"enabled"`
	IntervalMs int  `json:"intervalMs" validate:"omitempty,min=1000,max=60000"`
}

type RemovePlayer struct {
	PlayerID string `json:"playerId" validate:"required"`
}

// UpdateSettings is a partial update; nil fields are left unchanged.
type UpdateSettings struct {
	AutoExtractIntervalMs *int    `json:"autoExtractIntervalMs" validate:"omitempty,min=1000,max=60000"`
	MaxPlayers            *int    `json:"maxPlayers" validate:"omitempty,min=1,max=500"`
	GameMode              *string `json:"gameMode" validate:"omitempty,oneof=tombola ambo classic"`
	EnableChat            *bool   `json:"enableChat"`
	AllowJoinAfterFinish  *bool   `json:"allowJoinAfterFinish"`
}

type ResetGame struct{}

type JoinRoom struct {
	RoomCode   string `json:"roomCode" validate:"required,min=3,max=8,alphanum"`
	PlayerName string `json:"playerName" validate:"required,min=2,max=20"`
	PlayerID   string `json:"playerId" validate:"omitempty,max=64"`
}

type RequestNewCard struct{}

type ChatMessage struct {
	Text string `json:"text" validate:"required"`
}

type Ping struct {
	Timestamp int64 `json:"timestamp"`
}

func (CreateRoom) isInbound()        {}
func (ExtractNumber) isInbound()     {}
func (ToggleGame) isInbound()        {}
func (ToggleAutoExtract) isInbound() {}
func (RemovePlayer) isInbound()      {}
func (UpdateSettings) isInbound()    {}
func (ResetGame) isInbound()         {}
func (JoinRoom) isInbound()          {}
func (RequestNewCard) isInbound()    {}
func (ChatMessage) isInbound()       {}
func (Ping) isInbound()              {}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses a raw websocket frame into one of the Inbound variants.
// Unknown types and payloads failing validation are rejected here so room
// logic only ever sees well-formed events.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	var msg Inbound
	switch env.Type {
	case EventAdminCreateRoom:
		msg = &CreateRoom{}
	case EventAdminExtractNumber:
		msg = &ExtractNumber{}
	case EventAdminToggleGame:
		msg = &ToggleGame{}
	case EventAdminToggleAuto:
		msg = &ToggleAutoExtract{}
	case EventAdminRemovePlayer:
		msg = &RemovePlayer{}
	case EventAdminUpdateSettings:
		msg = &UpdateSettings{}
	case EventAdminResetGame:
		msg = &ResetGame{}
	case EventPlayerJoin:
		msg = &JoinRoom{}
	case EventPlayerNewCard:
		msg = &RequestNewCard{}
	case EventChatMessage:
		msg = &ChatMessage{}
	case EventPing:
		msg = &Ping{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}

	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %s", env.Type, describe(err))
	}

	return deref(msg), nil
}

func deref(msg Inbound) Inbound {
	switch m := msg.(type) {
	case *CreateRoom:
		return *m
	case *ExtractNumber:
		return *m
	case *ToggleGame:
		return *m
	case *ToggleAutoExtract:
		return *m
	case *RemovePlayer:
		return *m
	case *UpdateSettings:
		return *m
	case *ResetGame:
		return *m
	case *JoinRoom:
		return *m
	case *RequestNewCard:
		return *m
	case *ChatMessage:
		return *m
	case *Ping:
		return *m
	}
	return msg
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(fields, ", ")
}
