package models

import "time"

// RoomSettings is the admin-tunable part of a room.
type RoomSettings struct {
	AutoExtractIntervalMs int    `json:"autoExtractIntervalMs"`
	MaxPlayers            int    `json:"maxPlayers"`
	GameMode              string `json:"gameMode"`
	EnableChat            bool   `json:"enableChat"`
	AllowJoinAfterFinish  bool   `json:"allowJoinAfterFinish"`
}

// PlayerView is a player as shown to other room members. Card is only
// filled for the admin and for the player itself.
type PlayerView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Matches  []int     `json:"matches"`
	Card     []int     `json:"card,omitempty"`
	IsOnline bool      `json:"isOnline"`
	JoinedAt time.Time `json:"joinedAt"`
}

// RoomView is the full room state sent to the admin on create or reclaim.
type RoomView struct {
	Code             string       `json:"code"`
	RoomName         string       `json:"roomName"`
	Players          []PlayerView `json:"players"`
	ExtractedNumbers []int        `json:"extractedNumbers"`
	GameActive       bool         `json:"gameActive"`
	AutoExtract      bool         `json:"autoExtract"`
	Finished         bool         `json:"finished"`
	Settings         RoomSettings `json:"settings"`
	Reclaimed        bool         `json:"reclaimed"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// JoinedPayload answers player:join.
type JoinedPayload struct {
	PlayerID         string       `json:"playerId"`
	RoomCode         string       `json:"roomCode"`
	RoomName         string       `json:"roomName"`
	Card             []int        `json:"card"`
	Matches          []int        `json:"matches"`
	Score            int          `json:"score"`
	Players          []PlayerView `json:"players"`
	ExtractedNumbers []int        `json:"extractedNumbers"`
	GameActive       bool         `json:"gameActive"`
	Settings         RoomSettings `json:"settings"`
}

// RoomSummary is the public HTTP view of a room.
type RoomSummary struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Players       int       `json:"players"`
	OnlinePlayers int       `json:"onlinePlayers"`
	Extracted     int       `json:"extracted"`
	GameActive    bool      `json:"gameActive"`
	AutoExtract   bool      `json:"autoExtract"`
	AdminOnline   bool      `json:"adminOnline"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RoomStats aggregates every live room.
type RoomStats struct {
	TotalRooms    int `json:"totalRooms"`
	ActiveGames   int `json:"activeGames"`
	TotalPlayers  int `json:"totalPlayers"`
	OnlinePlayers int `json:"onlinePlayers"`
}

type SenderRole string

const (
	RoleAdmin  SenderRole = "admin"
	RolePlayer SenderRole = "player"
)

// ChatMessageView is relayed to the room and never stored.
type ChatMessageView struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"senderId"`
	SenderName string     `json:"senderName"`
	SenderRole SenderRole `json:"senderRole"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
}
