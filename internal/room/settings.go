package room

import (
	"strings"
	"time"

	"github.com/mossy-p/tombola/internal/game"
	"github.com/mossy-p/tombola/internal/models"
)

const (
	DefaultAutoExtractInterval = 6 * time.Second
	DefaultMaxPlayers          = 50
	MaxChatLength              = 500

	minCodeLength = 3
	maxCodeLength = 8
)

type Settings struct {
	AutoExtractInterval  time.Duration
	MaxPlayers           int
	GameMode             game.Mode
	EnableChat           bool
	AllowJoinAfterFinish bool
}

func DefaultSettings() Settings {
	return Settings{
		AutoExtractInterval:  DefaultAutoExtractInterval,
		MaxPlayers:           DefaultMaxPlayers,
		GameMode:             game.ModeTombola,
		EnableChat:           true,
		AllowJoinAfterFinish: true,
	}
}

func (s Settings) View() models.RoomSettings {
	return models.RoomSettings{
		AutoExtractIntervalMs: int(s.AutoExtractInterval / time.Millisecond),
		MaxPlayers:            s.MaxPlayers,
		GameMode:              string(s.GameMode),
		EnableChat:            s.EnableChat,
		AllowJoinAfterFinish:  s.AllowJoinAfterFinish,
	}
}

// apply returns s with patch merged in, or an error if the result is not a
// usable configuration for a room holding players players.
func (s Settings) apply(patch models.UpdateSettings, players int) (Settings, error) {
	out := s
	if patch.AutoExtractIntervalMs != nil {
		if *patch.AutoExtractIntervalMs <= 0 {
			return s, ErrInvalidSettings
		}
		out.AutoExtractInterval = time.Duration(*patch.AutoExtractIntervalMs) * time.Millisecond
	}
	if patch.MaxPlayers != nil {
		if *patch.MaxPlayers <= 0 {
			return s, ErrInvalidSettings
		}
		if *patch.MaxPlayers < players {
			return s, ErrBelowPlayers
		}
		out.MaxPlayers = *patch.MaxPlayers
	}
	if patch.GameMode != nil {
		mode := game.Mode(*patch.GameMode)
		if !mode.Valid() {
			return s, ErrInvalidSettings
		}
		out.GameMode = mode
	}
	if patch.EnableChat != nil {
		out.EnableChat = *patch.EnableChat
	}
	if patch.AllowJoinAfterFinish != nil {
		out.AllowJoinAfterFinish = *patch.AllowJoinAfterFinish
	}
	return out, nil
}

// CanonicalCode uppercases a room code and checks it is 3-8 ASCII letters or
// digits.
func CanonicalCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < minCodeLength || len(code) > maxCodeLength {
		return "", ErrInvalidRoomCode
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", ErrInvalidRoomCode
		}
	}
	return code, nil
}
