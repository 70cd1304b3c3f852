package room

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mossy-p/tombola/internal/game"
	"github.com/mossy-p/tombola/internal/models"
)

// Player keeps its ID, card and score across reconnects; only ConnID
// changes.
type Player struct {
	ID     string
	ConnID string
	Name   string
	game.Scorecard
	JoinedAt   time.Time
	LastSeenAt time.Time
	Online     bool
}

func (p *Player) view(withCard bool) models.PlayerView {
	v := models.PlayerView{
		ID:       p.ID,
		Name:     p.Name,
		Score:    p.Score,
		Matches:  slices.Clone(p.Matches),
		IsOnline: p.Online,
		JoinedAt: p.JoinedAt,
	}
	if withCard {
		v.Card = slices.Clone(p.Card)
	}
	return v
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 20 {
		return "", ErrInvalidName
	}
	return name, nil
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
