package game

import "slices"

// Mode selects the prize table of a room.
type Mode string

const (
	ModeTombola Mode = "tombola"
	ModeAmbo    Mode = "ambo"
	ModeClassic Mode = "classic"
)

const (
	PrizeAmbo     = "Ambo"
	PrizeTerno    = "Terno"
	PrizeQuaterna = "Quaterna"
	PrizeCinquina = "Cinquina"
	PrizeTombola  = "Tombola"
)

// Prize is awarded when a card's score reaches Threshold. A Final prize ends
// the game.
type Prize struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
	Final     bool   `json:"final"`
}

var tombola = Prize{Name: PrizeTombola, Threshold: CardSize, Final: true}

// Thresholds are ascending within a mode; the full card is always last.
var prizeTable = map[Mode][]Prize{
	ModeTombola: {tombola},
	ModeAmbo: {
		{Name: PrizeAmbo, Threshold: 2},
		tombola,
	},
	ModeClassic: {
		{Name: PrizeAmbo, Threshold: 2},
		{Name: PrizeTerno, Threshold: 3},
		{Name: PrizeQuaterna, Threshold: 4},
		{Name: PrizeCinquina, Threshold: 5},
		tombola,
	},
}

func (m Mode) Valid() bool {
	_, ok := prizeTable[m]
	return ok
}

// Prizes returns the prize table of m. Unknown modes play for the full card
// only.
func Prizes(m Mode) []Prize {
	if p, ok := prizeTable[m]; ok {
		return slices.Clone(p)
	}
	return []Prize{tombola}
}

// FinalPrize is the prize that ends a game in mode m.
func FinalPrize(m Mode) Prize {
	table := Prizes(m)
	return table[len(table)-1]
}

// Scorecard is a card plus the numbers matched on it so far.
type Scorecard struct {
	Card    []int `json:"card"`
	Matches []int `json:"matches"`
	Score   int   `json:"score"`
}

// NewScorecard starts tracking card, marking numbers already present in d in
// draw order.
func NewScorecard(card []int, d *Draw) Scorecard {
	sc := Scorecard{Card: card, Matches: []int{}}
	if d != nil {
		for _, n := range d.order {
			sc.Mark(n)
		}
	}
	return sc
}

func (s *Scorecard) Contains(n int) bool {
	_, found := slices.BinarySearch(s.Card, n)
	return found
}

// Mark records n if it is on the card and not yet matched. The score moves
// with the matches, one number at a time.
func (s *Scorecard) Mark(n int) bool {
	if !s.Contains(n) || slices.Contains(s.Matches, n) {
		return false
	}
	s.Matches = append(s.Matches, n)
	s.Score = len(s.Matches)
	return true
}

func (s *Scorecard) Full() bool { return s.Score == len(s.Card) }

// Win is a prize reached by the card at Index on the current draw.
type Win struct {
	Index int
	Prize Prize
	Score int
}

// Detect marks number on every card and reports each prize whose threshold a
// card hits exactly on this draw, in card order.
func Detect(number int, mode Mode, cards []*Scorecard) []Win {
	table := Prizes(mode)

	var wins []Win
	for i, sc := range cards {
		if !sc.Mark(number) {
			continue
		}
		for _, p := range table {
			if sc.Score == p.Threshold {
				wins = append(wins, Win{Index: i, Prize: p, Score: sc.Score})
			}
		}
	}
	return wins
}
