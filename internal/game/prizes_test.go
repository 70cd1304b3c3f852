package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCard = []int{1, 5, 12, 18, 23, 29, 34, 40, 47, 55, 61, 68, 72, 80, 88}

func TestScorecard_MarkKeepsDrawOrder(t *testing.T) {
	sc := NewScorecard(testCard, nil)

	assert.True(t, sc.Mark(40))
	assert.True(t, sc.Mark(5))
	assert.False(t, sc.Mark(6), "not on card")
	assert.False(t, sc.Mark(5), "already matched")

	assert.Equal(t, []int{40, 5}, sc.Matches)
	assert.Equal(t, 2, sc.Score)
}

func TestNewScorecard_PreloadsDrawnNumbers(t *testing.T) {
	var d Draw
	for _, n := range []int{88, 2, 1} {
		require.NoError(t, d.Add(n))
	}

	sc := NewScorecard(testCard, &d)

	assert.Equal(t, []int{88, 1}, sc.Matches)
	assert.Equal(t, 2, sc.Score)
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name      string
		mode      Mode
		preMarked int
		wantPrize []string
	}{
		{name: "tombola mode ignores ambo", mode: ModeTombola, preMarked: 1, wantPrize: nil},
		{name: "ambo mode awards ambo", mode: ModeAmbo, preMarked: 1, wantPrize: []string{PrizeAmbo}},
		{name: "classic awards cinquina", mode: ModeClassic, preMarked: 4, wantPrize: []string{PrizeCinquina}},
		{name: "full card in every mode", mode: ModeAmbo, preMarked: 14, wantPrize: []string{PrizeTombola}},
		{name: "unknown mode plays full card", mode: Mode("bogus"), preMarked: 14, wantPrize: []string{PrizeTombola}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := NewScorecard(testCard, nil)
			for _, n := range testCard[:tc.preMarked] {
				sc.Mark(n)
			}

			wins := Detect(testCard[tc.preMarked], tc.mode, []*Scorecard{&sc})

			var got []string
			for _, w := range wins {
				got = append(got, w.Prize.Name)
				assert.Equal(t, sc.Score, w.Score)
			}
			assert.Equal(t, tc.wantPrize, got)
		})
	}
}

func TestDetect_OnlyCardsHoldingTheNumberScore(t *testing.T) {
	a := NewScorecard([]int{1, 2, 3}, nil)
	b := NewScorecard([]int{4, 5, 6}, nil)

	Detect(2, ModeTombola, []*Scorecard{&a, &b})

	assert.Equal(t, 1, a.Score)
	assert.Equal(t, 0, b.Score)
}

func TestDetect_TiesReportedInCardOrder(t *testing.T) {
	a := NewScorecard([]int{1, 9}, nil)
	b := NewScorecard([]int{2, 9}, nil)
	a.Mark(1)
	b.Mark(2)

	wins := Detect(9, ModeAmbo, []*Scorecard{&a, &b})

	require.Len(t, wins, 2)
	assert.Equal(t, 0, wins[0].Index)
	assert.Equal(t, 1, wins[1].Index)
}

func TestPrizes_TableDriven(t *testing.T) {
	classic := Prizes(ModeClassic)
	require.Len(t, classic, 5)
	assert.True(t, classic[len(classic)-1].Final)
	assert.True(t, ModeClassic.Valid())
	assert.False(t, Mode("x").Valid())
}

func TestFinalPrize_IsTombolaInEveryMode(t *testing.T) {
	for _, m := range []Mode{ModeTombola, ModeAmbo, ModeClassic, Mode("bogus")} {
		p := FinalPrize(m)
		assert.Equal(t, PrizeTombola, p.Name, m)
		assert.Equal(t, CardSize, p.Threshold, m)
		assert.True(t, p.Final, m)
	}
}
