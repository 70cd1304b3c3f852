package room

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mossy-p/tombola/internal/apperr"
	"github.com/mossy-p/tombola/internal/game"
	"github.com/mossy-p/tombola/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func boolp(v bool) *bool { return &v }

func strp(v string) *string { return &v }

func TestRoom_MarioWinsTombola(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "ab12", "admin-1")
	assert.Equal(t, "AB12", r.Code())

	mario := f.join(t, r, "conn-mario", "Mario")
	card := playerOf(r, mario).Card
	require.Len(t, card, game.CardSize)
	require.Len(t, f.notify.sentTo("conn-mario", models.EventJoined), 1)

	require.NoError(t, r.ToggleGame("admin-1", true))
	for range game.MaxNumber {
		if _, err := r.Extract("admin-1"); err != nil {
			require.ErrorIs(t, err, ErrGameFinished)
			break
		}
	}

	p := playerOf(r, mario)
	assert.Equal(t, game.CardSize, p.Score)
	assert.ElementsMatch(t, card, p.Matches)

	winners := f.notify.broadcastsOf(models.EventWinner)
	require.Len(t, winners, 1)
	win := winners[0].Payload.(models.WinnerPayload)
	assert.Equal(t, "Mario", win.PlayerName)
	assert.Equal(t, game.PrizeTombola, win.Prize)
	assert.Equal(t, 15, win.Score)

	finished := f.notify.broadcastsOf(models.EventGameFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, reasonTombola, finished[0].Payload.(models.GameFinishedPayload).Reason)

	// Depending on when the card filled, the next draw is refused as
	// finished or exhausted; both are capacity errors.
	_, err := r.Extract("admin-1")
	assert.ErrorIs(t, err, apperr.ErrCapacity)
	assert.ErrorIs(t, r.ToggleGame("admin-1", true), ErrGameFinished)
}

func TestRoom_ScoresOnlyMatchingCard(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	a := f.join(t, r, "conn-a", "Anna")
	b := f.join(t, r, "conn-b", "Bruno")
	setCard(r, a, seq(1, 15))
	setCard(r, b, seq(16, 30))

	// Leave 5 as the only undrawn number.
	r.mu.Lock()
	for n := game.MinNumber; n <= game.MaxNumber; n++ {
		if n != 5 {
			require.NoError(t, r.draw.Add(n))
		}
	}
	r.mu.Unlock()

	require.NoError(t, r.ToggleGame("admin-1", true))
	n, err := r.Extract("admin-1")
	require.NoError(t, err)
	require.Equal(t, 5, n)

	assert.Equal(t, 1, playerOf(r, a).Score)
	assert.Equal(t, []int{5}, playerOf(r, a).Matches)
	assert.Equal(t, 0, playerOf(r, b).Score)

	finished := f.notify.broadcastsOf(models.EventGameFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, reasonExhausted, finished[0].Payload.(models.GameFinishedPayload).Reason)

	_, err = r.Extract("admin-1")
	assert.ErrorIs(t, err, game.ErrExhausted)
	assert.ErrorIs(t, err, apperr.ErrCapacity)
}

func TestRoom_ExtractsEveryNumberOnce(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	require.NoError(t, r.ToggleGame("admin-1", true))

	seen := make(map[int]bool)
	for range game.MaxNumber {
		n, err := r.Extract("admin-1")
		require.NoError(t, err)
		require.False(t, seen[n], "number %d drawn twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, game.MaxNumber)
	assert.Len(t, extracted(r), game.MaxNumber)

	_, err := r.Extract("admin-1")
	assert.ErrorIs(t, err, game.ErrExhausted)
}

func TestRoom_ClassicModeAwardsIntermediatePrizes(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	_, err := r.UpdateSettings("admin-1", models.UpdateSettings{GameMode: strp("classic")})
	require.NoError(t, err)

	a := f.join(t, r, "conn-a", "Anna")
	b := f.join(t, r, "conn-b", "Bruno")
	setCard(r, a, seq(1, 15))
	setCard(r, b, seq(1, 15))

	r.mu.Lock()
	for n := 16; n <= game.MaxNumber; n++ {
		require.NoError(t, r.draw.Add(n))
	}
	r.mu.Unlock()

	require.NoError(t, r.ToggleGame("admin-1", true))
	for range 5 {
		_, err := r.Extract("admin-1")
		require.NoError(t, err)
	}

	var got []string
	for _, m := range f.notify.broadcastsOf(models.EventWinner) {
		w := m.Payload.(models.WinnerPayload)
		got = append(got, w.PlayerName+":"+w.Prize)
	}
	assert.Equal(t, []string{
		"Anna:Ambo", "Bruno:Ambo",
		"Anna:Terno", "Bruno:Terno",
		"Anna:Quaterna", "Bruno:Quaterna",
		"Anna:Cinquina", "Bruno:Cinquina",
	}, got)
}

func TestRoom_AdminOnlyOperations(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	p := f.join(t, r, "conn-p", "Piero")

	_, err := r.Extract("conn-p")
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	assert.ErrorIs(t, r.ToggleGame("conn-p", true), ErrNotAdmin)
	assert.ErrorIs(t, r.ToggleAutoExtract("conn-p", true, 0), ErrNotAdmin)
	_, err = r.UpdateSettings("conn-p", models.UpdateSettings{MaxPlayers: intp(2)})
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = r.RemovePlayer("conn-p", p)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, r.ResetGame("conn-p"), ErrNotAdmin)

	_, err = r.Extract("admin-1")
	assert.ErrorIs(t, err, ErrGameNotActive)
	assert.ErrorIs(t, r.ToggleAutoExtract("admin-1", true, 0), ErrGameNotActive)
}

func TestRoom_Capacity(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	_, err := r.UpdateSettings("admin-1", models.UpdateSettings{MaxPlayers: intp(1)})
	require.NoError(t, err)

	id := f.join(t, r, "conn-1", "Uno")
	_, err = r.AddPlayer("conn-2", "Due", "")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.ErrorIs(t, err, apperr.ErrCapacity)

	// A returning player keeps the seat.
	r.PlayerDisconnected("conn-1", id)
	assert.False(t, playerOf(r, id).Online)
	again, err := r.AddPlayer("conn-3", "Uno", id)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.True(t, playerOf(r, id).Online)
	assert.Equal(t, "conn-3", playerOf(r, id).ConnID)

	_, err = r.UpdateSettings("admin-1", models.UpdateSettings{MaxPlayers: intp(0)})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestRoom_JoinAfterFinishIsConfigurable(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	require.NoError(t, r.ToggleGame("admin-1", true))
	for range game.MaxNumber {
		_, err := r.Extract("admin-1")
		require.NoError(t, err)
	}

	f.join(t, r, "conn-1", "Tardo")

	_, err := r.UpdateSettings("admin-1", models.UpdateSettings{AllowJoinAfterFinish: boolp(false)})
	require.NoError(t, err)
	_, err = r.AddPlayer("conn-2", "Tardissimo", "")
	assert.ErrorIs(t, err, ErrGameFinished)
}

func TestRoom_RemovePlayerDisconnectsConnection(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	id := f.join(t, r, "conn-p", "Piero")
	require.True(t, f.notify.isMember("AB12", "conn-p"))

	connID, err := r.RemovePlayer("admin-1", id)
	require.NoError(t, err)
	assert.Equal(t, "conn-p", connID)
	assert.False(t, f.notify.isMember("AB12", "conn-p"))
	assert.Equal(t, models.EventKicked, f.notify.disconnected["conn-p"].Type)
	assert.Equal(t, Player{}, playerOf(r, id))

	_, err = r.RemovePlayer("admin-1", id)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestRoom_RequestNewCardOnlyWhileInactive(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	id := f.join(t, r, "conn-p", "Piero")

	require.NoError(t, r.RequestNewCard("conn-p", id))
	assert.Len(t, f.notify.sentTo("conn-p", models.EventJoined), 2)
	assert.ErrorIs(t, r.RequestNewCard("conn-x", id), ErrPlayerNotFound)

	require.NoError(t, r.ToggleGame("admin-1", true))
	assert.ErrorIs(t, r.RequestNewCard("conn-p", id), ErrGameActive)
}

func TestRoom_RequestNewCardOnlyBeforeFirstExtraction(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	id := f.join(t, r, "conn-p", "Piero")

	require.NoError(t, r.ToggleGame("admin-1", true))
	_, err := r.Extract("admin-1")
	require.NoError(t, err)
	require.NoError(t, r.ToggleGame("admin-1", false))

	before := playerOf(r, id).Card
	assert.ErrorIs(t, r.RequestNewCard("conn-p", id), ErrRoundStarted)
	assert.Equal(t, before, playerOf(r, id).Card)

	require.NoError(t, r.ResetGame("admin-1"))
	require.NoError(t, r.RequestNewCard("conn-p", id))
	assert.Zero(t, playerOf(r, id).Score)
}

func TestRoom_LateCardAlreadyFullWinsTombola(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	require.NoError(t, r.ToggleGame("admin-1", true))

	// Every number but 90 is out, so a card without 90 arrives full.
	r.mu.Lock()
	for _, n := range seq(1, 89) {
		require.NoError(t, r.draw.Add(n))
	}
	r.mu.Unlock()

	var late string
	for i := range 20 {
		id := f.join(t, r, "conn-"+strconv.Itoa(i), "Ritardo"+strconv.Itoa(i))
		p := playerOf(r, id)
		if p.Full() {
			late = id
			break
		}
	}
	require.NotEmpty(t, late, "no full card dealt")

	winners := f.notify.broadcastsOf(models.EventWinner)
	require.Len(t, winners, 1)
	win := winners[0].Payload.(models.WinnerPayload)
	assert.Equal(t, late, win.PlayerID)
	assert.Equal(t, game.PrizeTombola, win.Prize)
	assert.Equal(t, game.CardSize, win.Score)

	finished := f.notify.broadcastsOf(models.EventGameFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, reasonTombola, finished[0].Payload.(models.GameFinishedPayload).Reason)

	_, err := r.Extract("admin-1")
	assert.ErrorIs(t, err, ErrGameFinished)
	assert.Len(t, f.notify.broadcastsOf(models.EventWinner), 1)
}

func TestRoom_RejoinFromNewConnectionTakesSeat(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	id := f.join(t, r, "conn-old", "Piero")
	card := playerOf(r, id).Card

	again, err := r.AddPlayer("conn-new", "Piero", id)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	assert.Equal(t, models.EventKicked, f.notify.disconnected["conn-old"].Type)
	assert.False(t, f.notify.isMember("AB12", "conn-old"))
	assert.True(t, f.notify.isMember("AB12", "conn-new"))

	// The old socket closing afterwards must not take the seat offline.
	r.PlayerDisconnected("conn-old", id)
	p := playerOf(r, id)
	assert.True(t, p.Online)
	assert.Equal(t, "conn-new", p.ConnID)
	assert.Equal(t, card, p.Card)
	assert.Equal(t, 1, r.Summary().Players)
}

func TestRoom_ResetGame(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	id := f.join(t, r, "conn-p", "Piero")
	setCard(r, id, seq(1, 15))
	r.mu.Lock()
	require.NoError(t, r.draw.Add(3))
	r.findLocked(id).Mark(3)
	r.mu.Unlock()

	require.NoError(t, r.ToggleGame("admin-1", true))
	assert.ErrorIs(t, r.ResetGame("admin-1"), ErrGameActive)
	require.NoError(t, r.ToggleGame("admin-1", false))
	require.NoError(t, r.ResetGame("admin-1"))

	assert.Empty(t, extracted(r))
	p := playerOf(r, id)
	assert.Equal(t, seq(1, 15), p.Card)
	assert.Zero(t, p.Score)
	assert.Empty(t, p.Matches)
	assert.Len(t, f.notify.broadcastsOf(models.EventGameReset), 1)
}

func TestRoom_Chat(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")
	id := f.join(t, r, "conn-p", "Piero")

	msg, err := r.Chat(Sender{ConnID: "conn-p", PlayerID: id, Role: models.RolePlayer}, "m1", strings.Repeat("a", 600))
	require.NoError(t, err)
	assert.Len(t, msg.Text, MaxChatLength)
	assert.Equal(t, "Piero", msg.SenderName)

	_, err = r.UpdateSettings("admin-1", models.UpdateSettings{EnableChat: boolp(false)})
	require.NoError(t, err)

	_, err = r.Chat(Sender{ConnID: "conn-p", PlayerID: id, Role: models.RolePlayer}, "m2", "ciao")
	assert.ErrorIs(t, err, ErrChatDisabled)
	_, err = r.Chat(Sender{ConnID: "admin-1", Role: models.RoleAdmin}, "m3", "silenzio")
	require.NoError(t, err)
	_, err = r.Chat(Sender{ConnID: "conn-p", Role: models.RoleAdmin}, "m4", "io sono admin")
	assert.ErrorIs(t, err, ErrNotAdmin)

	assert.Len(t, f.notify.broadcastsOf(models.EventNewChatMessage), 2)
}

func TestRoom_NewAdminConnectionTakesOver(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "AB12", "admin-1")
	r := f.create(t, "AB12", "admin-2")

	assert.True(t, r.IsAdmin("admin-2"))
	assert.False(t, r.IsAdmin("admin-1"))
	assert.False(t, f.notify.isMember("AB12", "admin-1"))
	assert.Len(t, f.notify.sentTo("admin-1", models.EventAdminError), 1)
	assert.Len(t, f.notify.broadcastsOf(models.EventAdminChanged), 1)
}

func TestRoom_CloseIsOnce(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.create(t, "AB12", "admin-1")

	assert.True(t, r.Close(ReasonRemoved))
	assert.False(t, r.Close(ReasonRemoved))
	assert.Len(t, f.notify.broadcastsOf(models.EventRoomClosed), 1)

	_, err := r.AddPlayer("conn-p", "Piero", "")
	assert.True(t, errors.Is(err, ErrRoomClosed))

	// Closing detaches the room from its registry.
	assert.Equal(t, 0, f.reg.Len())
	_, err = f.reg.Find("AB12")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NotSame(t, r, f.create(t, "AB12", "admin-2"))
}

func TestSettings_ApplyRejectsShrinkBelowPlayers(t *testing.T) {
	s := DefaultSettings()
	_, err := s.apply(models.UpdateSettings{MaxPlayers: intp(2)}, 3)
	assert.ErrorIs(t, err, ErrBelowPlayers)

	next, err := s.apply(models.UpdateSettings{AutoExtractIntervalMs: intp(2500), GameMode: strp("ambo")}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, next.AutoExtractInterval)
	assert.Equal(t, game.ModeAmbo, next.GameMode)

	_, err = s.apply(models.UpdateSettings{GameMode: strp("bingo")}, 0)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestCanonicalCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  error
	}{
		{in: " ab12 ", want: "AB12"},
		{in: "test0001", want: "TEST0001"},
		{in: "ab", err: ErrInvalidRoomCode},
		{in: "abcdefghi", err: ErrInvalidRoomCode},
		{in: "ab-12", err: ErrInvalidRoomCode},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonicalCode(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
