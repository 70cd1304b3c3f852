package room

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/mossy-p/tombola/internal/admin"
	"github.com/mossy-p/tombola/internal/game"
	"github.com/mossy-p/tombola/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type delivery struct {
	To  string
	Msg models.OutboundMessage
}

// recorder is a Notifier that remembers everything it was asked to do.
type recorder struct {
	mu           sync.Mutex
	direct       []delivery
	broadcasts   []delivery
	disconnected map[string]models.OutboundMessage
	members      map[string]map[string]bool
	dropped      []string
}

func newRecorder() *recorder {
	return &recorder{
		disconnected: make(map[string]models.OutboundMessage),
		members:      make(map[string]map[string]bool),
	}
}

func (n *recorder) Send(connID string, msg models.OutboundMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct = append(n.direct, delivery{To: connID, Msg: msg})
}

func (n *recorder) Broadcast(roomCode string, msg models.OutboundMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, delivery{To: roomCode, Msg: msg})
}

func (n *recorder) Subscribe(roomCode, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.members[roomCode] == nil {
		n.members[roomCode] = make(map[string]bool)
	}
	n.members[roomCode][connID] = true
}

func (n *recorder) Unsubscribe(roomCode, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.members[roomCode], connID)
}

func (n *recorder) Disconnect(connID string, msg models.OutboundMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnected[connID] = msg
}

func (n *recorder) DropRoom(roomCode string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.members, roomCode)
	n.dropped = append(n.dropped, roomCode)
}

func (n *recorder) broadcastsOf(t models.EventType) []models.OutboundMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.OutboundMessage
	for _, d := range n.broadcasts {
		if d.Msg.Type == t {
			out = append(out, d.Msg)
		}
	}
	return out
}

func (n *recorder) sentTo(connID string, t models.EventType) []models.OutboundMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.OutboundMessage
	for _, d := range n.direct {
		if d.To == connID && d.Msg.Type == t {
			out = append(out, d.Msg)
		}
	}
	return out
}

func (n *recorder) isMember(roomCode, connID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.members[roomCode][connID]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 12, 24, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	reg     *Registry
	notify  *recorder
	manager *admin.Manager
	clock   *fakeClock
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	manager := admin.NewManager(admin.NewMemoryStore(), admin.Options{}, zap.NewNop())
	require.NoError(t, manager.Issue(context.Background(), "TEST01", 5))

	clock := newFakeClock()
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	if opts.NewRand == nil {
		seed := uint64(1)
		opts.NewRand = func() *rand.Rand {
			seed++
			return game.NewSeededRand(seed)
		}
	}

	notify := newRecorder()
	reg := NewRegistry(manager, notify, opts, nil, zap.NewNop())
	t.Cleanup(reg.Shutdown)

	return &fixture{reg: reg, notify: notify, manager: manager, clock: clock}
}

func (f *fixture) create(t *testing.T, roomCode, connID string) *Room {
	t.Helper()
	r, err := f.reg.Create(context.Background(), CreateRequest{
		RoomCode:  roomCode,
		AdminCode: "TEST01",
		Name:      "Natale",
		ConnID:    connID,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) join(t *testing.T, r *Room, connID, name string) string {
	t.Helper()
	id, err := r.AddPlayer(connID, name, "")
	require.NoError(t, err)
	return id
}

func playerOf(r *Room, id string) Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findLocked(id)
	if p == nil {
		return Player{}
	}
	return *p
}

func setCard(r *Room, id string, card []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findLocked(id).Scorecard = game.NewScorecard(card, nil)
}

func extracted(r *Room) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draw.Numbers()
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, n)
	}
	return out
}
