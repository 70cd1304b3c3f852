// Package room holds live tombola rooms: their state, the admin ownership
// state machine, the auto-extract scheduler and the inactivity reaper.
package room

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/mossy-p/tombola/internal/admin"
	"github.com/mossy-p/tombola/internal/game"
	"github.com/mossy-p/tombola/internal/metrics"
	"github.com/mossy-p/tombola/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultAdminGracePeriod  = 5 * time.Minute
	DefaultInactivityTimeout = 2 * time.Hour
)

// Claimer charges a room against an admin code's quota.
type Claimer interface {
	Claim(ctx context.Context, adminCode, roomCode string) error
}

type Options struct {
	AdminGracePeriod  time.Duration
	InactivityTimeout time.Duration
	Defaults          Settings
	// NewRand seeds the generator of each new room. Defaults to game.NewRand.
	NewRand func() *rand.Rand
	Now     func() time.Time
}

// Registry maps room codes to rooms. Lock order is always registry, then
// room.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	claimer Claimer
	notify  Notifier
	opts    Options
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewRegistry(claimer Claimer, notify Notifier, opts Options, m *metrics.Collector, log *zap.Logger) *Registry {
	if opts.AdminGracePeriod <= 0 {
		opts.AdminGracePeriod = DefaultAdminGracePeriod
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = DefaultInactivityTimeout
	}
	if opts.Defaults == (Settings{}) {
		opts.Defaults = DefaultSettings()
	}
	if opts.NewRand == nil {
		opts.NewRand = game.NewRand
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		claimer: claimer,
		notify:  notify,
		opts:    opts,
		metrics: m,
		log:     log,
	}
}

type CreateRequest struct {
	RoomCode  string
	AdminCode string
	Name      string
	ConnID    string
}

// Create opens a room, or hands an existing one back to its admin when the
// admin code matches. Only a brand-new room is charged against the quota.
func (reg *Registry) Create(ctx context.Context, req CreateRequest) (*Room, error) {
	code, err := CanonicalCode(req.RoomCode)
	if err != nil {
		return nil, err
	}
	adminCode := admin.NormalizeCode(req.AdminCode)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[code]; ok {
		switch err := r.claimAdminWith(adminCode, req.ConnID); {
		case err == nil:
			return r, nil
		case !errors.Is(err, ErrRoomClosed):
			return nil, err
		}
		// Closed but not yet detached: replace it below.
	}

	if err := reg.claimer.Claim(ctx, adminCode, code); err != nil {
		return nil, err
	}

	r := newRoom(code, req.Name, adminCode, roomDeps{
		gracePeriod: reg.opts.AdminGracePeriod,
		settings:    reg.opts.Defaults,
		rng:         reg.opts.NewRand(),
		notify:      reg.notify,
		metrics:     reg.metrics,
		log:         reg.log,
		now:         reg.opts.Now,
		onClose:     func(r *Room) { reg.detach(r) },
	})
	if _, replaced := reg.rooms[code]; !replaced {
		reg.metrics.Rooms.Inc()
	}
	reg.rooms[code] = r
	if err := r.claimAdmin(req.ConnID); err != nil {
		return nil, err
	}

	reg.log.Info("room created", zap.String("room", code), zap.String("conn", req.ConnID))
	return r, nil
}

// Find returns the live room for code.
func (reg *Registry) Find(code string) (*Room, error) {
	code, err := CanonicalCode(code)
	if err != nil {
		return nil, err
	}
	reg.mu.RLock()
	r, ok := reg.rooms[code]
	reg.mu.RUnlock()
	if !ok || r.Closed() {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Remove closes the room and drops it from the registry.
func (reg *Registry) Remove(code, reason string) bool {
	r, err := reg.Find(code)
	if err != nil {
		return false
	}
	r.Close(reason)
	return reg.detach(r)
}

// detach deletes r if it is still the entry for its code. It is safe to call
// from every close path; only the first call removes anything.
func (reg *Registry) detach(r *Room) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.rooms[r.code] != r {
		return false
	}
	delete(reg.rooms, r.code)
	reg.metrics.Rooms.Dec()
	reg.log.Info("room removed", zap.String("room", r.code))
	return true
}

func (reg *Registry) snapshot() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Summaries lists every live room ordered by code.
func (reg *Registry) Summaries() []models.RoomSummary {
	rooms := reg.snapshot()
	out := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		if r.Closed() {
			continue
		}
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (reg *Registry) Stats() models.RoomStats {
	var st models.RoomStats
	for _, s := range reg.Summaries() {
		st.TotalRooms++
		st.TotalPlayers += s.Players
		st.OnlinePlayers += s.OnlinePlayers
		if s.GameActive {
			st.ActiveGames++
		}
	}
	return st
}

// Shutdown closes every room.
func (reg *Registry) Shutdown() {
	for _, r := range reg.snapshot() {
		r.Close(ReasonShutdown)
		reg.detach(r)
	}
}
