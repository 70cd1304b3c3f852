// Package admin issues admin codes, enforces their room quota and
// authenticates super-admins.
package admin

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mossy-p/tombola/internal/apperr"
)

var (
	ErrCodeNotFound  = apperr.New(apperr.ErrAuthorization, "invalid admin code")
	ErrCodeExists    = apperr.New(apperr.ErrInvalid, "admin code already exists")
	ErrQuotaExceeded = apperr.New(apperr.ErrCapacity, "admin code has no rooms left")
)

// Code is a room-creation quota. UsedCount counts distinct room codes ever
// claimed with it and never goes down.
type Code struct {
	Code      string    `json:"code"`
	MaxRooms  int       `json:"maxRooms"`
	UsedCount int       `json:"usedCount"`
	RoomCodes []string  `json:"activeRoomCodes"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c Code) Remaining() int {
	return max(c.MaxRooms-c.UsedCount, 0)
}

// Store persists admin codes. Claim must be atomic: a room code is counted
// at most once and UsedCount never exceeds MaxRooms.
type Store interface {
	Create(ctx context.Context, code string, maxRooms int) error
	Get(ctx context.Context, code string) (Code, error)
	Claim(ctx context.Context, code, roomCode string) (Code, error)
}

// NormalizeCode trims and uppercases an admin code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// MemoryStore keeps codes in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]*Code
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]*Code), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, code string, maxRooms int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code]; ok {
		return ErrCodeExists
	}
	s.codes[code] = &Code{Code: code, MaxRooms: maxRooms, RoomCodes: []string{}, CreatedAt: s.now()}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, code string) (Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return Code{}, ErrCodeNotFound
	}
	return clone(c), nil
}

func (s *MemoryStore) Claim(_ context.Context, code, roomCode string) (Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return Code{}, ErrCodeNotFound
	}
	if slices.Contains(c.RoomCodes, roomCode) {
		return clone(c), nil
	}
	if c.UsedCount >= c.MaxRooms {
		return clone(c), ErrQuotaExceeded
	}
	c.RoomCodes = append(c.RoomCodes, roomCode)
	c.UsedCount++
	return clone(c), nil
}

func clone(c *Code) Code {
	out := *c
	out.RoomCodes = slices.Clone(c.RoomCodes)
	return out
}
