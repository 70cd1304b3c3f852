package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mossy-p/tombola/internal/apperr"
	"go.uber.org/zap"
)

const (
	RoleSuperAdmin  = "super-admin"
	DefaultMaxRooms = 5
)

var (
	ErrInvalidCredentials = apperr.New(apperr.ErrAuthorization, "invalid credentials")
	ErrInvalidToken       = apperr.New(apperr.ErrAuthorization, "invalid session token")
	ErrInvalidQuota       = apperr.New(apperr.ErrInvalid, "maxRooms must be positive")
)

// Claims identify a super-admin session.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Options struct {
	SuperAdmins map[string]string
	JWTSecret   string
	SessionTTL  time.Duration
}

// Manager is the single authority on admin codes and super-admin sessions.
type Manager struct {
	store       Store
	superAdmins map[string]string
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewManager(store Store, opts Options, log *zap.Logger) *Manager {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		store:       store,
		superAdmins: opts.SuperAdmins,
		secret:      []byte(opts.JWTSecret),
		ttl:         ttl,
		now:         time.Now,
		log:         log,
	}
}

// Seed creates the given codes, skipping any that already exist.
func (m *Manager) Seed(ctx context.Context, codes map[string]int) error {
	for code, quota := range codes {
		err := m.Issue(ctx, code, quota)
		if err != nil && !errors.Is(err, ErrCodeExists) {
			return fmt.Errorf("seed admin code %s: %w", code, err)
		}
	}
	return nil
}

type Verification struct {
	Valid          bool
	RemainingQuota int
}

// Verify reports whether code exists and how many rooms it may still
// create. An unknown code is not an error.
func (m *Manager) Verify(ctx context.Context, code string) (Verification, error) {
	c, err := m.store.Get(ctx, NormalizeCode(code))
	if errors.Is(err, ErrCodeNotFound) {
		return Verification{}, nil
	}
	if err != nil {
		return Verification{}, err
	}
	return Verification{Valid: true, RemainingQuota: c.Remaining()}, nil
}

// Claim charges roomCode against code's quota. Claiming the same room code
// again is free.
func (m *Manager) Claim(ctx context.Context, code, roomCode string) error {
	c, err := m.store.Claim(ctx, NormalizeCode(code), roomCode)
	if err != nil {
		return err
	}
	m.log.Debug("admin code claimed room",
		zap.String("room", roomCode), zap.Int("used", c.UsedCount), zap.Int("max", c.MaxRooms))
	return nil
}

// Issue mints a new admin code.
func (m *Manager) Issue(ctx context.Context, code string, maxRooms int) error {
	if maxRooms == 0 {
		maxRooms = DefaultMaxRooms
	}
	if maxRooms < 0 {
		return ErrInvalidQuota
	}
	code = NormalizeCode(code)
	if err := m.store.Create(ctx, code, maxRooms); err != nil {
		return err
	}
	m.log.Info("admin code issued", zap.String("code", code), zap.Int("maxRooms", maxRooms))
	return nil
}

// Login checks username/password against the allow-list and returns a
// signed session token.
func (m *Manager) Login(username, password string) (string, time.Time, error) {
	expected, ok := m.superAdmins[username]
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(password)) != 1 {
		m.log.Warn("super-admin login rejected", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		Role: RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expires, nil
}

// ParseToken validates a session token issued by Login.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != RoleSuperAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
