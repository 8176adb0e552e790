package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSector Role = "sector"
)

// Identity is the caller a verified session token speaks for. SectorID and
// SectorName are set only for RoleSector.
type Identity struct {
	Role       Role   `json:"role"`
	UserID     int    `json:"user_id"`
	Username   string `json:"username"`
	SectorID   int    `json:"sector_id,omitempty"`
	SectorName string `json:"sector_name,omitempty"`
}

type Claims struct {
	jwt.RegisteredClaims
	Role       Role   `json:"role"`
	UserID     int    `json:"uid"`
	Username   string `json:"username"`
	SectorID   int    `json:"sector_id,omitempty"`
	SectorName string `json:"sector_name,omitempty"`
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// WithClock replaces the time source used for issuing and checking expiry.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

func (m *TokenManager) Issue(id Identity) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role:       id.Role,
		UserID:     id.UserID,
		Username:   id.Username,
		SectorID:   id.SectorID,
		SectorName: id.SectorName,
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	switch claims.Role {
	case RoleAdmin:
	case RoleSector:
		if claims.SectorID <= 0 {
			return Identity{}, fmt.Errorf("%w: sector token without sector", ErrInvalidToken)
		}
	default:
		return Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return Identity{
		Role:       claims.Role,
		UserID:     claims.UserID,
		Username:   claims.Username,
		SectorID:   claims.SectorID,
		SectorName: claims.SectorName,
	}, nil
}
