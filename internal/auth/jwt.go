// Package auth extracts the local user's identity from the bearer token the
// chat server issued.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

// ErrNoIdentity is returned when a token names no user.
var ErrNoIdentity = errors.New("token carries no user id")

// UserID accepts both numeric and string user ids.
type UserID string

// UnmarshalJSON implements json.Unmarshaler.
func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*u = UserID(n.String())
	return nil
}

// Claims represents JWT claims for WireChat authentication.
type Claims struct {
	UserID   UserID `json:"user_id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
	Level    int    `json:"level,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT configuration. An empty Secret skips signature checks.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a new JWT token for the given user.
func GenerateToken(cfg *JWTConfig, user core.Sender, isGuest bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   UserID(user.ID),
		Username: user.Name,
		IsGuest:  isGuest,
		Level:    user.Level,
		Admin:    user.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	// Validate issuer and audience if configured
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	if cfg.Audience != "" {
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			return nil, fmt.Errorf("invalid audience")
		}
	}

	return claims, nil
}

// ParseClaims reads the claims of a token. Without a secret the signature is
// not verified; the server remains the authority on every request.
func ParseClaims(cfg *JWTConfig, tokenString string) (*Claims, error) {
	if cfg != nil && len(cfg.Secret) > 0 {
		return ValidateToken(cfg, tokenString)
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// IdentityFromToken returns the local user described by the token.
func IdentityFromToken(cfg *JWTConfig, tokenString string) (core.Sender, error) {
	claims, err := ParseClaims(cfg, tokenString)
	if err != nil {
		return core.Sender{}, err
	}

	id := string(claims.UserID)
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return core.Sender{}, ErrNoIdentity
	}

	name := claims.Username
	if name == "" {
		name = id
	}
	return core.Sender{
		ID:    id,
		Name:  name,
		Level: claims.Level,
		Admin: claims.Admin,
	}, nil
}
