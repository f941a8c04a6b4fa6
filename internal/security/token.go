package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/pkg/errors"
)

// InviteClaims binds an island invite to one player and role.
type InviteClaims struct {
	IslandID string      `json:"island_id"`
	PlayerID string      `json:"player_id"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateInviteToken signs an invite that expires ttl after now.
func GenerateInviteToken(islandID, playerID string, role models.Role, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := &InviteClaims{
		IslandID: islandID,
		PlayerID: playerID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternalError, "failed to sign invite")
	}
	return signed, nil
}

// ValidateInviteToken verifies the signature and expiry as of now.
func ValidateInviteToken(tokenString, secret string, now time.Time) (*InviteClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &InviteClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeForbidden, "invalid invite")
	}

	if claims, ok := token.Claims.(*InviteClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New(errors.ErrCodeForbidden, "invalid invite")
}
