package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

// IssueToken signs a session token for a local or exchanged identity.
func IssueToken(secret string, ttl time.Duration, identity Identity) (string, error) {
	claims := &models.JwtCustomClaims{
		UID:     identity.UID,
		Name:    identity.Name,
		Email:   identity.Email,
		Picture: identity.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseLocalJWT(secret, tokenString string) (Identity, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid || claims.UID == "" {
		return Identity{}, errors.New("invalid token")
	}
	return Identity{UID: claims.UID, Name: claims.Name, Email: claims.Email, Avatar: claims.Picture}, nil
}
