// Package service contains the application's business logic.
package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const tokenIssuer = "parley-api"

// TokenConfig holds the signing material for the access/refresh token pair.
// The two tokens are signed with independent secrets so a leaked access
// secret cannot mint refresh tokens.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AccessClaims are the claims carried by short-lived access tokens.
type AccessClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func signAccessToken(cfg TokenConfig, userID bson.ObjectID, email, name string, now time.Time) (string, error) {
	claims := AccessClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.Hex(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AccessSecret))
}

// Refresh tokens carry only the subject.
func signRefreshToken(cfg TokenConfig, userID bson.ObjectID, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.RefreshTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.RefreshSecret))
}

// parseSubject verifies signature, expiry, and issuer, and returns the
// subject user id. HS256 only.
func parseSubject(tokenString, secret string) (bson.ObjectID, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil || !token.Valid {
		return bson.ObjectID{}, jwt.ErrTokenInvalidClaims
	}
	return bson.ObjectIDFromHex(claims.Subject)
}
