package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid authentication token")

const issuer = "film-library"

// Claims are carried by authentication tokens. The user id is the subject.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the id of the user the token was issued to.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Token is an issued authentication token.
type Token struct {
	Plaintext string    `json:"token"`
	Expiry    time.Time `json:"expiry"`
}

// Issue signs a token for userID valid for ttl.
func Issue(secret []byte, userID int64, ttl time.Duration) (*Token, error) {
	now := time.Now()
	expiry := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, err
	}

	return &Token{Plaintext: signed, Expiry: expiry}, nil
}

// Parse verifies tokenString and returns the user id it was issued to.
func Parse(secret []byte, tokenString string) (int64, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, errors.Join(ErrInvalidToken, err)
	}

	return claims.UserID()
}
