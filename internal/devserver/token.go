package devserver

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"token_type"`
}

type tokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (ts *tokenService) generate(userID int64, email string) (access, refresh string, err error) {
	now := ts.now()
	sign := func(kind string, ttl time.Duration) (string, error) {
		claims := tokenClaims{
			UserID: userID,
			Email:  email,
			Type:   kind,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	}

	if access, err = sign("access", ts.accessTTL); err != nil {
		return "", "", err
	}
	if refresh, err = sign("refresh", ts.refreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// verifyAccess parses and validates an access token.
func (ts *tokenService) verifyAccess(tokenString string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secret, nil
	}, jwt.WithTimeFunc(ts.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Type != "access" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
