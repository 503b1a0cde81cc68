package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const TokenDuration = 12 * time.Hour

// Claims identify one browsing session of one embedded widget. Closed
// mirrors the closed-for-session flag so it survives reloads without
// server-side state.
type Claims struct {
	WidgetID  string `json:"wid"`
	SessionID string `json:"sid"`
	Closed    bool   `json:"closed"`
	jwt.RegisteredClaims
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

func IssueToken(secret, widgetID, sessionID string, closed bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		WidgetID:  widgetID,
		SessionID: sessionID,
		Closed:    closed,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	if claims.SessionID == "" || claims.WidgetID == "" {
		return nil, fmt.Errorf("session token missing ids")
	}
	return claims, nil
}
