package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-session-secret"

func TestIssueAndParseToken(t *testing.T) {
	sid := NewSessionID()
	token, err := IssueToken(testSecret, "widget-1", sid, true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.WidgetID != "widget-1" || claims.SessionID != sid || !claims.Closed {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _ := IssueToken(testSecret, "widget-1", NewSessionID(), false)
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	claims := &Claims{
		WidgetID:  "widget-1",
		SessionID: "s",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	_, err = ParseToken(testSecret, signed)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("expected expiry error, got %v", err)
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{WidgetID: "w", SessionID: "s"}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(testSecret, signed); err == nil {
		t.Error("expected error for unsigned token")
	}
}

func TestParseToken_MissingIDs(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(testSecret, signed); err == nil {
		t.Error("expected error for token without ids")
	}
}
