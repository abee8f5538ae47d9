package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndIdentify(t *testing.T) {
	iss, err := NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	token, err := iss.Issue(User{ID: "u-1", DisplayName: "Ann"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	id, name, err := iss.Identify("Bearer " + token)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if id != "u-1" || name != "Ann" {
		t.Errorf("expected u-1/Ann, got %s/%s", id, name)
	}

	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.ID == "" || claims.ExpiresAt.Sub(claims.IssuedAt.Time) != time.Hour {
		t.Errorf("unexpected claims: %+v", claims.RegisteredClaims)
	}
}

func TestVerifyRejects(t *testing.T) {
	iss, _ := NewIssuer("secret", time.Hour)
	other, _ := NewIssuer("other", time.Hour)
	good, _ := iss.Issue(User{ID: "u-1"})
	forged, _ := other.Issue(User{ID: "u-1"})

	expiredIss, _ := NewIssuer("secret", time.Minute)
	expiredIss.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := expiredIss.Issue(User{ID: "u-1"})

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", forged},
		{"expired", expired},
		{"missing subject", noSubject},
		{"alg none", none},
		{"garbage", "not-a-token"},
		{"truncated", good[:len(good)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := iss.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
	iss, err := NewIssuer("s", 0)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	if iss.ttl != 12*time.Hour {
		t.Errorf("expected default ttl 12h, got %v", iss.ttl)
	}
}
