package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long!!")

func TestMintAndParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := MintToken(testSecret, now, time.Hour)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	claims, err := ParseToken(testSecret, tok, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Issuer != Issuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, Issuer)
	}
	if claims.ID == "" {
		t.Error("ID should be set")
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt.Time, now.Add(time.Hour))
	}
}

func TestParseToken_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := MintToken(testSecret, now, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ParseToken(testSecret, tok, now.Add(2*time.Hour))
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	now := time.Now()
	tok, err := MintToken(testSecret, now, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken([]byte("another-secret"), tok, now); err == nil {
		t.Error("expected signature error")
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	now := time.Now()
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(testSecret, tok, now); err == nil {
		t.Error("alg=none token should be rejected")
	}
}

func TestParseToken_WrongIssuer(t *testing.T) {
	now := time.Now()
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	tok, err := foreign.SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(testSecret, tok, now); !errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		t.Errorf("err = %v, want ErrTokenInvalidIssuer", err)
	}
}

func TestNoSecret(t *testing.T) {
	if _, err := MintToken(nil, time.Now(), time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("MintToken err = %v, want ErrNoSecret", err)
	}
	if _, err := ParseToken(nil, "x", time.Now()); !errors.Is(err, ErrNoSecret) {
		t.Errorf("ParseToken err = %v, want ErrNoSecret", err)
	}
}

func TestMintToken_NonPositiveTTL(t *testing.T) {
	if _, err := MintToken(testSecret, time.Now(), 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}
