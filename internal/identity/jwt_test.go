package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tuneroom/live-service/internal/domain"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	v := NewJWTVerifier(&key.PublicKey, "auth-service", "live-service", 30*time.Second)
	now := time.Now()

	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "auth-service",
		Audience:  jwt.ClaimStrings{"live-service"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	t.Run("valid token", func(t *testing.T) {
		uid, err := v.Verify(context.Background(), signToken(t, key, valid))
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if uid != "user-1" {
			t.Fatalf("uid = %q, want user-1", uid)
		}
	})

	t.Run("expired", func(t *testing.T) {
		c := valid
		c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
		assertUnauthorized(t, v, signToken(t, key, c))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := valid
		c.Issuer = "someone-else"
		assertUnauthorized(t, v, signToken(t, key, c))
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := valid
		c.Audience = jwt.ClaimStrings{"other-service"}
		assertUnauthorized(t, v, signToken(t, key, c))
	})

	t.Run("empty subject", func(t *testing.T) {
		c := valid
		c.Subject = ""
		assertUnauthorized(t, v, signToken(t, key, c))
	})

	t.Run("garbage token", func(t *testing.T) {
		assertUnauthorized(t, v, "not.a.jwt")
	})

	t.Run("empty token", func(t *testing.T) {
		assertUnauthorized(t, v, "")
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		assertUnauthorized(t, v, signToken(t, other, valid))
	})
}

func assertUnauthorized(t *testing.T, v *JWTVerifier, token string) {
	t.Helper()
	_, err := v.Verify(context.Background(), token)
	if err == nil {
		t.Fatal("expected error")
	}
	if code := domain.ErrorCode(err); code != "Unauthorized" {
		t.Fatalf("code = %s, want Unauthorized", code)
	}
}
