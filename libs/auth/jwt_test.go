package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignAndVerifyHS256(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{
		Sub:   "user-1",
		Role:  "professional",
		Email: "pro@example.com",
		Name:  "Pat",
		Exp:   time.Now().Add(time.Hour).Unix(),
		Iat:   time.Now().Unix(),
	}

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}

	got, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256: %v", err)
	}
	if got.Sub != claims.Sub || got.Role != claims.Role || got.Email != claims.Email {
		t.Fatalf("claims mismatch: got %+v want %+v", got, claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "u", Exp: time.Now().Add(time.Hour).Unix()}, []byte("right"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAndVerifyHS256(token, []byte("wrong")); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("want ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "u", Exp: time.Now().Add(-time.Minute).Unix()}, []byte("s"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAndVerifyHS256(token, []byte("s")); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "u", Role: "client", Exp: time.Now().Add(time.Hour).Unix()}, []byte("s"))
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := ParseAndVerifyHS256(tampered, []byte("s")); err == nil {
		t.Fatal("tampered token verified")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, token := range []string{"", "a.b", "not a token", "a.b.c.d"} {
		if _, err := ParseAndVerifyHS256(token, []byte("s")); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("token %q: want ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestParseHeader(t *testing.T) {
	token, err := ParseHeader("Bearer abc.def.ghi")
	if err != nil || token != "abc.def.ghi" {
		t.Fatalf("got (%q, %v)", token, err)
	}
	if _, err := ParseHeader("Basic abc"); err == nil {
		t.Fatal("accepted non-Bearer scheme")
	}
	if _, err := ParseHeader("Bearer "); err == nil {
		t.Fatal("accepted empty token")
	}
}
